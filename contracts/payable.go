package contracts

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/lease-receivables/billing"
	"go.uber.org/zap"
)

// =============================================================================
// PAYABLES - What each contract owes its sales and service companies
// =============================================================================

// Party is the side of a contract a payable belongs to.
type Party string

const (
	PartySales   Party = "sales"
	PartyService Party = "service"
)

// ParseParty is case-insensitive.
func ParseParty(s string) (Party, error) {
	switch Party(strings.ToLower(strings.TrimSpace(s))) {
	case PartySales:
		return PartySales, nil
	case PartyService:
		return PartyService, nil
	}
	return "", &billing.InvalidArgumentError{Field: "party", Value: s, Reason: "must be sales or service"}
}

// Payable is one non-zero sales or service amount of a contract. Date is
// the lease start date or the buyout deal date.
type Payable struct {
	Kind          billing.ContractKind
	ContractCode  billing.ContractCode
	CustomerCode  string
	CustomerName  string
	Date          billing.Date
	Party         Party
	CompanyCode   string
	Amount        decimal.Decimal
	PaymentStatus billing.PaymentStatus
}

// PayableFilter narrows Payables. Zero bounds are open; Unpaid keeps every
// status other than PAID and Paid keeps only PAID.
type PayableFilter struct {
	From        billing.Date
	To          billing.Date
	Paid        bool
	Unpaid      bool
	CompanyCode string
}

func (f PayableFilter) match(p Payable) bool {
	if !f.From.IsZero() && p.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && p.Date.After(f.To) {
		return false
	}
	if f.Paid && p.PaymentStatus != billing.StatusPaid {
		return false
	}
	if f.Unpaid && p.PaymentStatus == billing.StatusPaid {
		return false
	}
	return f.CompanyCode == "" || p.CompanyCode == f.CompanyCode
}

// PayableUpdate sets the status of one payable.
type PayableUpdate struct {
	Kind   billing.ContractKind
	Code   billing.ContractCode
	Party  Party
	Status billing.PaymentStatus
}

// Payables lists every matching payable ordered by date, contract code and
// party.
func (s *Service) Payables(ctx context.Context, f PayableFilter) ([]Payable, error) {
	if f.Paid && f.Unpaid {
		return nil, &billing.InvalidArgumentError{Field: "status", Value: "paid,unpaid", Reason: "choose paid or unpaid"}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, &billing.InvalidArgumentError{Field: "to", Value: f.To, Reason: "must not be before from"}
	}

	leases, err := s.store.ListLeases(ctx)
	if err != nil {
		return nil, err
	}
	buyouts, err := s.store.ListBuyouts(ctx)
	if err != nil {
		return nil, err
	}

	var out []Payable
	add := func(p Payable) {
		if p.Amount.IsPositive() && f.match(p) {
			out = append(out, p)
		}
	}
	for _, l := range leases {
		for _, p := range leasePayables(l) {
			add(p)
		}
	}
	for _, b := range buyouts {
		for _, p := range buyoutPayables(b) {
			add(p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ContractCode != b.ContractCode {
			return a.ContractCode < b.ContractCode
		}
		return a.Party < b.Party
	})
	return out, nil
}

// UpdatePayable records a new status on one payable. The contract's
// receivables are not regenerated.
func (s *Service) UpdatePayable(ctx context.Context, u PayableUpdate) (Payable, error) {
	status, err := billing.ParsePaymentStatus(string(u.Status))
	if err != nil {
		return Payable{}, err
	}
	if u.Party != PartySales && u.Party != PartyService {
		return Payable{}, &billing.InvalidArgumentError{Field: "party", Value: u.Party, Reason: "must be sales or service"}
	}

	var out Payable
	err = s.store.WithContractTx(ctx, func(tx Tx) error {
		switch u.Kind {
		case billing.KindLease:
			l, err := tx.GetLease(ctx, u.Code)
			if err != nil {
				return err
			}
			setPayableStatus(&l.SalesPaymentStatus, &l.ServicePaymentStatus, u.Party, status)
			out = pickPayable(leasePayables(l), u.Party)
			if !out.Amount.IsPositive() {
				return noPayable(u)
			}
			return tx.UpdateLease(ctx, l)
		case billing.KindBuyout:
			b, err := tx.GetBuyout(ctx, u.Code)
			if err != nil {
				return err
			}
			setPayableStatus(&b.SalesPaymentStatus, &b.ServicePaymentStatus, u.Party, status)
			out = pickPayable(buyoutPayables(b), u.Party)
			if !out.Amount.IsPositive() {
				return noPayable(u)
			}
			return tx.UpdateBuyout(ctx, b)
		}
		return &billing.InvalidArgumentError{Field: "kind", Value: u.Kind, Reason: "must be lease or buyout"}
	})
	if err != nil {
		return Payable{}, err
	}

	s.logger.Info("payable updated",
		zap.String("kind", string(u.Kind)),
		zap.String("contract_code", string(u.Code)),
		zap.String("party", string(u.Party)),
		zap.String("status", string(status)))
	return out, nil
}

func leasePayables(l Lease) [2]Payable {
	base := Payable{
		Kind:         billing.KindLease,
		ContractCode: l.Code,
		CustomerCode: l.CustomerCode,
		CustomerName: l.CustomerName,
		Date:         l.StartDate,
	}
	sales, service := base, base
	sales.Party, sales.CompanyCode, sales.Amount, sales.PaymentStatus = PartySales, l.SalesCompanyCode, l.SalesAmount, orUnpaid(l.SalesPaymentStatus)
	service.Party, service.CompanyCode, service.Amount, service.PaymentStatus = PartyService, l.ServiceCompanyCode, l.ServiceAmount, orUnpaid(l.ServicePaymentStatus)
	return [2]Payable{sales, service}
}

func buyoutPayables(b Buyout) [2]Payable {
	base := Payable{
		Kind:         billing.KindBuyout,
		ContractCode: b.Code,
		CustomerCode: b.CustomerCode,
		CustomerName: b.CustomerName,
		Date:         b.DealDate,
	}
	sales, service := base, base
	sales.Party, sales.CompanyCode, sales.Amount, sales.PaymentStatus = PartySales, b.SalesCompanyCode, b.SalesAmount, orUnpaid(b.SalesPaymentStatus)
	service.Party, service.CompanyCode, service.Amount, service.PaymentStatus = PartyService, b.ServiceCompanyCode, b.ServiceAmount, orUnpaid(b.ServicePaymentStatus)
	return [2]Payable{sales, service}
}

func pickPayable(ps [2]Payable, p Party) Payable {
	if p == PartySales {
		return ps[0]
	}
	return ps[1]
}

func setPayableStatus(sales, service *billing.PaymentStatus, p Party, st billing.PaymentStatus) {
	if p == PartySales {
		*sales = st
		return
	}
	*service = st
}

func noPayable(u PayableUpdate) error {
	return &billing.InvalidArgumentError{Field: "party", Value: u.Party, Reason: "contract " + string(u.Code) + " has no " + string(u.Party) + " amount"}
}
