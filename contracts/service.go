package contracts

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/warp/lease-receivables/billing"
	"go.uber.org/zap"
)

// Options tune regeneration. The zero value regenerates unconditionally and
// discards collection state.
type Options struct {
	CollectionPolicy              billing.CollectionPolicy
	RegenerateOnBillingChangeOnly bool
}

// Result reports what a write did to the contract's schedule.
type Result struct {
	Code        billing.ContractCode `json:"contract_code"`
	Kind        billing.ContractKind `json:"kind"`
	Receivables int                  `json:"receivables"`
	Regenerated bool                 `json:"regenerated"`
}

// Service runs the contract workflow against a Store.
type Service struct {
	store       Store
	logger      *zap.Logger
	opts        Options
	regenerator *billing.Regenerator
	validate    *validator.Validate
}

func NewService(store Store, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CollectionPolicy == "" {
		opts.CollectionPolicy = billing.CollectionReplace
	}
	return &Service{
		store:       store,
		logger:      logger.Named("contracts"),
		opts:        opts,
		regenerator: &billing.Regenerator{Store: store, Policy: opts.CollectionPolicy},
		validate:    newValidator(),
	}
}

// =============================================================================
// LEASES
// =============================================================================

// CreateLease saves the contract and generates its schedule in one
// transaction. A customer code is resolved against the directory first and
// its name becomes the snapshot on the contract and its receivables.
func (s *Service) CreateLease(ctx context.Context, l Lease) (Result, error) {
	if err := s.prepareLease(&l); err != nil {
		return Result{}, err
	}
	l.SalesPaymentStatus = orUnpaid(l.SalesPaymentStatus)
	l.ServicePaymentStatus = orUnpaid(l.ServicePaymentStatus)

	res := Result{Code: l.Code, Kind: billing.KindLease, Regenerated: true}
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		if err := resolveParties(ctx, tx, l.CustomerCode, &l.CustomerName, l.SalesCompanyCode, l.ServiceCompanyCode); err != nil {
			return err
		}
		schedule, err := billing.LeaseGenerator(l.Billing())()
		if err != nil {
			return err
		}
		if err := tx.InsertLease(ctx, l); err != nil {
			return err
		}
		n, err := billing.Replace(ctx, tx, l.Code, schedule, s.opts.CollectionPolicy)
		res.Receivables = n
		return err
	})
	if err != nil {
		s.logger.Warn("create lease failed", zap.String("contract_code", string(l.Code)), zap.Error(err))
		return Result{}, err
	}

	s.logger.Info("lease created",
		zap.String("contract_code", string(l.Code)),
		zap.Int("receivables", res.Receivables))
	return res, nil
}

// UpdateLease overwrites the contract and regenerates its schedule. With
// RegenerateOnBillingChangeOnly the schedule is left alone when no billing
// field changed. Empty payable statuses keep their stored values.
func (s *Service) UpdateLease(ctx context.Context, l Lease) (Result, error) {
	if err := s.prepareLease(&l); err != nil {
		return Result{}, err
	}

	res := Result{Code: l.Code, Kind: billing.KindLease}
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		old, err := tx.GetLease(ctx, l.Code)
		if err != nil {
			return err
		}
		if l.SalesPaymentStatus == "" {
			l.SalesPaymentStatus = old.SalesPaymentStatus
		}
		if l.ServicePaymentStatus == "" {
			l.ServicePaymentStatus = old.ServicePaymentStatus
		}
		if err := resolveParties(ctx, tx, l.CustomerCode, &l.CustomerName, l.SalesCompanyCode, l.ServiceCompanyCode); err != nil {
			return err
		}
		schedule, err := billing.LeaseGenerator(l.Billing())()
		if err != nil {
			return err
		}
		if err := tx.UpdateLease(ctx, l); err != nil {
			return err
		}
		if s.opts.RegenerateOnBillingChangeOnly && !old.billingChanged(l) {
			existing, err := tx.LoadLeaseReceivables(ctx, l.Code)
			res.Receivables = len(existing)
			return err
		}
		n, err := billing.Replace(ctx, tx, l.Code, schedule, s.opts.CollectionPolicy)
		res.Receivables = n
		res.Regenerated = true
		return err
	})
	if err != nil {
		s.logger.Warn("update lease failed", zap.String("contract_code", string(l.Code)), zap.Error(err))
		return Result{}, err
	}

	s.logger.Info("lease updated",
		zap.String("contract_code", string(l.Code)),
		zap.Bool("regenerated", res.Regenerated),
		zap.Int("receivables", res.Receivables))
	return res, nil
}

func (s *Service) prepareLease(l *Lease) error {
	if err := normalizeStatus("sales_payment_status", &l.SalesPaymentStatus); err != nil {
		return err
	}
	if err := normalizeStatus("service_payment_status", &l.ServicePaymentStatus); err != nil {
		return err
	}
	return s.checkStruct(*l)
}

func (s *Service) GetLease(ctx context.Context, code billing.ContractCode) (Lease, error) {
	return s.store.GetLease(ctx, code)
}

func (s *Service) ListLeases(ctx context.Context) ([]Lease, error) {
	return s.store.ListLeases(ctx)
}

// DeleteLease removes the contract and its whole schedule. Returns the
// number of receivables removed.
func (s *Service) DeleteLease(ctx context.Context, code billing.ContractCode) (int, error) {
	var removed int
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		n, err := tx.DeleteReceivables(ctx, billing.KindLease, code)
		if err != nil {
			return err
		}
		removed = n
		return tx.DeleteLease(ctx, code)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("lease deleted", zap.String("contract_code", string(code)), zap.Int("receivables", removed))
	return removed, nil
}

// RegenerateLease rebuilds the schedule from the stored contract.
func (s *Service) RegenerateLease(ctx context.Context, code billing.ContractCode) (Result, error) {
	l, err := s.store.GetLease(ctx, code)
	if err != nil {
		return Result{}, err
	}
	n, err := s.regenerator.Regenerate(ctx, code, billing.LeaseGenerator(l.Billing()))
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("lease regenerated", zap.String("contract_code", string(code)), zap.Int("receivables", n))
	return Result{Code: code, Kind: billing.KindLease, Receivables: n, Regenerated: true}, nil
}

// LeaseReceivables returns the stored schedule of an existing lease.
func (s *Service) LeaseReceivables(ctx context.Context, code billing.ContractCode) ([]billing.LeaseReceivable, error) {
	if _, err := s.store.GetLease(ctx, code); err != nil {
		return nil, err
	}
	return s.store.LoadLeaseReceivables(ctx, code)
}

// PreviewLease computes the schedule without storing anything. The code
// may be empty and the customer is not looked up.
func (s *Service) PreviewLease(l Lease) (billing.LeaseSchedule, error) {
	if l.Code == "" {
		l.Code = "PREVIEW"
	}
	if l.Quantity == 0 {
		l.Quantity = 1
	}
	if l.CustomerName == "" {
		l.CustomerName = "-"
	}
	if err := s.prepareLease(&l); err != nil {
		return nil, err
	}
	return billing.GenerateLeaseSchedule(l.Billing())
}

// =============================================================================
// BUYOUTS
// =============================================================================

// CreateBuyout saves the contract and its single receivable in one
// transaction. Directory codes are resolved as for leases.
func (s *Service) CreateBuyout(ctx context.Context, b Buyout) (Result, error) {
	if err := s.prepareBuyout(&b); err != nil {
		return Result{}, err
	}
	b.SalesPaymentStatus = orUnpaid(b.SalesPaymentStatus)
	b.ServicePaymentStatus = orUnpaid(b.ServicePaymentStatus)

	res := Result{Code: b.Code, Kind: billing.KindBuyout, Regenerated: true}
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		if err := resolveParties(ctx, tx, b.CustomerCode, &b.CustomerName, b.SalesCompanyCode, b.ServiceCompanyCode); err != nil {
			return err
		}
		schedule, err := billing.BuyoutGenerator(b.Billing())()
		if err != nil {
			return err
		}
		if err := tx.InsertBuyout(ctx, b); err != nil {
			return err
		}
		n, err := billing.Replace(ctx, tx, b.Code, schedule, s.opts.CollectionPolicy)
		res.Receivables = n
		return err
	})
	if err != nil {
		s.logger.Warn("create buyout failed", zap.String("contract_code", string(b.Code)), zap.Error(err))
		return Result{}, err
	}

	s.logger.Info("buyout created", zap.String("contract_code", string(b.Code)))
	return res, nil
}

// UpdateBuyout overwrites the contract and rebuilds its receivable, subject
// to RegenerateOnBillingChangeOnly like UpdateLease.
func (s *Service) UpdateBuyout(ctx context.Context, b Buyout) (Result, error) {
	if err := s.prepareBuyout(&b); err != nil {
		return Result{}, err
	}

	res := Result{Code: b.Code, Kind: billing.KindBuyout}
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		old, err := tx.GetBuyout(ctx, b.Code)
		if err != nil {
			return err
		}
		if b.SalesPaymentStatus == "" {
			b.SalesPaymentStatus = old.SalesPaymentStatus
		}
		if b.ServicePaymentStatus == "" {
			b.ServicePaymentStatus = old.ServicePaymentStatus
		}
		if err := resolveParties(ctx, tx, b.CustomerCode, &b.CustomerName, b.SalesCompanyCode, b.ServiceCompanyCode); err != nil {
			return err
		}
		schedule, err := billing.BuyoutGenerator(b.Billing())()
		if err != nil {
			return err
		}
		if err := tx.UpdateBuyout(ctx, b); err != nil {
			return err
		}
		if s.opts.RegenerateOnBillingChangeOnly && !old.billingChanged(b) {
			existing, err := tx.LoadBuyoutReceivables(ctx, b.Code)
			res.Receivables = len(existing)
			return err
		}
		n, err := billing.Replace(ctx, tx, b.Code, schedule, s.opts.CollectionPolicy)
		res.Receivables = n
		res.Regenerated = true
		return err
	})
	if err != nil {
		s.logger.Warn("update buyout failed", zap.String("contract_code", string(b.Code)), zap.Error(err))
		return Result{}, err
	}

	s.logger.Info("buyout updated",
		zap.String("contract_code", string(b.Code)),
		zap.Bool("regenerated", res.Regenerated))
	return res, nil
}

func (s *Service) prepareBuyout(b *Buyout) error {
	if err := normalizeStatus("sales_payment_status", &b.SalesPaymentStatus); err != nil {
		return err
	}
	if err := normalizeStatus("service_payment_status", &b.ServicePaymentStatus); err != nil {
		return err
	}
	return s.checkStruct(*b)
}

// GetBuyout returns billing.ErrContractNotFound for an unknown code.
func (s *Service) GetBuyout(ctx context.Context, code billing.ContractCode) (Buyout, error) {
	return s.store.GetBuyout(ctx, code)
}

// ListBuyouts returns every buyout ordered by code.
func (s *Service) ListBuyouts(ctx context.Context) ([]Buyout, error) {
	return s.store.ListBuyouts(ctx)
}

// DeleteBuyout removes the contract and its receivable. Returns the number
// of receivables removed.
func (s *Service) DeleteBuyout(ctx context.Context, code billing.ContractCode) (int, error) {
	var removed int
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		n, err := tx.DeleteReceivables(ctx, billing.KindBuyout, code)
		if err != nil {
			return err
		}
		removed = n
		return tx.DeleteBuyout(ctx, code)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("buyout deleted", zap.String("contract_code", string(code)))
	return removed, nil
}

// RegenerateBuyout rebuilds the receivable from the stored contract.
func (s *Service) RegenerateBuyout(ctx context.Context, code billing.ContractCode) (Result, error) {
	b, err := s.store.GetBuyout(ctx, code)
	if err != nil {
		return Result{}, err
	}
	n, err := s.regenerator.Regenerate(ctx, code, billing.BuyoutGenerator(b.Billing()))
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("buyout regenerated", zap.String("contract_code", string(code)))
	return Result{Code: code, Kind: billing.KindBuyout, Receivables: n, Regenerated: true}, nil
}

// BuyoutReceivables returns the stored receivable of an existing buyout.
func (s *Service) BuyoutReceivables(ctx context.Context, code billing.ContractCode) ([]billing.BuyoutReceivable, error) {
	if _, err := s.store.GetBuyout(ctx, code); err != nil {
		return nil, err
	}
	return s.store.LoadBuyoutReceivables(ctx, code)
}

// normalizeStatus upper-cases a payable status. Empty stays empty.
func normalizeStatus(field string, st *billing.PaymentStatus) error {
	if *st == "" {
		return nil
	}
	parsed, err := billing.ParsePaymentStatus(string(*st))
	if err != nil {
		return &billing.InvalidArgumentError{Field: field, Value: *st, Reason: "must be UNPAID, PARTIAL or PAID"}
	}
	*st = parsed
	return nil
}

func orUnpaid(st billing.PaymentStatus) billing.PaymentStatus {
	if st == "" {
		return billing.StatusUnpaid
	}
	return st
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// UpdateCollection records fee, received amount and status on one
// receivable. Nothing else on the record changes.
func (s *Service) UpdateCollection(ctx context.Context, u CollectionUpdate) (billing.Entry, error) {
	if u.Seq < 1 {
		return billing.Entry{}, &billing.InvalidArgumentError{Field: "seq", Value: u.Seq, Reason: "must be at least 1"}
	}
	if !isMoney(u.Fee) {
		return billing.Entry{}, &billing.InvalidArgumentError{Field: "fee", Value: u.Fee, Reason: "must be non-negative with at most 2 decimal places"}
	}
	if !isMoney(u.ReceivedAmount) {
		return billing.Entry{}, &billing.InvalidArgumentError{Field: "received_amount", Value: u.ReceivedAmount, Reason: "must be non-negative with at most 2 decimal places"}
	}
	if u.PaymentStatus != "" {
		status, err := billing.ParsePaymentStatus(string(u.PaymentStatus))
		if err != nil {
			return billing.Entry{}, err
		}
		u.PaymentStatus = status
	}

	var entry billing.Entry
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		current, err := findEntry(ctx, tx, u.Kind, u.Code, u.Seq)
		if err != nil {
			return err
		}

		col := billing.Collection{
			Fee:            u.Fee,
			ReceivedAmount: u.ReceivedAmount,
			PaymentStatus:  u.PaymentStatus,
		}
		if col.PaymentStatus == "" {
			col.PaymentStatus = billing.DeriveStatus(current.Amount, u.Fee, u.ReceivedAmount)
		}
		if err := tx.UpdateCollection(ctx, u.Kind, u.Code, u.Seq, col); err != nil {
			return err
		}

		current.Collection = col
		entry = current
		return nil
	})
	if err != nil {
		return billing.Entry{}, err
	}

	s.logger.Info("collection recorded",
		zap.String("kind", string(u.Kind)),
		zap.String("contract_code", string(u.Code)),
		zap.Int("seq", u.Seq),
		zap.String("status", string(entry.PaymentStatus)))
	return entry, nil
}

func findEntry(ctx context.Context, tx Tx, kind billing.ContractKind, code billing.ContractCode, seq int) (billing.Entry, error) {
	switch kind {
	case billing.KindLease:
		recs, err := tx.LoadLeaseReceivables(ctx, code)
		if err != nil {
			return billing.Entry{}, err
		}
		for _, r := range recs {
			if r.Seq == seq {
				return billing.LeaseEntry(r), nil
			}
		}
	case billing.KindBuyout:
		recs, err := tx.LoadBuyoutReceivables(ctx, code)
		if err != nil {
			return billing.Entry{}, err
		}
		for _, r := range recs {
			if r.Seq == seq {
				return billing.BuyoutEntry(r), nil
			}
		}
	default:
		return billing.Entry{}, &billing.InvalidArgumentError{Field: "kind", Value: kind, Reason: "must be lease or buyout"}
	}
	return billing.Entry{}, fmt.Errorf("%s %s#%d: %w", kind, code, seq, billing.ErrReceivableNotFound)
}

// =============================================================================
// STATEMENT
// =============================================================================

// Statement lists the month's receivables of both kinds with a summary.
func (s *Service) Statement(ctx context.Context, year int, month time.Month, f billing.StatementFilter) (billing.Statement, error) {
	if month < time.January || month > time.December {
		return billing.Statement{}, &billing.InvalidArgumentError{Field: "month", Value: int(month), Reason: "must be 1-12"}
	}
	if year < 1 {
		return billing.Statement{}, &billing.InvalidArgumentError{Field: "year", Value: year, Reason: "must be positive"}
	}

	entries, err := s.store.ReceivablesInMonth(ctx, year, month)
	if err != nil {
		return billing.Statement{}, err
	}
	return billing.BuildStatement(entries, f), nil
}

// Reset deletes every contract, receivable and directory entry.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.logger.Warn("all contracts and directory entries removed")
	return nil
}
