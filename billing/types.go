/*
Package billing generates accounts-receivable schedules for printer-lease
and buyout contracts.

PURPOSE:
  A lease contract bills its monthly rent in cycles of one or more months.
  This package expands a contract snapshot into the ordered set of billing
  periods (one receivable per period), and a buyout contract into its single
  receivable. Generation is pure; persistence goes through ScheduleStore.

KEY CONCEPTS IN THIS FILE (types.go):
  - ContractCode / ContractKind: identity of the owning contract
  - PaymentStatus: collection state of one receivable
  - LeaseContract / BuyoutContract: the snapshot the generators read
  - LeaseReceivable / BuyoutReceivable: the generated records

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, so the sum of a lease schedule is
     exactly monthly_rent * contract_months.
  2. Ownership: a receivable has no identity beyond (contract code, seq);
     the whole set is replaced whenever the contract is regenerated.
  3. Snapshot: customer code and name are copied at generation time.

SEE ALSO:
  - period.go: ComputePeriods
  - lease.go, buyout.go: generators
  - regenerate.go: replace-on-edit policy
*/
package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ContractCode string

// ContractKind tells which receivable table a contract owns.
type ContractKind string

const (
	KindLease  ContractKind = "lease"
	KindBuyout ContractKind = "buyout"
)

// ParseContractKind accepts "lease"/"leasing" and "buyout".
func ParseContractKind(s string) (ContractKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lease", "leasing":
		return KindLease, nil
	case "buyout":
		return KindBuyout, nil
	}
	return "", invalidArg("kind", s, "must be lease or buyout")
}

// =============================================================================
// PAYMENT STATUS
// =============================================================================

type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "UNPAID"
	StatusPartial PaymentStatus = "PARTIAL"
	StatusPaid    PaymentStatus = "PAID"
)

// ParsePaymentStatus is case-insensitive.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusUnpaid:
		return StatusUnpaid, nil
	case StatusPartial:
		return StatusPartial, nil
	case StatusPaid:
		return StatusPaid, nil
	}
	return "", invalidArg("payment_status", s, "must be UNPAID, PARTIAL or PAID")
}

// DeriveStatus infers a status from what has been received against what is due.
func DeriveStatus(due, fee, received decimal.Decimal) PaymentStatus {
	switch {
	case !received.IsPositive():
		return StatusUnpaid
	case received.GreaterThanOrEqual(due.Add(fee)):
		return StatusPaid
	default:
		return StatusPartial
	}
}

// =============================================================================
// CONTRACT SNAPSHOTS
// =============================================================================

// LeaseContract is the billing-relevant view of a lease contract.
type LeaseContract struct {
	Code               ContractCode
	CustomerCode       string
	CustomerName       string
	StartDate          Date
	MonthlyRent        decimal.Decimal
	PaymentCycleMonths int
	ContractMonths     int
}

// BuyoutContract is the billing-relevant view of a one-time sale.
type BuyoutContract struct {
	Code         ContractCode
	CustomerCode string
	CustomerName string
	DealDate     Date
	DealAmount   decimal.Decimal
}

// =============================================================================
// RECEIVABLES
// =============================================================================

// Collection holds the fields edited by the collection workflow after
// generation. Generated records start at zero/UNPAID.
type Collection struct {
	Fee            decimal.Decimal
	ReceivedAmount decimal.Decimal
	PaymentStatus  PaymentStatus
}

func newCollection() Collection {
	return Collection{Fee: decimal.Zero, ReceivedAmount: decimal.Zero, PaymentStatus: StatusUnpaid}
}

// LeaseReceivable is one billing period of a lease contract.
// Seq is the 1-based period index.
type LeaseReceivable struct {
	ContractCode ContractCode
	Seq          int
	CustomerCode string
	CustomerName string
	StartDate    Date
	EndDate      Date
	TotalRent    decimal.Decimal
	Collection
}

// Outstanding is rent plus fee minus what has been received.
func (r LeaseReceivable) Outstanding() decimal.Decimal {
	return r.TotalRent.Add(r.Fee).Sub(r.ReceivedAmount)
}

func (r LeaseReceivable) String() string {
	return fmt.Sprintf("%s#%d %s..%s %s %s", r.ContractCode, r.Seq, r.StartDate, r.EndDate, r.TotalRent, r.PaymentStatus)
}

// BuyoutReceivable is the single receivable of a buyout contract.
type BuyoutReceivable struct {
	ContractCode ContractCode
	Seq          int
	CustomerCode string
	CustomerName string
	DealDate     Date
	TotalAmount  decimal.Decimal
	Collection
}

// Outstanding is amount plus fee minus what has been received.
func (r BuyoutReceivable) Outstanding() decimal.Decimal {
	return r.TotalAmount.Add(r.Fee).Sub(r.ReceivedAmount)
}
