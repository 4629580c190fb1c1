/*
Package contracts owns the lease and buyout contract records and keeps each
contract's receivable schedule in step with it.

PURPOSE:
  The billing package knows how to turn a contract snapshot into receivables.
  This package is the workflow around it: saving a contract and regenerating
  its schedule in one transaction, deleting both together, recording
  collections against individual receivables and producing the monthly
  statement.

KEY CONCEPTS:
  Lease:  printer lease with its commercial fields (model, quantity, sales
          and service splits). Only the billing subset feeds the generator.
  Buyout: one-time sale, billed as a single receivable on the deal date.
  Directory: customers and partner companies referenced by contracts.
  Payable: amount owed to the sales or service company of a contract.
  Store:  read side plus a transactional write side (Tx).

TRANSACTIONS:
  Every write goes through Store.WithContractTx. The contract row and its
  receivables are written by the same Tx, so a failed regeneration also
  undoes the contract insert or update.

SEE ALSO:
  - service.go: Service, the operations exposed to the API
  - billing/regenerate.go: Replace, used inside WithContractTx
  - store/sqlstore: SQL implementation of Store
*/
package contracts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/lease-receivables/billing"
)

// =============================================================================
// CONTRACT RECORDS
// =============================================================================

// Lease is a stored lease contract.
//
// CustomerName is copied from the customer directory when CustomerCode is
// set. The payment statuses track what is owed to the sales and service
// companies; they default to UNPAID.
type Lease struct {
	Code                 billing.ContractCode  `db:"contract_code" validate:"required,max=50"`
	CustomerCode         string                `db:"customer_code" validate:"max=50"`
	CustomerName         string                `db:"customer_name" validate:"required_without=CustomerCode,max=200"`
	StartDate            billing.Date          `db:"start_date" validate:"required"`
	Model                string                `db:"model" validate:"max=100"`
	Quantity             int                   `db:"quantity" validate:"gte=1"`
	MonthlyRent          decimal.Decimal       `db:"monthly_rent" validate:"money"`
	PaymentCycleMonths   int                   `db:"payment_cycle_months" validate:"gte=1"`
	Overprint            string                `db:"overprint"`
	ContractMonths       int                   `db:"contract_months" validate:"gte=0,lte=1200"`
	SalesCompanyCode     string                `db:"sales_company_code" validate:"max=50"`
	SalesAmount          decimal.Decimal       `db:"sales_amount" validate:"money"`
	SalesPaymentStatus   billing.PaymentStatus `db:"sales_payment_status" validate:"omitempty,oneof=UNPAID PARTIAL PAID"`
	ServiceCompanyCode   string                `db:"service_company_code" validate:"max=50"`
	ServiceAmount        decimal.Decimal       `db:"service_amount" validate:"money"`
	ServicePaymentStatus billing.PaymentStatus `db:"service_payment_status" validate:"omitempty,oneof=UNPAID PARTIAL PAID"`
}

// Billing returns the snapshot the schedule generator reads.
func (l Lease) Billing() billing.LeaseContract {
	return billing.LeaseContract{
		Code:               l.Code,
		CustomerCode:       l.CustomerCode,
		CustomerName:       l.CustomerName,
		StartDate:          l.StartDate,
		MonthlyRent:        l.MonthlyRent,
		PaymentCycleMonths: l.PaymentCycleMonths,
		ContractMonths:     l.ContractMonths,
	}
}

// billingChanged reports whether any field copied into the schedule differs.
func (l Lease) billingChanged(other Lease) bool {
	a, b := l.Billing(), other.Billing()
	return a.CustomerCode != b.CustomerCode ||
		a.CustomerName != b.CustomerName ||
		!a.StartDate.Equal(b.StartDate) ||
		!a.MonthlyRent.Equal(b.MonthlyRent) ||
		a.PaymentCycleMonths != b.PaymentCycleMonths ||
		a.ContractMonths != b.ContractMonths
}

// Buyout is a stored buyout contract. Directory snapshots and payable
// statuses behave as on Lease.
type Buyout struct {
	Code                 billing.ContractCode  `db:"contract_code" validate:"required,max=50"`
	CustomerCode         string                `db:"customer_code" validate:"max=50"`
	CustomerName         string                `db:"customer_name" validate:"required_without=CustomerCode,max=200"`
	DealDate             billing.Date          `db:"deal_date" validate:"required"`
	DealAmount           decimal.Decimal       `db:"deal_amount" validate:"money"`
	SalesCompanyCode     string                `db:"sales_company_code" validate:"max=50"`
	SalesAmount          decimal.Decimal       `db:"sales_amount" validate:"money"`
	SalesPaymentStatus   billing.PaymentStatus `db:"sales_payment_status" validate:"omitempty,oneof=UNPAID PARTIAL PAID"`
	ServiceCompanyCode   string                `db:"service_company_code" validate:"max=50"`
	ServiceAmount        decimal.Decimal       `db:"service_amount" validate:"money"`
	ServicePaymentStatus billing.PaymentStatus `db:"service_payment_status" validate:"omitempty,oneof=UNPAID PARTIAL PAID"`
}

// Billing returns the snapshot the buyout generator reads.
func (b Buyout) Billing() billing.BuyoutContract {
	return billing.BuyoutContract{
		Code:         b.Code,
		CustomerCode: b.CustomerCode,
		CustomerName: b.CustomerName,
		DealDate:     b.DealDate,
		DealAmount:   b.DealAmount,
	}
}

// billingChanged reports whether any field copied into the receivable differs.
func (b Buyout) billingChanged(other Buyout) bool {
	return b.CustomerCode != other.CustomerCode ||
		b.CustomerName != other.CustomerName ||
		!b.DealDate.Equal(other.DealDate) ||
		!b.DealAmount.Equal(other.DealAmount)
}

// =============================================================================
// COLLECTION UPDATE
// =============================================================================

// CollectionUpdate addresses one receivable and carries its new collection
// fields. An empty PaymentStatus is derived from the amounts.
type CollectionUpdate struct {
	Kind           billing.ContractKind
	Code           billing.ContractCode
	Seq            int
	Fee            decimal.Decimal
	ReceivedAmount decimal.Decimal
	PaymentStatus  billing.PaymentStatus
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Store is the persistence boundary of the contract workflow.
// Lookups of a missing contract return billing.ErrContractNotFound.
type Store interface {
	billing.TxScheduleStore

	GetLease(ctx context.Context, code billing.ContractCode) (Lease, error)
	ListLeases(ctx context.Context) ([]Lease, error)
	GetBuyout(ctx context.Context, code billing.ContractCode) (Buyout, error)
	ListBuyouts(ctx context.Context) ([]Buyout, error)

	// Directory reads. Missing codes return billing.ErrCustomerNotFound
	// and billing.ErrCompanyNotFound.
	GetCustomer(ctx context.Context, code string) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	GetCompany(ctx context.Context, code string) (Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)

	// ReceivablesInMonth returns lease receivables whose start date and
	// buyout receivables whose deal date fall in the month.
	ReceivablesInMonth(ctx context.Context, year int, month time.Month) ([]billing.Entry, error)

	// WithContractTx runs fn in one transaction. fn's error rolls back.
	WithContractTx(ctx context.Context, fn func(Tx) error) error

	// Reset removes every contract, receivable and directory entry.
	Reset(ctx context.Context) error
}

// Tx is the write side, valid only inside WithContractTx.
type Tx interface {
	billing.ScheduleStore

	GetLease(ctx context.Context, code billing.ContractCode) (Lease, error)
	GetBuyout(ctx context.Context, code billing.ContractCode) (Buyout, error)

	// InsertLease returns billing.ErrDuplicateContract if the code exists.
	InsertLease(ctx context.Context, l Lease) error
	// UpdateLease returns billing.ErrContractNotFound if the code is unknown.
	UpdateLease(ctx context.Context, l Lease) error
	DeleteLease(ctx context.Context, code billing.ContractCode) error

	InsertBuyout(ctx context.Context, b Buyout) error
	UpdateBuyout(ctx context.Context, b Buyout) error
	DeleteBuyout(ctx context.Context, code billing.ContractCode) error

	// UpdateCollection returns billing.ErrReceivableNotFound when
	// (kind, code, seq) matches nothing.
	UpdateCollection(ctx context.Context, kind billing.ContractKind, code billing.ContractCode, seq int, c billing.Collection) error

	GetCustomer(ctx context.Context, code string) (Customer, error)
	// InsertCustomer returns billing.ErrDuplicateCustomer if the code exists.
	InsertCustomer(ctx context.Context, c Customer) error
	UpdateCustomer(ctx context.Context, c Customer) error
	DeleteCustomer(ctx context.Context, code string) error
	// CountCustomerContracts counts leases and buyouts naming the customer.
	CountCustomerContracts(ctx context.Context, code string) (int, error)

	GetCompany(ctx context.Context, code string) (Company, error)
	// InsertCompany returns billing.ErrDuplicateCompany if the code exists.
	InsertCompany(ctx context.Context, c Company) error
	UpdateCompany(ctx context.Context, c Company) error
	DeleteCompany(ctx context.Context, code string) error
	// CountCompanyContracts counts leases and buyouts naming the company as
	// either sales or service company.
	CountCompanyContracts(ctx context.Context, code string) (int, error)
}
