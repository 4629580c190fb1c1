/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the contract records and receivables from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients (some double as request bodies)
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY AND DATES:
  Money is decimal.Decimal and serializes as a JSON string ("1500.50").
  Numbers are accepted on input. Dates are "YYYY-MM-DD".

TYPES:
  Contracts:   LeaseDTO, BuyoutDTO, DeleteResponse
  Receivables: LeaseReceivableDTO, BuyoutReceivableDTO
  Statement:   EntryDTO, SummaryDTO, StatementResponse, StatementQuery
  Collection:  CollectionRequest
  Preview:     PreviewResponse
  Payables:    PayableDTO, PayableRequest, PayableQuery
  Directory:   CustomerDTO, CompanyDTO
  Scenarios:   ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request shapes carry validator tags and are checked in handlers. Contract
  fields are validated once, by contracts.Service.

SEE ALSO:
  - handlers.go: Uses these types
  - contracts/types.go: Lease, Buyout
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/lease-receivables/billing"
	"github.com/warp/lease-receivables/contracts"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// LeaseDTO is a lease contract in requests and responses.
type LeaseDTO struct {
	ContractCode       string          `json:"contract_code"`
	CustomerCode       string          `json:"customer_code"`
	CustomerName       string          `json:"customer_name"`
	StartDate          billing.Date    `json:"start_date"`
	Model              string          `json:"model"`
	Quantity           int             `json:"quantity"`
	MonthlyRent        decimal.Decimal `json:"monthly_rent"`
	PaymentCycleMonths int             `json:"payment_cycle_months"`
	Overprint          string          `json:"overprint"`
	ContractMonths     int             `json:"contract_months"`
	SalesCompanyCode   string          `json:"sales_company_code"`
	SalesAmount        decimal.Decimal `json:"sales_amount"`
	SalesStatus        string          `json:"sales_payment_status,omitempty"`
	ServiceCompanyCode string          `json:"service_company_code"`
	ServiceAmount      decimal.Decimal `json:"service_amount"`
	ServiceStatus      string          `json:"service_payment_status,omitempty"`
}

func (d LeaseDTO) toLease() contracts.Lease {
	return contracts.Lease{
		Code:                 billing.ContractCode(d.ContractCode),
		CustomerCode:         d.CustomerCode,
		CustomerName:         d.CustomerName,
		StartDate:            d.StartDate,
		Model:                d.Model,
		Quantity:             d.Quantity,
		MonthlyRent:          d.MonthlyRent,
		PaymentCycleMonths:   d.PaymentCycleMonths,
		Overprint:            d.Overprint,
		ContractMonths:       d.ContractMonths,
		SalesCompanyCode:     d.SalesCompanyCode,
		SalesAmount:          d.SalesAmount,
		SalesPaymentStatus:   billing.PaymentStatus(d.SalesStatus),
		ServiceCompanyCode:   d.ServiceCompanyCode,
		ServiceAmount:        d.ServiceAmount,
		ServicePaymentStatus: billing.PaymentStatus(d.ServiceStatus),
	}
}

func leaseDTO(l contracts.Lease) LeaseDTO {
	return LeaseDTO{
		ContractCode:       string(l.Code),
		CustomerCode:       l.CustomerCode,
		CustomerName:       l.CustomerName,
		StartDate:          l.StartDate,
		Model:              l.Model,
		Quantity:           l.Quantity,
		MonthlyRent:        l.MonthlyRent,
		PaymentCycleMonths: l.PaymentCycleMonths,
		Overprint:          l.Overprint,
		ContractMonths:     l.ContractMonths,
		SalesCompanyCode:   l.SalesCompanyCode,
		SalesAmount:        l.SalesAmount,
		SalesStatus:        string(l.SalesPaymentStatus),
		ServiceCompanyCode: l.ServiceCompanyCode,
		ServiceAmount:      l.ServiceAmount,
		ServiceStatus:      string(l.ServicePaymentStatus),
	}
}

// BuyoutDTO is a buyout contract in requests and responses.
type BuyoutDTO struct {
	ContractCode       string          `json:"contract_code"`
	CustomerCode       string          `json:"customer_code"`
	CustomerName       string          `json:"customer_name"`
	DealDate           billing.Date    `json:"deal_date"`
	DealAmount         decimal.Decimal `json:"deal_amount"`
	SalesCompanyCode   string          `json:"sales_company_code"`
	SalesAmount        decimal.Decimal `json:"sales_amount"`
	SalesStatus        string          `json:"sales_payment_status,omitempty"`
	ServiceCompanyCode string          `json:"service_company_code"`
	ServiceAmount      decimal.Decimal `json:"service_amount"`
	ServiceStatus      string          `json:"service_payment_status,omitempty"`
}

func (d BuyoutDTO) toBuyout() contracts.Buyout {
	return contracts.Buyout{
		Code:                 billing.ContractCode(d.ContractCode),
		CustomerCode:         d.CustomerCode,
		CustomerName:         d.CustomerName,
		DealDate:             d.DealDate,
		DealAmount:           d.DealAmount,
		SalesCompanyCode:     d.SalesCompanyCode,
		SalesAmount:          d.SalesAmount,
		SalesPaymentStatus:   billing.PaymentStatus(d.SalesStatus),
		ServiceCompanyCode:   d.ServiceCompanyCode,
		ServiceAmount:        d.ServiceAmount,
		ServicePaymentStatus: billing.PaymentStatus(d.ServiceStatus),
	}
}

func buyoutDTO(b contracts.Buyout) BuyoutDTO {
	return BuyoutDTO{
		ContractCode:       string(b.Code),
		CustomerCode:       b.CustomerCode,
		CustomerName:       b.CustomerName,
		DealDate:           b.DealDate,
		DealAmount:         b.DealAmount,
		SalesCompanyCode:   b.SalesCompanyCode,
		SalesAmount:        b.SalesAmount,
		SalesStatus:        string(b.SalesPaymentStatus),
		ServiceCompanyCode: b.ServiceCompanyCode,
		ServiceAmount:      b.ServiceAmount,
		ServiceStatus:      string(b.ServicePaymentStatus),
	}
}

// DeleteResponse reports a removed contract.
type DeleteResponse struct {
	ContractCode       string `json:"contract_code"`
	ReceivablesRemoved int    `json:"receivables_removed"`
}

// =============================================================================
// RECEIVABLES
// =============================================================================

// LeaseReceivableDTO is one billing period of a lease.
type LeaseReceivableDTO struct {
	ContractCode   string          `json:"contract_code"`
	Seq            int             `json:"seq"`
	CustomerCode   string          `json:"customer_code"`
	CustomerName   string          `json:"customer_name"`
	StartDate      billing.Date    `json:"start_date"`
	EndDate        billing.Date    `json:"end_date"`
	TotalRent      decimal.Decimal `json:"total_rent"`
	Fee            decimal.Decimal `json:"fee"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	PaymentStatus  string          `json:"payment_status"`
	Outstanding    decimal.Decimal `json:"outstanding"`
}

func leaseReceivableDTOs(recs []billing.LeaseReceivable) []LeaseReceivableDTO {
	dtos := make([]LeaseReceivableDTO, len(recs))
	for i, r := range recs {
		dtos[i] = LeaseReceivableDTO{
			ContractCode:   string(r.ContractCode),
			Seq:            r.Seq,
			CustomerCode:   r.CustomerCode,
			CustomerName:   r.CustomerName,
			StartDate:      r.StartDate,
			EndDate:        r.EndDate,
			TotalRent:      r.TotalRent,
			Fee:            r.Fee,
			ReceivedAmount: r.ReceivedAmount,
			PaymentStatus:  string(r.PaymentStatus),
			Outstanding:    r.Outstanding(),
		}
	}
	return dtos
}

// BuyoutReceivableDTO is the receivable of a buyout.
type BuyoutReceivableDTO struct {
	ContractCode   string          `json:"contract_code"`
	Seq            int             `json:"seq"`
	CustomerCode   string          `json:"customer_code"`
	CustomerName   string          `json:"customer_name"`
	DealDate       billing.Date    `json:"deal_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Fee            decimal.Decimal `json:"fee"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	PaymentStatus  string          `json:"payment_status"`
	Outstanding    decimal.Decimal `json:"outstanding"`
}

func buyoutReceivableDTOs(recs []billing.BuyoutReceivable) []BuyoutReceivableDTO {
	dtos := make([]BuyoutReceivableDTO, len(recs))
	for i, r := range recs {
		dtos[i] = BuyoutReceivableDTO{
			ContractCode:   string(r.ContractCode),
			Seq:            r.Seq,
			CustomerCode:   r.CustomerCode,
			CustomerName:   r.CustomerName,
			DealDate:       r.DealDate,
			TotalAmount:    r.TotalAmount,
			Fee:            r.Fee,
			ReceivedAmount: r.ReceivedAmount,
			PaymentStatus:  string(r.PaymentStatus),
			Outstanding:    r.Outstanding(),
		}
	}
	return dtos
}

// =============================================================================
// STATEMENT
// =============================================================================

// StatementQuery is parsed from /api/receivables query parameters.
type StatementQuery struct {
	Year   int    `validate:"required,min=1,max=9999"`
	Month  int    `validate:"required,min=1,max=12"`
	Unpaid bool
	Search string `validate:"max=100"`
}

// EntryDTO is one row of the monthly listing. end_date is null for buyouts.
type EntryDTO struct {
	Kind           string          `json:"kind"`
	ContractCode   string          `json:"contract_code"`
	Seq            int             `json:"seq"`
	CustomerCode   string          `json:"customer_code"`
	CustomerName   string          `json:"customer_name"`
	Date           billing.Date    `json:"date"`
	EndDate        billing.Date    `json:"end_date"`
	Amount         decimal.Decimal `json:"amount"`
	Fee            decimal.Decimal `json:"fee"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	PaymentStatus  string          `json:"payment_status"`
	Outstanding    decimal.Decimal `json:"outstanding"`
}

func entryDTO(e billing.Entry) EntryDTO {
	return EntryDTO{
		Kind:           string(e.Kind),
		ContractCode:   string(e.ContractCode),
		Seq:            e.Seq,
		CustomerCode:   e.CustomerCode,
		CustomerName:   e.CustomerName,
		Date:           e.Date,
		EndDate:        e.EndDate,
		Amount:         e.Amount,
		Fee:            e.Fee,
		ReceivedAmount: e.ReceivedAmount,
		PaymentStatus:  string(e.PaymentStatus),
		Outstanding:    e.Outstanding(),
	}
}

// SummaryDTO totals a listing. Outstanding covers rows that are not PAID.
type SummaryDTO struct {
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalFee      decimal.Decimal `json:"total_fee"`
	TotalReceived decimal.Decimal `json:"total_received"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// StatementResponse is the monthly listing with its summary.
type StatementResponse struct {
	Year    int        `json:"year"`
	Month   int        `json:"month"`
	Entries []EntryDTO `json:"entries"`
	Summary SummaryDTO `json:"summary"`
}

func statementResponse(year, month int, st billing.Statement) StatementResponse {
	entries := make([]EntryDTO, len(st.Entries))
	for i, e := range st.Entries {
		entries[i] = entryDTO(e)
	}
	return StatementResponse{
		Year:    year,
		Month:   month,
		Entries: entries,
		Summary: SummaryDTO{
			Count:         st.Summary.Count,
			TotalAmount:   st.Summary.TotalAmount,
			TotalFee:      st.Summary.TotalFee,
			TotalReceived: st.Summary.TotalReceived,
			Outstanding:   st.Summary.Outstanding,
		},
	}
}

// =============================================================================
// COLLECTION
// =============================================================================

// CollectionRequest edits the collection fields of one receivable. An
// empty payment_status is derived from the amounts.
type CollectionRequest struct {
	Fee            decimal.Decimal `json:"fee"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	PaymentStatus  string          `json:"payment_status" validate:"omitempty,oneof=UNPAID PARTIAL PAID unpaid partial paid"`
}

// =============================================================================
// PAYABLES
// =============================================================================

// PayableQuery is parsed from /api/payables query parameters.
type PayableQuery struct {
	From    billing.Date
	To      billing.Date
	Status  string `validate:"omitempty,oneof=paid unpaid"`
	Company string `validate:"max=50"`
}

// PayableDTO is one sales or service amount owed by a contract.
type PayableDTO struct {
	Kind          string          `json:"kind"`
	ContractCode  string          `json:"contract_code"`
	CustomerCode  string          `json:"customer_code"`
	CustomerName  string          `json:"customer_name"`
	Date          billing.Date    `json:"date"`
	Party         string          `json:"party"`
	CompanyCode   string          `json:"company_code"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus string          `json:"payment_status"`
}

func payableDTO(p contracts.Payable) PayableDTO {
	return PayableDTO{
		Kind:          string(p.Kind),
		ContractCode:  string(p.ContractCode),
		CustomerCode:  p.CustomerCode,
		CustomerName:  p.CustomerName,
		Date:          p.Date,
		Party:         string(p.Party),
		CompanyCode:   p.CompanyCode,
		Amount:        p.Amount,
		PaymentStatus: string(p.PaymentStatus),
	}
}

// PayableRequest sets the status of one payable.
type PayableRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

// CustomerDTO is a customer directory entry.
type CustomerDTO struct {
	CustomerCode string `json:"customer_code"`
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	Mobile       string `json:"mobile"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Email        string `json:"email"`
	TaxID        string `json:"tax_id"`
	SalesRepName string `json:"sales_rep_name"`
	Remark       string `json:"remark"`
}

func (d CustomerDTO) toCustomer() contracts.Customer {
	return contracts.Customer{
		Code:         d.CustomerCode,
		Name:         d.Name,
		ContactName:  d.ContactName,
		Mobile:       d.Mobile,
		Phone:        d.Phone,
		Address:      d.Address,
		Email:        d.Email,
		TaxID:        d.TaxID,
		SalesRepName: d.SalesRepName,
		Remark:       d.Remark,
	}
}

func customerDTO(c contracts.Customer) CustomerDTO {
	return CustomerDTO{
		CustomerCode: c.Code,
		Name:         c.Name,
		ContactName:  c.ContactName,
		Mobile:       c.Mobile,
		Phone:        c.Phone,
		Address:      c.Address,
		Email:        c.Email,
		TaxID:        c.TaxID,
		SalesRepName: c.SalesRepName,
		Remark:       c.Remark,
	}
}

// CompanyDTO is a sales/service company directory entry.
type CompanyDTO struct {
	CompanyCode string `json:"company_code"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Mobile      string `json:"mobile"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	TaxID       string `json:"tax_id"`
	SalesRep    string `json:"sales_rep"`
	IsSales     bool   `json:"is_sales"`
	IsService   bool   `json:"is_service"`
}

func (d CompanyDTO) toCompany() contracts.Company {
	return contracts.Company{
		Code:        d.CompanyCode,
		Name:        d.Name,
		ContactName: d.ContactName,
		Mobile:      d.Mobile,
		Phone:       d.Phone,
		Address:     d.Address,
		Email:       d.Email,
		TaxID:       d.TaxID,
		SalesRep:    d.SalesRep,
		IsSales:     d.IsSales,
		IsService:   d.IsService,
	}
}

func companyDTO(c contracts.Company) CompanyDTO {
	return CompanyDTO{
		CompanyCode: c.Code,
		Name:        c.Name,
		ContactName: c.ContactName,
		Mobile:      c.Mobile,
		Phone:       c.Phone,
		Address:     c.Address,
		Email:       c.Email,
		TaxID:       c.TaxID,
		SalesRep:    c.SalesRep,
		IsSales:     c.IsSales,
		IsService:   c.IsService,
	}
}

// =============================================================================
// PREVIEW
// =============================================================================

// PreviewResponse is a lease schedule that was not stored.
type PreviewResponse struct {
	Periods []LeaseReceivableDTO `json:"periods"`
	Total   decimal.Decimal      `json:"total"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
