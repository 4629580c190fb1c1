package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/warp/lease-receivables/billing"
	"github.com/warp/lease-receivables/contracts"
)

// =============================================================================
// ROW MAPPING
// =============================================================================

const (
	leaseColumns = `contract_code, customer_code, customer_name, start_date, model, quantity,
		monthly_rent, payment_cycle_months, overprint, contract_months,
		sales_company_code, sales_amount, sales_payment_status,
		service_company_code, service_amount, service_payment_status`

	buyoutColumns = `contract_code, customer_code, customer_name, deal_date, deal_amount,
		sales_company_code, sales_amount, sales_payment_status,
		service_company_code, service_amount, service_payment_status`

	customerColumns = `customer_code, name, contact_name, mobile, phone, address, email,
		tax_id, sales_rep_name, remark`

	companyColumns = `company_code, name, contact_name, mobile, phone, address, email,
		tax_id, sales_rep, is_sales, is_service`

	leaseARColumns = `contract_code, seq, customer_code, customer_name, start_date, end_date,
		total_rent, fee, received_amount, payment_status`

	buyoutARColumns = `contract_code, seq, customer_code, customer_name, deal_date,
		total_amount, fee, received_amount, payment_status`
)

type leaseARRow struct {
	ContractCode   string          `db:"contract_code"`
	Seq            int             `db:"seq"`
	CustomerCode   string          `db:"customer_code"`
	CustomerName   string          `db:"customer_name"`
	StartDate      billing.Date    `db:"start_date"`
	EndDate        billing.Date    `db:"end_date"`
	TotalRent      decimal.Decimal `db:"total_rent"`
	Fee            decimal.Decimal `db:"fee"`
	ReceivedAmount decimal.Decimal `db:"received_amount"`
	PaymentStatus  string          `db:"payment_status"`
}

func leaseARRowOf(r billing.LeaseReceivable) leaseARRow {
	return leaseARRow{
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
	}
}

func (row leaseARRow) receivable() billing.LeaseReceivable {
	return billing.LeaseReceivable{
		ContractCode: billing.ContractCode(row.ContractCode),
		Seq:          row.Seq,
		CustomerCode: row.CustomerCode,
		CustomerName: row.CustomerName,
		StartDate:    row.StartDate,
		EndDate:      row.EndDate,
		TotalRent:    row.TotalRent,
		Collection: billing.Collection{
			Fee:            row.Fee,
			ReceivedAmount: row.ReceivedAmount,
			PaymentStatus:  billing.PaymentStatus(row.PaymentStatus),
		},
	}
}

type buyoutARRow struct {
	ContractCode   string          `db:"contract_code"`
	Seq            int             `db:"seq"`
	CustomerCode   string          `db:"customer_code"`
	CustomerName   string          `db:"customer_name"`
	DealDate       billing.Date    `db:"deal_date"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Fee            decimal.Decimal `db:"fee"`
	ReceivedAmount decimal.Decimal `db:"received_amount"`
	PaymentStatus  string          `db:"payment_status"`
}

func buyoutARRowOf(r billing.BuyoutReceivable) buyoutARRow {
	return buyoutARRow{
		ContractCode:   string(r.ContractCode),
		Seq:            r.Seq,
		CustomerCode:   r.CustomerCode,
		CustomerName:   r.CustomerName,
		DealDate:       r.DealDate,
		TotalAmount:    r.TotalAmount,
		Fee:            r.Fee,
		ReceivedAmount: r.ReceivedAmount,
		PaymentStatus:  string(r.PaymentStatus),
	}
}

func (row buyoutARRow) receivable() billing.BuyoutReceivable {
	return billing.BuyoutReceivable{
		ContractCode: billing.ContractCode(row.ContractCode),
		Seq:          row.Seq,
		CustomerCode: row.CustomerCode,
		CustomerName: row.CustomerName,
		DealDate:     row.DealDate,
		TotalAmount:  row.TotalAmount,
		Collection: billing.Collection{
			Fee:            row.Fee,
			ReceivedAmount: row.ReceivedAmount,
			PaymentStatus:  billing.PaymentStatus(row.PaymentStatus),
		},
	}
}

func arTable(kind billing.ContractKind) (string, error) {
	switch kind {
	case billing.KindLease:
		return "ar_leasing", nil
	case billing.KindBuyout:
		return "ar_buyout", nil
	}
	return "", fmt.Errorf("unknown contract kind %q: %w", kind, billing.ErrInvalidArgument)
}

// =============================================================================
// RECEIVABLES
// =============================================================================

func deleteReceivables(ctx context.Context, q queryer, kind billing.ContractKind, code billing.ContractCode) (int, error) {
	table, err := arTable(kind)
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, q.Rebind("DELETE FROM "+table+" WHERE contract_code = ?"), code)
	if err != nil {
		return 0, billing.Persistence("delete receivables", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, billing.Persistence("delete receivables", err)
	}
	return int(n), nil
}

func insertLeaseReceivables(ctx context.Context, q queryer, recs []billing.LeaseReceivable) (int, error) {
	query := `
		INSERT INTO ar_leasing
		(contract_code, seq, customer_code, customer_name, start_date, end_date,
		 total_rent, fee, received_amount, payment_status)
		VALUES (:contract_code, :seq, :customer_code, :customer_name, :start_date, :end_date,
		 :total_rent, :fee, :received_amount, :payment_status)
	`
	for _, r := range recs {
		if _, err := q.NamedExecContext(ctx, query, leaseARRowOf(r)); err != nil {
			return 0, billing.Persistence(fmt.Sprintf("insert lease receivable %s#%d", r.ContractCode, r.Seq), err)
		}
	}
	return len(recs), nil
}

func insertBuyoutReceivables(ctx context.Context, q queryer, recs []billing.BuyoutReceivable) (int, error) {
	query := `
		INSERT INTO ar_buyout
		(contract_code, seq, customer_code, customer_name, deal_date,
		 total_amount, fee, received_amount, payment_status)
		VALUES (:contract_code, :seq, :customer_code, :customer_name, :deal_date,
		 :total_amount, :fee, :received_amount, :payment_status)
	`
	for _, r := range recs {
		if _, err := q.NamedExecContext(ctx, query, buyoutARRowOf(r)); err != nil {
			return 0, billing.Persistence(fmt.Sprintf("insert buyout receivable %s#%d", r.ContractCode, r.Seq), err)
		}
	}
	return len(recs), nil
}

func loadLeaseReceivables(ctx context.Context, q queryer, code billing.ContractCode) ([]billing.LeaseReceivable, error) {
	var rows []leaseARRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(
		"SELECT "+leaseARColumns+" FROM ar_leasing WHERE contract_code = ? ORDER BY seq"), code); err != nil {
		return nil, billing.Persistence("load lease receivables", err)
	}
	recs := make([]billing.LeaseReceivable, len(rows))
	for i, row := range rows {
		recs[i] = row.receivable()
	}
	return recs, nil
}

func loadBuyoutReceivables(ctx context.Context, q queryer, code billing.ContractCode) ([]billing.BuyoutReceivable, error) {
	var rows []buyoutARRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(
		"SELECT "+buyoutARColumns+" FROM ar_buyout WHERE contract_code = ? ORDER BY seq"), code); err != nil {
		return nil, billing.Persistence("load buyout receivables", err)
	}
	recs := make([]billing.BuyoutReceivable, len(rows))
	for i, row := range rows {
		recs[i] = row.receivable()
	}
	return recs, nil
}

// updateCollection touches only fee, received_amount and payment_status.
func updateCollection(ctx context.Context, q queryer, kind billing.ContractKind, code billing.ContractCode, seq int, c billing.Collection) error {
	table, err := arTable(kind)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE `+table+`
		SET fee = ?, received_amount = ?, payment_status = ?
		WHERE contract_code = ? AND seq = ?
	`), c.Fee, c.ReceivedAmount, string(c.PaymentStatus), code, seq)
	if err != nil {
		return billing.Persistence("update collection", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return billing.Persistence("update collection", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s#%d: %w", kind, code, seq, billing.ErrReceivableNotFound)
	}
	return nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

func getLease(ctx context.Context, q queryer, code billing.ContractCode) (contracts.Lease, error) {
	var l contracts.Lease
	err := sqlx.GetContext(ctx, q, &l, q.Rebind(
		"SELECT "+leaseColumns+" FROM contracts_leasing WHERE contract_code = ?"), code)
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("lease %s: %w", code, billing.ErrContractNotFound)
	}
	if err != nil {
		return l, billing.Persistence("get lease", err)
	}
	return l, nil
}

func getBuyout(ctx context.Context, q queryer, code billing.ContractCode) (contracts.Buyout, error) {
	var b contracts.Buyout
	err := sqlx.GetContext(ctx, q, &b, q.Rebind(
		"SELECT "+buyoutColumns+" FROM contracts_buyout WHERE contract_code = ?"), code)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("buyout %s: %w", code, billing.ErrContractNotFound)
	}
	if err != nil {
		return b, billing.Persistence("get buyout", err)
	}
	return b, nil
}

func insertLease(ctx context.Context, q queryer, l contracts.Lease) error {
	_, err := q.NamedExecContext(ctx, `
		INSERT INTO contracts_leasing
		(contract_code, customer_code, customer_name, start_date, model, quantity,
		 monthly_rent, payment_cycle_months, overprint, contract_months,
		 sales_company_code, sales_amount, sales_payment_status,
		 service_company_code, service_amount, service_payment_status)
		VALUES (:contract_code, :customer_code, :customer_name, :start_date, :model, :quantity,
		 :monthly_rent, :payment_cycle_months, :overprint, :contract_months,
		 :sales_company_code, :sales_amount, :sales_payment_status,
		 :service_company_code, :service_amount, :service_payment_status)
	`, l)
	if isUniqueViolation(err) {
		return fmt.Errorf("lease %s: %w", l.Code, billing.ErrDuplicateContract)
	}
	if err != nil {
		return billing.Persistence("insert lease", err)
	}
	return nil
}

func updateLease(ctx context.Context, q queryer, l contracts.Lease) error {
	res, err := q.NamedExecContext(ctx, `
		UPDATE contracts_leasing SET
			customer_code = :customer_code,
			customer_name = :customer_name,
			start_date = :start_date,
			model = :model,
			quantity = :quantity,
			monthly_rent = :monthly_rent,
			payment_cycle_months = :payment_cycle_months,
			overprint = :overprint,
			contract_months = :contract_months,
			sales_company_code = :sales_company_code,
			sales_amount = :sales_amount,
			sales_payment_status = :sales_payment_status,
			service_company_code = :service_company_code,
			service_amount = :service_amount,
			service_payment_status = :service_payment_status
		WHERE contract_code = :contract_code
	`, l)
	return checkUpdated(res, err, "update lease", l.Code)
}

func insertBuyout(ctx context.Context, q queryer, b contracts.Buyout) error {
	_, err := q.NamedExecContext(ctx, `
		INSERT INTO contracts_buyout
		(contract_code, customer_code, customer_name, deal_date, deal_amount,
		 sales_company_code, sales_amount, sales_payment_status,
		 service_company_code, service_amount, service_payment_status)
		VALUES (:contract_code, :customer_code, :customer_name, :deal_date, :deal_amount,
		 :sales_company_code, :sales_amount, :sales_payment_status,
		 :service_company_code, :service_amount, :service_payment_status)
	`, b)
	if isUniqueViolation(err) {
		return fmt.Errorf("buyout %s: %w", b.Code, billing.ErrDuplicateContract)
	}
	if err != nil {
		return billing.Persistence("insert buyout", err)
	}
	return nil
}

func updateBuyout(ctx context.Context, q queryer, b contracts.Buyout) error {
	res, err := q.NamedExecContext(ctx, `
		UPDATE contracts_buyout SET
			customer_code = :customer_code,
			customer_name = :customer_name,
			deal_date = :deal_date,
			deal_amount = :deal_amount,
			sales_company_code = :sales_company_code,
			sales_amount = :sales_amount,
			sales_payment_status = :sales_payment_status,
			service_company_code = :service_company_code,
			service_amount = :service_amount,
			service_payment_status = :service_payment_status
		WHERE contract_code = :contract_code
	`, b)
	return checkUpdated(res, err, "update buyout", b.Code)
}

func deleteContract(ctx context.Context, q queryer, table string, code billing.ContractCode) error {
	res, err := q.ExecContext(ctx, q.Rebind("DELETE FROM "+table+" WHERE contract_code = ?"), code)
	return checkUpdated(res, err, "delete from "+table, code)
}

// checkUpdated maps zero affected rows to ErrContractNotFound.
func checkUpdated(res sql.Result, err error, op string, code billing.ContractCode) error {
	return checkAffected(res, err, op, string(code), billing.ErrContractNotFound)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func getCustomer(ctx context.Context, q queryer, code string) (contracts.Customer, error) {
	var c contracts.Customer
	err := sqlx.GetContext(ctx, q, &c, q.Rebind(
		"SELECT "+customerColumns+" FROM customers WHERE customer_code = ?"), code)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("customer %s: %w", code, billing.ErrCustomerNotFound)
	}
	if err != nil {
		return c, billing.Persistence("get customer", err)
	}
	return c, nil
}

func insertCustomer(ctx context.Context, q queryer, c contracts.Customer) error {
	_, err := q.NamedExecContext(ctx, `
		INSERT INTO customers (`+customerColumns+`)
		VALUES (:customer_code, :name, :contact_name, :mobile, :phone, :address, :email,
		 :tax_id, :sales_rep_name, :remark)
	`, c)
	if isUniqueViolation(err) {
		return fmt.Errorf("customer %s: %w", c.Code, billing.ErrDuplicateCustomer)
	}
	if err != nil {
		return billing.Persistence("insert customer", err)
	}
	return nil
}

func updateCustomer(ctx context.Context, q queryer, c contracts.Customer) error {
	res, err := q.NamedExecContext(ctx, `
		UPDATE customers SET
			name = :name,
			contact_name = :contact_name,
			mobile = :mobile,
			phone = :phone,
			address = :address,
			email = :email,
			tax_id = :tax_id,
			sales_rep_name = :sales_rep_name,
			remark = :remark
		WHERE customer_code = :customer_code
	`, c)
	return checkAffected(res, err, "update customer", c.Code, billing.ErrCustomerNotFound)
}

func getCompany(ctx context.Context, q queryer, code string) (contracts.Company, error) {
	var c contracts.Company
	err := sqlx.GetContext(ctx, q, &c, q.Rebind(
		"SELECT "+companyColumns+" FROM companies WHERE company_code = ?"), code)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("company %s: %w", code, billing.ErrCompanyNotFound)
	}
	if err != nil {
		return c, billing.Persistence("get company", err)
	}
	return c, nil
}

func insertCompany(ctx context.Context, q queryer, c contracts.Company) error {
	_, err := q.NamedExecContext(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES (:company_code, :name, :contact_name, :mobile, :phone, :address, :email,
		 :tax_id, :sales_rep, :is_sales, :is_service)
	`, c)
	if isUniqueViolation(err) {
		return fmt.Errorf("company %s: %w", c.Code, billing.ErrDuplicateCompany)
	}
	if err != nil {
		return billing.Persistence("insert company", err)
	}
	return nil
}

func updateCompany(ctx context.Context, q queryer, c contracts.Company) error {
	res, err := q.NamedExecContext(ctx, `
		UPDATE companies SET
			name = :name,
			contact_name = :contact_name,
			mobile = :mobile,
			phone = :phone,
			address = :address,
			email = :email,
			tax_id = :tax_id,
			sales_rep = :sales_rep,
			is_sales = :is_sales,
			is_service = :is_service
		WHERE company_code = :company_code
	`, c)
	return checkAffected(res, err, "update company", c.Code, billing.ErrCompanyNotFound)
}

func deleteDirectoryEntry(ctx context.Context, q queryer, table, keyColumn, code string, notFound error) error {
	res, err := q.ExecContext(ctx, q.Rebind("DELETE FROM "+table+" WHERE "+keyColumn+" = ?"), code)
	return checkAffected(res, err, "delete from "+table, code, notFound)
}

// countContracts counts leases and buyouts matching where.
func countContracts(ctx context.Context, q queryer, where string, args ...any) (int, error) {
	var total int
	for _, table := range []string{"contracts_leasing", "contracts_buyout"} {
		var n int
		if err := sqlx.GetContext(ctx, q, &n, q.Rebind(
			"SELECT COUNT(*) FROM "+table+" WHERE "+where), args...); err != nil {
			return 0, billing.Persistence("count "+table, err)
		}
		total += n
	}
	return total, nil
}

// checkAffected maps zero affected rows to notFound.
func checkAffected(res sql.Result, err error, op, code string, notFound error) error {
	if err != nil {
		return billing.Persistence(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return billing.Persistence(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, code, notFound)
	}
	return nil
}
