/*
Package sqlstore provides a SQL implementation of contracts.Store.

PURPOSE:
  Persists lease/buyout contracts and their receivable schedules. Runs on
  SQLite (default, embedded) or PostgreSQL (the production deployment) with
  the same queries; sqlx rebinds placeholders for the selected driver.

INTERFACES IMPLEMENTED:
  billing.TxScheduleStore: receivable delete/insert/load, WithTx
  contracts.Store:         contract and directory CRUD, monthly listing,
                           WithContractTx

KEY TABLES:
  contracts_leasing: lease contracts, keyed by contract_code
  contracts_buyout:  buyout contracts, keyed by contract_code
  ar_leasing:        one row per billing period, PRIMARY KEY (contract_code, seq)
  ar_buyout:         one row per buyout,          PRIMARY KEY (contract_code, seq)
  customers:         customer directory, keyed by customer_code
  companies:         sales/service company directory, keyed by company_code

REPLACE SEMANTICS:
  Receivables are never updated in place except for the collection fields.
  A schedule change is a DELETE of every row of the contract followed by an
  INSERT of the new set, in the same sqlx.Tx.

ERRORS:
  Driver failures are wrapped with billing.Persistence so callers can test
  errors.Is(err, billing.ErrPersistence) and still reach the driver error.
  A unique violation on an insert becomes billing.ErrDuplicateContract,
  ErrDuplicateCustomer or ErrDuplicateCompany.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite runs on a single connection;
  PostgreSQL relies on its own transaction isolation.

USAGE:
  store, err := sqlstore.New("sqlite3", "./data/receivables.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - contracts/types.go: Store and Tx interfaces
  - billing/store/memory.go: in-memory ScheduleStore for tests
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/lease-receivables/billing"
	"github.com/warp/lease-receivables/contracts"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store implements contracts.Store on top of sqlx.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

// New opens and migrates a database. For SQLite, dsn is a file path or
// ":memory:"; for PostgreSQL it is a lib/pq connection string.
func New(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_journal_mode=WAL"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewSQLite opens an SQLite database at path.
func NewSQLite(path string) (*Store, error) {
	return New(DriverSQLite, path)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.db.DriverName()
}

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
	CREATE TABLE IF NOT EXISTS customers (
		customer_code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact_name TEXT NOT NULL DEFAULT '',
		mobile TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		tax_id TEXT NOT NULL DEFAULT '',
		sales_rep_name TEXT NOT NULL DEFAULT '',
		remark TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS companies (
		company_code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact_name TEXT NOT NULL DEFAULT '',
		mobile TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		tax_id TEXT NOT NULL DEFAULT '',
		sales_rep TEXT NOT NULL DEFAULT '',
		is_sales BOOLEAN NOT NULL DEFAULT FALSE,
		is_service BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS contracts_leasing (
		contract_code TEXT PRIMARY KEY,
		customer_code TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL,
		start_date {{date}} NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 1,
		monthly_rent {{money}} NOT NULL,
		payment_cycle_months INTEGER NOT NULL,
		overprint TEXT NOT NULL DEFAULT '',
		contract_months INTEGER NOT NULL,
		sales_company_code TEXT NOT NULL DEFAULT '',
		sales_amount {{money}} NOT NULL DEFAULT 0,
		sales_payment_status TEXT NOT NULL DEFAULT 'UNPAID',
		service_company_code TEXT NOT NULL DEFAULT '',
		service_amount {{money}} NOT NULL DEFAULT 0,
		service_payment_status TEXT NOT NULL DEFAULT 'UNPAID'
	);

	CREATE TABLE IF NOT EXISTS contracts_buyout (
		contract_code TEXT PRIMARY KEY,
		customer_code TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL,
		deal_date {{date}} NOT NULL,
		deal_amount {{money}} NOT NULL,
		sales_company_code TEXT NOT NULL DEFAULT '',
		sales_amount {{money}} NOT NULL DEFAULT 0,
		sales_payment_status TEXT NOT NULL DEFAULT 'UNPAID',
		service_company_code TEXT NOT NULL DEFAULT '',
		service_amount {{money}} NOT NULL DEFAULT 0,
		service_payment_status TEXT NOT NULL DEFAULT 'UNPAID'
	);

	CREATE TABLE IF NOT EXISTS ar_leasing (
		contract_code TEXT NOT NULL,
		seq INTEGER NOT NULL,
		customer_code TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		start_date {{date}} NOT NULL,
		end_date {{date}} NOT NULL,
		total_rent {{money}} NOT NULL,
		fee {{money}} NOT NULL DEFAULT 0,
		received_amount {{money}} NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL DEFAULT 'UNPAID',
		PRIMARY KEY (contract_code, seq)
	);

	CREATE TABLE IF NOT EXISTS ar_buyout (
		contract_code TEXT NOT NULL,
		seq INTEGER NOT NULL,
		customer_code TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		deal_date {{date}} NOT NULL,
		total_amount {{money}} NOT NULL,
		fee {{money}} NOT NULL DEFAULT 0,
		received_amount {{money}} NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL DEFAULT 'UNPAID',
		PRIMARY KEY (contract_code, seq)
	);

	-- Delete guards count contracts by party
	CREATE INDEX IF NOT EXISTS idx_contracts_leasing_customer ON contracts_leasing(customer_code);
	CREATE INDEX IF NOT EXISTS idx_contracts_buyout_customer ON contracts_buyout(customer_code);

	-- Monthly listing filters on these
	CREATE INDEX IF NOT EXISTS idx_ar_leasing_start_date ON ar_leasing(start_date);
	CREATE INDEX IF NOT EXISTS idx_ar_buyout_deal_date ON ar_buyout(deal_date);
`

// migrate creates the database schema for the store's dialect. SQLite keeps
// money as decimal text; PostgreSQL rounds to NUMERIC(14,2), so callers only
// pass amounts with at most two decimal places.
func (s *Store) migrate() error {
	types := strings.NewReplacer("{{date}}", "TEXT", "{{money}}", "TEXT")
	if s.db.DriverName() == DriverPostgres {
		types = strings.NewReplacer("{{date}}", "DATE", "{{money}}", "NUMERIC(14,2)")
	}

	for _, stmt := range strings.Split(types.Replace(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// QUERY TARGET - *sqlx.DB outside a transaction, *sqlx.Tx inside one
// =============================================================================

type queryer interface {
	sqlx.ExtContext
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(billing.ScheduleStore) error) error {
	return s.withTx(ctx, func(ts *txStore) error { return fn(ts) })
}

// WithContractTx executes fn within a database transaction.
func (s *Store) WithContractTx(ctx context.Context, fn func(contracts.Tx) error) error {
	return s.withTx(ctx, func(ts *txStore) error { return fn(ts) })
}

func (s *Store) withTx(ctx context.Context, fn func(*txStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return billing.Persistence("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return billing.Persistence("commit transaction", err)
	}
	return nil
}

// txStore runs every statement on the open transaction.
type txStore struct {
	q queryer
}

func (ts *txStore) DeleteReceivables(ctx context.Context, kind billing.ContractKind, code billing.ContractCode) (int, error) {
	return deleteReceivables(ctx, ts.q, kind, code)
}

func (ts *txStore) InsertLeaseReceivables(ctx context.Context, recs []billing.LeaseReceivable) (int, error) {
	return insertLeaseReceivables(ctx, ts.q, recs)
}

func (ts *txStore) InsertBuyoutReceivables(ctx context.Context, recs []billing.BuyoutReceivable) (int, error) {
	return insertBuyoutReceivables(ctx, ts.q, recs)
}

func (ts *txStore) LoadLeaseReceivables(ctx context.Context, code billing.ContractCode) ([]billing.LeaseReceivable, error) {
	return loadLeaseReceivables(ctx, ts.q, code)
}

func (ts *txStore) LoadBuyoutReceivables(ctx context.Context, code billing.ContractCode) ([]billing.BuyoutReceivable, error) {
	return loadBuyoutReceivables(ctx, ts.q, code)
}

func (ts *txStore) GetLease(ctx context.Context, code billing.ContractCode) (contracts.Lease, error) {
	return getLease(ctx, ts.q, code)
}

func (ts *txStore) GetBuyout(ctx context.Context, code billing.ContractCode) (contracts.Buyout, error) {
	return getBuyout(ctx, ts.q, code)
}

func (ts *txStore) InsertLease(ctx context.Context, l contracts.Lease) error {
	return insertLease(ctx, ts.q, l)
}

func (ts *txStore) UpdateLease(ctx context.Context, l contracts.Lease) error {
	return updateLease(ctx, ts.q, l)
}

func (ts *txStore) DeleteLease(ctx context.Context, code billing.ContractCode) error {
	return deleteContract(ctx, ts.q, "contracts_leasing", code)
}

func (ts *txStore) InsertBuyout(ctx context.Context, b contracts.Buyout) error {
	return insertBuyout(ctx, ts.q, b)
}

func (ts *txStore) UpdateBuyout(ctx context.Context, b contracts.Buyout) error {
	return updateBuyout(ctx, ts.q, b)
}

func (ts *txStore) DeleteBuyout(ctx context.Context, code billing.ContractCode) error {
	return deleteContract(ctx, ts.q, "contracts_buyout", code)
}

func (ts *txStore) UpdateCollection(ctx context.Context, kind billing.ContractKind, code billing.ContractCode, seq int, c billing.Collection) error {
	return updateCollection(ctx, ts.q, kind, code, seq, c)
}

func (ts *txStore) GetCustomer(ctx context.Context, code string) (contracts.Customer, error) {
	return getCustomer(ctx, ts.q, code)
}

func (ts *txStore) InsertCustomer(ctx context.Context, c contracts.Customer) error {
	return insertCustomer(ctx, ts.q, c)
}

func (ts *txStore) UpdateCustomer(ctx context.Context, c contracts.Customer) error {
	return updateCustomer(ctx, ts.q, c)
}

func (ts *txStore) DeleteCustomer(ctx context.Context, code string) error {
	return deleteDirectoryEntry(ctx, ts.q, "customers", "customer_code", code, billing.ErrCustomerNotFound)
}

func (ts *txStore) CountCustomerContracts(ctx context.Context, code string) (int, error) {
	return countContracts(ctx, ts.q, "customer_code = ?", code)
}

func (ts *txStore) GetCompany(ctx context.Context, code string) (contracts.Company, error) {
	return getCompany(ctx, ts.q, code)
}

func (ts *txStore) InsertCompany(ctx context.Context, c contracts.Company) error {
	return insertCompany(ctx, ts.q, c)
}

func (ts *txStore) UpdateCompany(ctx context.Context, c contracts.Company) error {
	return updateCompany(ctx, ts.q, c)
}

func (ts *txStore) DeleteCompany(ctx context.Context, code string) error {
	return deleteDirectoryEntry(ctx, ts.q, "companies", "company_code", code, billing.ErrCompanyNotFound)
}

func (ts *txStore) CountCompanyContracts(ctx context.Context, code string) (int, error) {
	return countContracts(ctx, ts.q, "sales_company_code = ? OR service_company_code = ?", code, code)
}

// =============================================================================
// SCHEDULE STORE (billing.ScheduleStore outside a transaction)
// =============================================================================

func (s *Store) DeleteReceivables(ctx context.Context, kind billing.ContractKind, code billing.ContractCode) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteReceivables(ctx, s.db, kind, code)
}

// InsertLeaseReceivables writes all records atomically.
func (s *Store) InsertLeaseReceivables(ctx context.Context, recs []billing.LeaseReceivable) (int, error) {
	var n int
	err := s.withTx(ctx, func(ts *txStore) error {
		var err error
		n, err = ts.InsertLeaseReceivables(ctx, recs)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) InsertBuyoutReceivables(ctx context.Context, recs []billing.BuyoutReceivable) (int, error) {
	var n int
	err := s.withTx(ctx, func(ts *txStore) error {
		var err error
		n, err = ts.InsertBuyoutReceivables(ctx, recs)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) LoadLeaseReceivables(ctx context.Context, code billing.ContractCode) ([]billing.LeaseReceivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadLeaseReceivables(ctx, s.db, code)
}

func (s *Store) LoadBuyoutReceivables(ctx context.Context, code billing.ContractCode) ([]billing.BuyoutReceivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadBuyoutReceivables(ctx, s.db, code)
}

// =============================================================================
// CONTRACT READS
// =============================================================================

func (s *Store) GetLease(ctx context.Context, code billing.ContractCode) (contracts.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLease(ctx, s.db, code)
}

// ListLeases returns every lease ordered by contract code.
func (s *Store) ListLeases(ctx context.Context) ([]contracts.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leases := []contracts.Lease{}
	if err := sqlx.SelectContext(ctx, s.db, &leases,
		"SELECT "+leaseColumns+" FROM contracts_leasing ORDER BY contract_code"); err != nil {
		return nil, billing.Persistence("list leases", err)
	}
	return leases, nil
}

func (s *Store) GetBuyout(ctx context.Context, code billing.ContractCode) (contracts.Buyout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBuyout(ctx, s.db, code)
}

// ListBuyouts returns every buyout ordered by contract code.
func (s *Store) ListBuyouts(ctx context.Context) ([]contracts.Buyout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buyouts := []contracts.Buyout{}
	if err := sqlx.SelectContext(ctx, s.db, &buyouts,
		"SELECT "+buyoutColumns+" FROM contracts_buyout ORDER BY contract_code"); err != nil {
		return nil, billing.Persistence("list buyouts", err)
	}
	return buyouts, nil
}

// =============================================================================
// DIRECTORY READS
// =============================================================================

func (s *Store) GetCustomer(ctx context.Context, code string) (contracts.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCustomer(ctx, s.db, code)
}

// ListCustomers returns every customer ordered by code.
func (s *Store) ListCustomers(ctx context.Context) ([]contracts.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := []contracts.Customer{}
	if err := sqlx.SelectContext(ctx, s.db, &customers,
		"SELECT "+customerColumns+" FROM customers ORDER BY customer_code"); err != nil {
		return nil, billing.Persistence("list customers", err)
	}
	return customers, nil
}

func (s *Store) GetCompany(ctx context.Context, code string) (contracts.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCompany(ctx, s.db, code)
}

// ListCompanies returns every company ordered by code.
func (s *Store) ListCompanies(ctx context.Context) ([]contracts.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	companies := []contracts.Company{}
	if err := sqlx.SelectContext(ctx, s.db, &companies,
		"SELECT "+companyColumns+" FROM companies ORDER BY company_code"); err != nil {
		return nil, billing.Persistence("list companies", err)
	}
	return companies, nil
}

// =============================================================================
// MONTHLY LISTING
// =============================================================================

// ReceivablesInMonth returns the month's lease and buyout receivables,
// unordered. Dates compare as ISO text on SQLite and as DATE on PostgreSQL.
func (s *Store) ReceivablesInMonth(ctx context.Context, year int, month time.Month) ([]billing.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := billing.StartOfMonth(year, month)
	to := billing.EndOfMonth(year, month)

	var leaseRows []leaseARRow
	if err := sqlx.SelectContext(ctx, s.db, &leaseRows, s.db.Rebind(
		"SELECT "+leaseARColumns+" FROM ar_leasing WHERE start_date >= ? AND start_date <= ?"),
		from, to); err != nil {
		return nil, billing.Persistence("list lease receivables by month", err)
	}

	var buyoutRows []buyoutARRow
	if err := sqlx.SelectContext(ctx, s.db, &buyoutRows, s.db.Rebind(
		"SELECT "+buyoutARColumns+" FROM ar_buyout WHERE deal_date >= ? AND deal_date <= ?"),
		from, to); err != nil {
		return nil, billing.Persistence("list buyout receivables by month", err)
	}

	entries := make([]billing.Entry, 0, len(leaseRows)+len(buyoutRows))
	for _, r := range leaseRows {
		entries = append(entries, billing.LeaseEntry(r.receivable()))
	}
	for _, r := range buyoutRows {
		entries = append(entries, billing.BuyoutEntry(r.receivable()))
	}
	return entries, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(ts *txStore) error {
		tables := []string{"ar_leasing", "ar_buyout", "contracts_leasing", "contracts_buyout", "customers", "companies"}
		for _, table := range tables {
			if _, err := ts.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return billing.Persistence("reset "+table, err)
			}
		}
		return nil
	})
}

// isUniqueViolation recognises primary-key / unique failures from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
