/*
store.go - Persistence boundary for receivable schedules

PURPOSE:
  The generators never touch storage. Callers persist a schedule through
  ScheduleStore, always as "delete everything for the contract, then insert
  the new set", inside one unit of work supplied by TxScheduleStore.

KEY INTERFACES:
  ScheduleStore:   delete/insert/load receivables for one contract
  TxScheduleStore: runs a function against a ScheduleStore atomically

ATOMICITY:
  WithTx commits only when fn returns nil. On error (or a cancelled
  context) nothing fn wrote is visible, so a reader never observes an empty
  or half-written schedule.

IMPLEMENTATIONS:
  - store/sqlstore: SQLite / PostgreSQL via sqlx
  - billing/store:  in-memory, for tests and local runs
*/
package billing

import "context"

// ScheduleStore persists receivables. Implementations wrap their own
// failures with ErrPersistence.
type ScheduleStore interface {
	// DeleteReceivables removes every receivable of the contract and
	// returns how many were removed.
	DeleteReceivables(ctx context.Context, kind ContractKind, code ContractCode) (int, error)

	// InsertLeaseReceivables writes the records and returns how many were written.
	InsertLeaseReceivables(ctx context.Context, recs []LeaseReceivable) (int, error)

	// InsertBuyoutReceivables writes the records and returns how many were written.
	InsertBuyoutReceivables(ctx context.Context, recs []BuyoutReceivable) (int, error)

	// LoadLeaseReceivables returns the schedule of a lease ordered by Seq.
	LoadLeaseReceivables(ctx context.Context, code ContractCode) ([]LeaseReceivable, error)

	// LoadBuyoutReceivables returns the receivables of a buyout ordered by Seq.
	LoadBuyoutReceivables(ctx context.Context, code ContractCode) ([]BuyoutReceivable, error)
}

// TxScheduleStore wraps ScheduleStore with transaction support.
type TxScheduleStore interface {
	ScheduleStore

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(ScheduleStore) error) error
}
