/*
regenerate.go - Replace-on-edit policy for receivable schedules

PURPOSE:
  Every time a contract is created or edited its schedule is rebuilt from
  scratch: all existing receivables for the contract code are deleted and
  the freshly generated set is inserted, in one unit of work.

INVARIANTS:
  1. Generation runs before the unit of work opens. An InvalidArgument
     error therefore causes no delete and no insert.
  2. Delete + insert share one transaction. A failure anywhere rolls both
     back; the store's error is returned as is.
  3. Regenerating twice with the same snapshot yields the same records and
     the same count (no duplication).

COLLECTION STATE:
  With CollectionReplace (the default) fee / received_amount / status of
  the old records are discarded. CollectionCarryOver copies them onto new
  records whose start date matches an old record's start date.
*/
package billing

import (
	"context"
)

// Schedule is a generated set of receivables for one contract.
type Schedule interface {
	Kind() ContractKind
	Len() int
	persist(ctx context.Context, store ScheduleStore) (int, error)
}

// GenerateFunc produces the schedule to persist.
type GenerateFunc func() (Schedule, error)

// LeaseGenerator adapts GenerateLeaseSchedule to a GenerateFunc.
func LeaseGenerator(c LeaseContract) GenerateFunc {
	return func() (Schedule, error) {
		s, err := GenerateLeaseSchedule(c)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// BuyoutGenerator adapts GenerateBuyoutSchedule to a GenerateFunc.
func BuyoutGenerator(c BuyoutContract) GenerateFunc {
	return func() (Schedule, error) {
		r, err := GenerateBuyoutSchedule(c)
		if err != nil {
			return nil, err
		}
		return BuyoutSchedule{Receivable: r}, nil
	}
}

// =============================================================================
// COLLECTION POLICY
// =============================================================================

type CollectionPolicy string

const (
	CollectionReplace   CollectionPolicy = "replace"
	CollectionCarryOver CollectionPolicy = "carry_over"
)

// ParseCollectionPolicy defaults to CollectionReplace for an empty string.
func ParseCollectionPolicy(s string) (CollectionPolicy, error) {
	switch CollectionPolicy(s) {
	case "", CollectionReplace:
		return CollectionReplace, nil
	case CollectionCarryOver:
		return CollectionCarryOver, nil
	}
	return "", invalidArg("collection_policy", s, "must be replace or carry_over")
}

// =============================================================================
// REPLACE - delete then insert inside the caller's unit of work
// =============================================================================

// Replace deletes every receivable of code and inserts schedule in its place.
// store must already be transactional; use Regenerator.Regenerate otherwise.
// Returns the number of records inserted.
func Replace(ctx context.Context, store ScheduleStore, code ContractCode, schedule Schedule, policy CollectionPolicy) (int, error) {
	if err := checkOwner(code, schedule); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if policy == CollectionCarryOver {
		carried, err := carryOver(ctx, store, code, schedule)
		if err != nil {
			return 0, err
		}
		schedule = carried
	}

	if _, err := store.DeleteReceivables(ctx, schedule.Kind(), code); err != nil {
		return 0, err
	}
	return schedule.persist(ctx, store)
}

func checkOwner(code ContractCode, schedule Schedule) error {
	if code == "" {
		return invalidArg("contract_code", code, "is required")
	}
	switch s := schedule.(type) {
	case LeaseSchedule:
		for _, r := range s {
			if r.ContractCode != code {
				return invalidArg("contract_code", r.ContractCode, "record belongs to another contract")
			}
		}
	case BuyoutSchedule:
		if s.Receivable.ContractCode != code {
			return invalidArg("contract_code", s.Receivable.ContractCode, "record belongs to another contract")
		}
	case nil:
		return invalidArg("schedule", nil, "is required")
	}
	return nil
}

func carryOver(ctx context.Context, store ScheduleStore, code ContractCode, schedule Schedule) (Schedule, error) {
	switch s := schedule.(type) {
	case LeaseSchedule:
		old, err := store.LoadLeaseReceivables(ctx, code)
		if err != nil {
			return nil, err
		}
		byStart := make(map[string]Collection, len(old))
		for _, r := range old {
			byStart[r.StartDate.String()] = r.Collection
		}
		out := make(LeaseSchedule, len(s))
		copy(out, s)
		for i := range out {
			if c, ok := byStart[out[i].StartDate.String()]; ok {
				out[i].Collection = c
			}
		}
		return out, nil

	case BuyoutSchedule:
		old, err := store.LoadBuyoutReceivables(ctx, code)
		if err != nil {
			return nil, err
		}
		for _, r := range old {
			if r.DealDate.Equal(s.Receivable.DealDate) {
				s.Receivable.Collection = r.Collection
				break
			}
		}
		return s, nil
	}
	return schedule, nil
}

// =============================================================================
// REGENERATOR - owns the unit of work
// =============================================================================

// Regenerator rebuilds schedules against a transactional store.
type Regenerator struct {
	Store  TxScheduleStore
	Policy CollectionPolicy
}

// NewRegenerator uses CollectionReplace.
func NewRegenerator(store TxScheduleStore) *Regenerator {
	return &Regenerator{Store: store, Policy: CollectionReplace}
}

// Regenerate generates a schedule and replaces the stored one for code in a
// single transaction. On failure the count is 0 and the previous schedule
// is untouched.
func (r *Regenerator) Regenerate(ctx context.Context, code ContractCode, generate GenerateFunc) (int, error) {
	schedule, err := generate()
	if err != nil {
		return 0, err
	}
	if err := checkOwner(code, schedule); err != nil {
		return 0, err
	}

	var count int
	err = r.Store.WithTx(ctx, func(s ScheduleStore) error {
		n, err := Replace(ctx, s, code, schedule, r.Policy)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
