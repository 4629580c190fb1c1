package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEASE SCHEDULE
// =============================================================================

// LeaseSchedule is the ordered set of receivables generated for one lease.
type LeaseSchedule []LeaseReceivable

func (s LeaseSchedule) Kind() ContractKind { return KindLease }
func (s LeaseSchedule) Len() int           { return len(s) }

func (s LeaseSchedule) persist(ctx context.Context, store ScheduleStore) (int, error) {
	if len(s) == 0 {
		return 0, nil
	}
	return store.InsertLeaseReceivables(ctx, s)
}

// Total is the sum of TotalRent across the schedule.
func (s LeaseSchedule) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s {
		total = total.Add(r.TotalRent)
	}
	return total
}

// GenerateLeaseSchedule expands a lease into one receivable per billing
// period. Each period bills MonthlyRent times its month count; the customer
// snapshot is copied onto every record.
func GenerateLeaseSchedule(c LeaseContract) (LeaseSchedule, error) {
	if err := validateLease(c); err != nil {
		return nil, err
	}

	periods, err := ComputePeriods(c.StartDate, c.ContractMonths, c.PaymentCycleMonths)
	if err != nil {
		return nil, err
	}

	schedule := make(LeaseSchedule, 0, len(periods))
	for i, p := range periods {
		schedule = append(schedule, LeaseReceivable{
			ContractCode: c.Code,
			Seq:          i + 1,
			CustomerCode: c.CustomerCode,
			CustomerName: c.CustomerName,
			StartDate:    p.Start,
			EndDate:      p.End,
			TotalRent:    c.MonthlyRent.Mul(decimal.NewFromInt(int64(p.Months))),
			Collection:   newCollection(),
		})
	}
	return schedule, nil
}

func validateLease(c LeaseContract) error {
	if c.Code == "" {
		return invalidArg("contract_code", c.Code, "is required")
	}
	if c.MonthlyRent.IsNegative() {
		return invalidArg("monthly_rent", c.MonthlyRent, "must not be negative")
	}
	return nil
}
