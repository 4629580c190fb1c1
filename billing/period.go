package billing

// MaxContractMonths bounds a schedule at one hundred years of monthly periods.
const MaxContractMonths = 1200

// =============================================================================
// PERIOD - One billed range of whole months
// =============================================================================

// Period is an inclusive date range covering Months whole billing months.
type Period struct {
	Start  Date
	End    Date
	Months int
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// periodFrom returns the period of n months beginning at start.
// End is start + n months - 1 day.
func periodFrom(start Date, months int) Period {
	return Period{
		Start:  start,
		End:    start.AddMonths(months).AddDays(-1),
		Months: months,
	}
}

// =============================================================================
// PERIOD CALCULATOR
// =============================================================================

// ComputePeriods splits totalMonths starting at start into contiguous periods
// of cycleMonths, followed by one shorter period for any remainder.
//
//	ComputePeriods(2024-01-01, 14, 3) =>
//	  [2024-01-01, 2024-03-31] 3
//	  [2024-04-01, 2024-06-30] 3
//	  [2024-07-01, 2024-09-30] 3
//	  [2024-10-01, 2024-12-31] 3
//	  [2025-01-01, 2025-02-28] 2
//
// The result depends only on the inputs.
func ComputePeriods(start Date, totalMonths, cycleMonths int) ([]Period, error) {
	if cycleMonths < 1 {
		return nil, invalidArg("cycle_months", cycleMonths, "must be at least 1")
	}
	if totalMonths < 0 {
		return nil, invalidArg("total_months", totalMonths, "must not be negative")
	}
	if totalMonths > MaxContractMonths {
		return nil, invalidArg("total_months", totalMonths, "must be at most 1200")
	}
	if totalMonths == 0 {
		return []Period{}, nil
	}
	if start.IsZero() {
		return nil, invalidArg("start_date", start, "is required")
	}

	full := totalMonths / cycleMonths
	remainder := totalMonths % cycleMonths

	periods := make([]Period, 0, full+1)
	next := start
	for i := 0; i < full; i++ {
		p := periodFrom(next, cycleMonths)
		periods = append(periods, p)
		next = p.End.AddDays(1)
	}
	if remainder > 0 {
		periods = append(periods, periodFrom(next, remainder))
	}
	return periods, nil
}
