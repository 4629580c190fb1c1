package billing_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lease-receivables/billing"
)

// =============================================================================
// PERIOD CALCULATOR
// =============================================================================

func TestComputePeriods_RemainderPeriodAppended(t *testing.T) {
	// GIVEN: 14 months billed every 3 months from 2024-01-01
	// WHEN: computing periods
	// THEN: four 3-month periods and one final 2-month period

	periods, err := billing.ComputePeriods(billing.NewDate(2024, time.January, 1), 14, 3)
	require.NoError(t, err)
	require.Len(t, periods, 5)

	want := []struct {
		start, end string
		months     int
	}{
		{"2024-01-01", "2024-03-31", 3},
		{"2024-04-01", "2024-06-30", 3},
		{"2024-07-01", "2024-09-30", 3},
		{"2024-10-01", "2024-12-31", 3},
		{"2025-01-01", "2025-02-28", 2},
	}
	for i, w := range want {
		assert.Equal(t, w.start, periods[i].Start.String(), "period %d start", i)
		assert.Equal(t, w.end, periods[i].End.String(), "period %d end", i)
		assert.Equal(t, w.months, periods[i].Months, "period %d months", i)
	}
}

func TestComputePeriods_ZeroTermIsEmpty(t *testing.T) {
	periods, err := billing.ComputePeriods(billing.NewDate(2024, time.May, 1), 0, 6)
	require.NoError(t, err)
	assert.Empty(t, periods)
}

func TestComputePeriods_InvalidCycleRejected(t *testing.T) {
	for _, cycle := range []int{0, -1, -12} {
		periods, err := billing.ComputePeriods(billing.NewDate(2024, time.May, 1), 12, cycle)
		assert.ErrorIs(t, err, billing.ErrInvalidArgument, "cycle %d", cycle)
		assert.Nil(t, periods)

		var argErr *billing.InvalidArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "cycle_months", argErr.Field)
	}
}

func TestComputePeriods_NegativeTermRejected(t *testing.T) {
	_, err := billing.ComputePeriods(billing.NewDate(2024, time.May, 1), -1, 1)
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
}

func TestComputePeriods_TermAboveLimitRejected(t *testing.T) {
	start := billing.NewDate(2024, time.January, 1)

	// GIVEN: terms just past the limit and far past it
	for _, total := range []int{billing.MaxContractMonths + 1, math.MaxInt} {
		// WHEN: computing monthly periods
		periods, err := billing.ComputePeriods(start, total, 1)

		// THEN: rejected before anything is allocated
		assert.Nil(t, periods)
		require.ErrorIs(t, err, billing.ErrInvalidArgument)
		var argErr *billing.InvalidArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "total_months", argErr.Field)
	}

	// The limit itself is accepted.
	periods, err := billing.ComputePeriods(start, billing.MaxContractMonths, 1)
	require.NoError(t, err)
	assert.Len(t, periods, billing.MaxContractMonths)
	assert.Equal(t, "2123-12-31", periods[len(periods)-1].End.String())
}

func TestComputePeriods_CycleLongerThanTerm(t *testing.T) {
	// Only the remainder period exists.
	periods, err := billing.ComputePeriods(billing.NewDate(2024, time.March, 15), 2, 12)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "2024-03-15", periods[0].Start.String())
	assert.Equal(t, "2024-05-14", periods[0].End.String())
	assert.Equal(t, 2, periods[0].Months)
}

func TestComputePeriods_MonthEndStartClamps(t *testing.T) {
	// GIVEN: a lease starting on January 31 in a leap year, billed monthly
	// THEN: February is clamped and each period starts the day after the last

	periods, err := billing.ComputePeriods(billing.NewDate(2024, time.January, 31), 3, 1)
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, "[2024-01-31, 2024-02-28]", periods[0].String())
	assert.Equal(t, "[2024-02-29, 2024-03-28]", periods[1].String())
	assert.Equal(t, "[2024-03-29, 2024-04-28]", periods[2].String())
}

func TestComputePeriods_PartitionProperty(t *testing.T) {
	starts := []billing.Date{
		billing.NewDate(2024, time.January, 1),
		billing.NewDate(2024, time.January, 31),
		billing.NewDate(2024, time.February, 29),
		billing.NewDate(2023, time.August, 31),
		billing.NewDate(2025, time.December, 15),
	}

	for _, start := range starts {
		for total := 0; total <= 40; total++ {
			for cycle := 1; cycle <= 13; cycle++ {
				periods, err := billing.ComputePeriods(start, total, cycle)
				require.NoError(t, err)

				wantCount := total / cycle
				if total%cycle != 0 {
					wantCount++
				}
				require.Len(t, periods, wantCount, "start=%s total=%d cycle=%d", start, total, cycle)

				sum := 0
				for i, p := range periods {
					sum += p.Months
					assert.True(t, p.Start.BeforeOrEqual(p.End), "period %s is reversed", p)
					assert.True(t, p.End.Equal(p.Start.AddMonths(p.Months).AddDays(-1)), "period %s end rule", p)
					if i == 0 {
						assert.True(t, p.Start.Equal(start))
						continue
					}
					prev := periods[i-1]
					assert.True(t, p.Start.Equal(prev.End.AddDays(1)),
						"gap or overlap between %s and %s", prev, p)
					if i < len(periods)-1 || total%cycle == 0 {
						assert.Equal(t, cycle, p.Months)
					}
				}
				assert.Equal(t, total, sum, "months must add up to the term")
			}
		}
	}
}

func TestComputePeriods_Deterministic(t *testing.T) {
	start := billing.NewDate(2024, time.October, 31)
	first, err := billing.ComputePeriods(start, 25, 4)
	require.NoError(t, err)
	second, err := billing.ComputePeriods(start, 25, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// =============================================================================
// DATE
// =============================================================================

func TestDate_AddMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		start  string
		months int
		want   string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-08-31", 6, "2025-02-28"},
		{"2024-01-15", 12, "2025-01-15"},
		{"2024-05-31", -3, "2024-02-29"},
	}
	for _, tt := range tests {
		got := billing.MustParseDate(tt.start).AddMonths(tt.months)
		assert.Equal(t, tt.want, got.String(), "%s + %d months", tt.start, tt.months)
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := billing.NewDate(2024, time.July, 4)
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2024-07-04"`, string(b))

	var back billing.Date
	require.NoError(t, back.UnmarshalJSON(b))
	assert.True(t, d.Equal(back))

	assert.Error(t, back.UnmarshalJSON([]byte(`"07/04/2024"`)))
}

func TestDate_Scan(t *testing.T) {
	var d billing.Date

	require.NoError(t, d.Scan("2024-02-29"))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan([]byte("2024-03-01T00:00:00Z")))
	assert.Equal(t, "2024-03-01", d.String())

	require.NoError(t, d.Scan(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-04-02", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}
