package billing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATEMENT - Merged lease + buyout receivables for one month
// =============================================================================

// Entry is a receivable of either kind, flattened for listing.
// EndDate is zero for buyouts.
type Entry struct {
	Kind         ContractKind
	ContractCode ContractCode
	Seq          int
	CustomerCode string
	CustomerName string
	Date         Date
	EndDate      Date
	Amount       decimal.Decimal
	Collection
}

// Outstanding is amount plus fee minus what has been received.
func (e Entry) Outstanding() decimal.Decimal {
	return e.Amount.Add(e.Fee).Sub(e.ReceivedAmount)
}

// LeaseEntry flattens a lease receivable.
func LeaseEntry(r LeaseReceivable) Entry {
	return Entry{
		Kind:         KindLease,
		ContractCode: r.ContractCode,
		Seq:          r.Seq,
		CustomerCode: r.CustomerCode,
		CustomerName: r.CustomerName,
		Date:         r.StartDate,
		EndDate:      r.EndDate,
		Amount:       r.TotalRent,
		Collection:   r.Collection,
	}
}

// BuyoutEntry flattens a buyout receivable.
func BuyoutEntry(r BuyoutReceivable) Entry {
	return Entry{
		Kind:         KindBuyout,
		ContractCode: r.ContractCode,
		Seq:          r.Seq,
		CustomerCode: r.CustomerCode,
		CustomerName: r.CustomerName,
		Date:         r.DealDate,
		Amount:       r.TotalAmount,
		Collection:   r.Collection,
	}
}

// Summary aggregates a statement.
type Summary struct {
	Count         int
	TotalAmount   decimal.Decimal
	TotalFee      decimal.Decimal
	TotalReceived decimal.Decimal
	// Outstanding sums amount + fee - received over rows not yet PAID.
	Outstanding decimal.Decimal
}

// Statement is a filtered, ordered listing and its summary.
type Statement struct {
	Entries []Entry
	Summary Summary
}

// StatementFilter narrows a listing. Zero value keeps everything.
type StatementFilter struct {
	UnpaidOnly bool
	Search     string
}

// BuildStatement filters entries, orders them by date then contract code
// then seq, and summarizes the result.
func BuildStatement(entries []Entry, f StatementFilter) Statement {
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.UnpaidOnly && e.PaymentStatus == StatusPaid {
			continue
		}
		if needle != "" && !e.matches(needle) {
			continue
		}
		kept = append(kept, e)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ContractCode != b.ContractCode {
			return a.ContractCode < b.ContractCode
		}
		return a.Seq < b.Seq
	})

	return Statement{Entries: kept, Summary: Summarize(kept)}
}

// Summarize totals a set of entries.
func Summarize(entries []Entry) Summary {
	s := Summary{
		Count:         len(entries),
		TotalAmount:   decimal.Zero,
		TotalFee:      decimal.Zero,
		TotalReceived: decimal.Zero,
		Outstanding:   decimal.Zero,
	}
	for _, e := range entries {
		s.TotalAmount = s.TotalAmount.Add(e.Amount)
		s.TotalFee = s.TotalFee.Add(e.Fee)
		s.TotalReceived = s.TotalReceived.Add(e.ReceivedAmount)
		if e.PaymentStatus != StatusPaid {
			s.Outstanding = s.Outstanding.Add(e.Outstanding())
		}
	}
	return s
}

func (e Entry) matches(needle string) bool {
	return strings.Contains(strings.ToLower(string(e.ContractCode)), needle) ||
		strings.Contains(strings.ToLower(e.CustomerCode), needle) ||
		strings.Contains(strings.ToLower(e.CustomerName), needle)
}
