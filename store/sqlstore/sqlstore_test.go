package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lease-receivables/billing"
	"github.com/warp/lease-receivables/contracts"
	"github.com/warp/lease-receivables/store/sqlstore"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleLease(code string) contracts.Lease {
	return contracts.Lease{
		Code:               billing.ContractCode(code),
		CustomerCode:       "C001",
		CustomerName:       "Acme Printing",
		StartDate:          billing.NewDate(2024, time.January, 1),
		Model:              "MX-3070",
		Quantity:           2,
		MonthlyRent:        decimal.RequireFromString("1234.57"),
		PaymentCycleMonths: 3,
		Overprint:          "0.35/page over 3000",
		ContractMonths:     14,
		SalesCompanyCode:   "S01",
		SalesAmount:        decimal.RequireFromString("800"),
		ServiceCompanyCode: "V02",
		ServiceAmount:      decimal.RequireFromString("120.5"),
		SalesPaymentStatus: billing.StatusPaid,
	}
}

func sampleBuyout(code string) contracts.Buyout {
	return contracts.Buyout{
		Code:         billing.ContractCode(code),
		CustomerCode: "C002",
		CustomerName: "Globex",
		DealDate:     billing.NewDate(2024, time.May, 20),
		DealAmount:   decimal.RequireFromString("58000"),
		SalesAmount:  decimal.Zero,
	}
}

func insertLease(t *testing.T, store *sqlstore.Store, l contracts.Lease) {
	t.Helper()
	err := store.WithContractTx(context.Background(), func(tx contracts.Tx) error {
		return tx.InsertLease(context.Background(), l)
	})
	require.NoError(t, err)
}

// =============================================================================
// CONTRACTS
// =============================================================================

func TestStore_LeaseRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	want := sampleLease("L-1")
	insertLease(t, store, want)

	got, err := store.GetLease(ctx, "L-1")
	require.NoError(t, err)
	assert.Equal(t, want.Code, got.Code)
	assert.Equal(t, "MX-3070", got.Model)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, "2024-01-01", got.StartDate.String())
	assert.True(t, want.MonthlyRent.Equal(got.MonthlyRent), "rent %s", got.MonthlyRent)
	assert.True(t, want.ServiceAmount.Equal(got.ServiceAmount))
	assert.Equal(t, "0.35/page over 3000", got.Overprint)
	assert.Equal(t, billing.StatusPaid, got.SalesPaymentStatus)

	leases, err := store.ListLeases(ctx)
	require.NoError(t, err)
	assert.Len(t, leases, 1)
}

func TestStore_DuplicateContract(t *testing.T) {
	store := newStore(t)
	insertLease(t, store, sampleLease("L-dup"))

	err := store.WithContractTx(context.Background(), func(tx contracts.Tx) error {
		return tx.InsertLease(context.Background(), sampleLease("L-dup"))
	})
	assert.ErrorIs(t, err, billing.ErrDuplicateContract)
	assert.True(t, billing.IsConflict(err))
}

func TestStore_MissingContract(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.GetLease(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrContractNotFound)

	_, err = store.GetBuyout(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrContractNotFound)

	err = store.WithContractTx(ctx, func(tx contracts.Tx) error {
		return tx.UpdateBuyout(ctx, sampleBuyout("nope"))
	})
	assert.ErrorIs(t, err, billing.ErrContractNotFound)

	err = store.WithContractTx(ctx, func(tx contracts.Tx) error {
		return tx.DeleteLease(ctx, "nope")
	})
	assert.ErrorIs(t, err, billing.ErrContractNotFound)
}

func TestStore_UpdateBuyout(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	b := sampleBuyout("B-1")
	require.NoError(t, store.WithContractTx(ctx, func(tx contracts.Tx) error {
		return tx.InsertBuyout(ctx, b)
	}))

	b.DealAmount = decimal.RequireFromString("61000.50")
	b.ServiceCompanyCode = "V09"
	require.NoError(t, store.WithContractTx(ctx, func(tx contracts.Tx) error {
		return tx.UpdateBuyout(ctx, b)
	}))

	got, err := store.GetBuyout(ctx, "B-1")
	require.NoError(t, err)
	assert.Equal(t, "61000.5", got.DealAmount.String())
	assert.Equal(t, "V09", got.ServiceCompanyCode)
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestStore_RegenerateIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	l := sampleLease("L-2")
	r := billing.NewRegenerator(store)

	n1, err := r.Regenerate(ctx, l.Code, billing.LeaseGenerator(l.Billing()))
	require.NoError(t, err)
	n2, err := r.Regenerate(ctx, l.Code, billing.LeaseGenerator(l.Billing()))
	require.NoError(t, err)
	assert.Equal(t, 5, n1)
	assert.Equal(t, n1, n2)

	recs, err := store.LoadLeaseReceivables(ctx, l.Code)
	require.NoError(t, err)
	require.Len(t, recs, 5)

	total := decimal.Zero
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Seq)
		assert.Equal(t, billing.StatusUnpaid, rec.PaymentStatus)
		total = total.Add(rec.TotalRent)
	}
	assert.Equal(t, "17283.98", total.String(), "1234.57 * 14 survives the round trip")
	assert.Equal(t, "2025-02-28", recs[4].EndDate.String())
}

func TestStore_WithTxRollsBack(t *testing.T) {
	// GIVEN: a stored schedule
	// WHEN: a transaction deletes it and then fails
	// THEN: the schedule is still there

	store := newStore(t)
	ctx := context.Background()
	l := sampleLease("L-3")
	_, err := billing.NewRegenerator(store).Regenerate(ctx, l.Code, billing.LeaseGenerator(l.Billing()))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(s billing.ScheduleStore) error {
		n, err := s.DeleteReceivables(ctx, billing.KindLease, l.Code)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		return boom
	})
	assert.Same(t, boom, err)

	recs, err := store.LoadLeaseReceivables(ctx, l.Code)
	require.NoError(t, err)
	assert.Len(t, recs, 5)
}

func TestStore_DuplicateSeqIsPersistenceError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	schedule, err := billing.GenerateLeaseSchedule(sampleLease("L-4").Billing())
	require.NoError(t, err)

	_, err = store.InsertLeaseReceivables(ctx, schedule)
	require.NoError(t, err)

	_, err = store.InsertLeaseReceivables(ctx, schedule[:1])
	require.ErrorIs(t, err, billing.ErrPersistence)

	var liteErr sqlite3.Error
	assert.True(t, errors.As(err, &liteErr), "driver error stays reachable")

	recs, err := store.LoadLeaseReceivables(ctx, "L-4")
	require.NoError(t, err)
	assert.Len(t, recs, 5)
}

func TestStore_UpdateCollection(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	b := sampleBuyout("B-2")

	_, err := billing.NewRegenerator(store).Regenerate(ctx, b.Code, billing.BuyoutGenerator(b.Billing()))
	require.NoError(t, err)

	col := billing.Collection{
		Fee:            decimal.RequireFromString("30"),
		ReceivedAmount: decimal.RequireFromString("20000"),
		PaymentStatus:  billing.StatusPartial,
	}
	require.NoError(t, store.WithContractTx(ctx, func(tx contracts.Tx) error {
		return tx.UpdateCollection(ctx, billing.KindBuyout, b.Code, 1, col)
	}))

	recs, err := store.LoadBuyoutReceivables(ctx, b.Code)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, billing.StatusPartial, recs[0].PaymentStatus)
	assert.Equal(t, "20000", recs[0].ReceivedAmount.String())
	assert.Equal(t, "58000", recs[0].TotalAmount.String(), "amount is not editable")

	err = store.WithContractTx(ctx, func(tx contracts.Tx) error {
		return tx.UpdateCollection(ctx, billing.KindBuyout, b.Code, 2, col)
	})
	assert.ErrorIs(t, err, billing.ErrReceivableNotFound)
}

func TestStore_ReceivablesInMonth(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	r := billing.NewRegenerator(store)

	l := sampleLease("L-5")
	l.PaymentCycleMonths = 1
	l.ContractMonths = 6
	_, err := r.Regenerate(ctx, l.Code, billing.LeaseGenerator(l.Billing()))
	require.NoError(t, err)

	b := sampleBuyout("B-5")
	_, err = r.Regenerate(ctx, b.Code, billing.BuyoutGenerator(b.Billing()))
	require.NoError(t, err)

	entries, err := store.ReceivablesInMonth(ctx, 2024, time.May)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	kinds := map[billing.ContractKind]billing.Entry{}
	for _, e := range entries {
		kinds[e.Kind] = e
	}
	assert.Equal(t, "2024-05-01", kinds[billing.KindLease].Date.String())
	assert.Equal(t, "2024-05-31", kinds[billing.KindLease].EndDate.String())
	assert.Equal(t, "2024-05-20", kinds[billing.KindBuyout].Date.String())

	entries, err = store.ReceivablesInMonth(ctx, 2024, time.December)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Reset(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	l := sampleLease("L-6")
	insertLease(t, store, l)
	_, err := billing.NewRegenerator(store).Regenerate(ctx, l.Code, billing.LeaseGenerator(l.Billing()))
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	leases, err := store.ListLeases(ctx)
	require.NoError(t, err)
	assert.Empty(t, leases)
	recs, err := store.LoadLeaseReceivables(ctx, l.Code)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestStore_DirectoryRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	cust := contracts.Customer{
		Code: "C001", Name: "Acme Printing", ContactName: "Wile E.",
		Email: "ops@acme.test", TaxID: "12345678", Remark: "net 30",
	}
	comp := contracts.Company{Code: "S01", Name: "Sunrise Sales", SalesRep: "Ann", IsSales: true}
	err := store.WithContractTx(ctx, func(tx contracts.Tx) error {
		if err := tx.InsertCustomer(ctx, cust); err != nil {
			return err
		}
		return tx.InsertCompany(ctx, comp)
	})
	require.NoError(t, err)

	gotCust, err := store.GetCustomer(ctx, "C001")
	require.NoError(t, err)
	assert.Equal(t, cust, gotCust)
	gotComp, err := store.GetCompany(ctx, "S01")
	require.NoError(t, err)
	assert.Equal(t, comp, gotComp)

	err = store.WithContractTx(ctx, func(tx contracts.Tx) error {
		return tx.InsertCustomer(ctx, cust)
	})
	assert.ErrorIs(t, err, billing.ErrDuplicateCustomer)

	_, err = store.GetCompany(ctx, "X99")
	assert.ErrorIs(t, err, billing.ErrCompanyNotFound)
}

func TestStore_CountContracts(t *testing.T) {
	// GIVEN: a lease naming S01 for sales and V02 for service, a buyout naming neither
	store := newStore(t)
	ctx := context.Background()
	insertLease(t, store, sampleLease("L-7"))
	err := store.WithContractTx(ctx, func(tx contracts.Tx) error {
		return tx.InsertBuyout(ctx, sampleBuyout("B-7"))
	})
	require.NoError(t, err)

	// WHEN / THEN: counts cover both contract tables and both company sides
	err = store.WithContractTx(ctx, func(tx contracts.Tx) error {
		n, err := tx.CountCustomerContracts(ctx, "C001")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = tx.CountCustomerContracts(ctx, "C002")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = tx.CountCompanyContracts(ctx, "V02")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = tx.CountCompanyContracts(ctx, "M99")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		return nil
	})
	require.NoError(t, err)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := sqlstore.New("mysql", "whatever")
	assert.Error(t, err)
}
