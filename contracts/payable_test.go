package contracts_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lease-receivables/billing"
	"github.com/warp/lease-receivables/contracts"
)

// seedPayables creates one lease with both amounts and one buyout with only
// a sales amount.
func seedPayables(t *testing.T, svc *contracts.Service) {
	t.Helper()
	ctx := context.Background()

	l := lease("L-pay")
	l.SalesCompanyCode, l.SalesAmount = "S01", decimal.NewFromInt(1200)
	l.ServiceCompanyCode, l.ServiceAmount = "M02", decimal.NewFromInt(300)
	_, err := svc.CreateLease(ctx, l)
	require.NoError(t, err)

	b := buyout("B-pay")
	b.SalesCompanyCode, b.SalesAmount = "S01", decimal.NewFromInt(5000)
	b.ServiceCompanyCode = "M02"
	_, err = svc.CreateBuyout(ctx, b)
	require.NoError(t, err)
}

func TestPayables_ListsNonZeroAmounts(t *testing.T) {
	// GIVEN: a lease with sales and service amounts and a sales-only buyout
	svc, _ := newService(t, contracts.Options{})
	seedPayables(t, svc)

	// WHEN: listing every payable
	list, err := svc.Payables(context.Background(), contracts.PayableFilter{})
	require.NoError(t, err)

	// THEN: three rows, ordered by date, all unpaid
	require.Len(t, list, 3)
	assert.Equal(t, billing.ContractCode("L-pay"), list[0].ContractCode)
	assert.Equal(t, contracts.PartySales, list[0].Party)
	assert.Equal(t, "1200", list[0].Amount.String())
	assert.Equal(t, contracts.PartyService, list[1].Party)
	assert.Equal(t, "M02", list[1].CompanyCode)
	assert.Equal(t, billing.ContractCode("B-pay"), list[2].ContractCode)
	assert.Equal(t, "2024-05-20", list[2].Date.String())
	for _, p := range list {
		assert.Equal(t, billing.StatusUnpaid, p.PaymentStatus)
	}
}

func TestPayables_Filters(t *testing.T) {
	svc, _ := newService(t, contracts.Options{})
	seedPayables(t, svc)
	ctx := context.Background()

	_, err := svc.UpdatePayable(ctx, contracts.PayableUpdate{
		Kind: billing.KindLease, Code: "L-pay", Party: contracts.PartySales, Status: "paid",
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter contracts.PayableFilter
		want   int
	}{
		{"paid", contracts.PayableFilter{Paid: true}, 1},
		{"unpaid", contracts.PayableFilter{Unpaid: true}, 2},
		{"company", contracts.PayableFilter{CompanyCode: "S01"}, 2},
		{"date range", contracts.PayableFilter{
			From: billing.NewDate(2024, time.May, 1),
			To:   billing.NewDate(2024, time.May, 31),
		}, 1},
		{"unpaid sales", contracts.PayableFilter{Unpaid: true, CompanyCode: "S01"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.Payables(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, list, tt.want)
		})
	}

	_, err = svc.Payables(ctx, contracts.PayableFilter{Paid: true, Unpaid: true})
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
}

func TestPayables_UpdateKeepsSchedule(t *testing.T) {
	// GIVEN: a collected first period on the lease
	svc, _ := newService(t, contracts.Options{})
	seedPayables(t, svc)
	ctx := context.Background()
	_, err := svc.UpdateCollection(ctx, contracts.CollectionUpdate{
		Kind: billing.KindLease, Code: "L-pay", Seq: 1, ReceivedAmount: decimal.NewFromInt(4500),
	})
	require.NoError(t, err)

	// WHEN: the service payable is marked partially paid
	p, err := svc.UpdatePayable(ctx, contracts.PayableUpdate{
		Kind: billing.KindLease, Code: "L-pay", Party: contracts.PartyService, Status: "partial",
	})
	require.NoError(t, err)

	// THEN: only the status moves
	assert.Equal(t, billing.StatusPartial, p.PaymentStatus)
	assert.Equal(t, "300", p.Amount.String())
	got, err := svc.GetLease(ctx, "L-pay")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPartial, got.ServicePaymentStatus)
	assert.Equal(t, billing.StatusUnpaid, got.SalesPaymentStatus)

	recs, err := svc.LeaseReceivables(ctx, "L-pay")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, recs[0].PaymentStatus)

	// A later contract update without statuses keeps them.
	l := lease("L-pay")
	l.SalesCompanyCode, l.SalesAmount = "S01", decimal.NewFromInt(1200)
	l.ServiceCompanyCode, l.ServiceAmount = "M02", decimal.NewFromInt(300)
	_, err = svc.UpdateLease(ctx, l)
	require.NoError(t, err)
	got, err = svc.GetLease(ctx, "L-pay")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPartial, got.ServicePaymentStatus)
}

func TestPayables_UpdateErrors(t *testing.T) {
	svc, _ := newService(t, contracts.Options{})
	seedPayables(t, svc)
	ctx := context.Background()

	tests := []struct {
		name string
		u    contracts.PayableUpdate
		is   error
	}{
		{"no service amount", contracts.PayableUpdate{Kind: billing.KindBuyout, Code: "B-pay", Party: contracts.PartyService, Status: "PAID"}, billing.ErrInvalidArgument},
		{"bad status", contracts.PayableUpdate{Kind: billing.KindLease, Code: "L-pay", Party: contracts.PartySales, Status: "SETTLED"}, billing.ErrInvalidArgument},
		{"bad party", contracts.PayableUpdate{Kind: billing.KindLease, Code: "L-pay", Party: "broker", Status: "PAID"}, billing.ErrInvalidArgument},
		{"missing contract", contracts.PayableUpdate{Kind: billing.KindLease, Code: "ghost", Party: contracts.PartySales, Status: "PAID"}, billing.ErrContractNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdatePayable(ctx, tt.u)
			assert.ErrorIs(t, err, tt.is)
		})
	}

	b, err := svc.GetBuyout(ctx, "B-pay")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusUnpaid, b.ServicePaymentStatus)
}

func TestParseParty(t *testing.T) {
	p, err := contracts.ParseParty(" Sales ")
	require.NoError(t, err)
	assert.Equal(t, contracts.PartySales, p)

	_, err = contracts.ParseParty("broker")
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
}
