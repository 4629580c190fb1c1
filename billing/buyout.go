package billing

import "context"

// BuyoutSchedule wraps the single receivable of a buyout so it can go
// through the same replace path as a lease schedule.
type BuyoutSchedule struct {
	Receivable BuyoutReceivable
}

func (s BuyoutSchedule) Kind() ContractKind { return KindBuyout }
func (s BuyoutSchedule) Len() int           { return 1 }

func (s BuyoutSchedule) persist(ctx context.Context, store ScheduleStore) (int, error) {
	return store.InsertBuyoutReceivables(ctx, []BuyoutReceivable{s.Receivable})
}

// GenerateBuyoutSchedule returns the one receivable of a buyout contract.
// TotalAmount is DealAmount unchanged.
func GenerateBuyoutSchedule(c BuyoutContract) (BuyoutReceivable, error) {
	if c.Code == "" {
		return BuyoutReceivable{}, invalidArg("contract_code", c.Code, "is required")
	}
	if c.DealAmount.IsNegative() {
		return BuyoutReceivable{}, invalidArg("deal_amount", c.DealAmount, "must not be negative")
	}
	return BuyoutReceivable{
		ContractCode: c.Code,
		Seq:          1,
		CustomerCode: c.CustomerCode,
		CustomerName: c.CustomerName,
		DealDate:     c.DealDate,
		TotalAmount:  c.DealAmount,
		Collection:   newCollection(),
	}, nil
}
