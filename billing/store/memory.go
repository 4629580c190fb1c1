// Package store provides in-memory ScheduleStore implementations.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/warp/lease-receivables/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var errDuplicateSeq = errors.New("duplicate receivable (contract_code, seq)")

type Memory struct {
	mu     sync.RWMutex
	lease  map[billing.ContractCode][]billing.LeaseReceivable
	buyout map[billing.ContractCode][]billing.BuyoutReceivable
}

func NewMemory() *Memory {
	return &Memory{
		lease:  make(map[billing.ContractCode][]billing.LeaseReceivable),
		buyout: make(map[billing.ContractCode][]billing.BuyoutReceivable),
	}
}

func (m *Memory) DeleteReceivables(_ context.Context, kind billing.ContractKind, code billing.ContractCode) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(kind, code), nil
}

func (m *Memory) InsertLeaseReceivables(_ context.Context, recs []billing.LeaseReceivable) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLeaseLocked(recs)
}

func (m *Memory) InsertBuyoutReceivables(_ context.Context, recs []billing.BuyoutReceivable) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertBuyoutLocked(recs)
}

func (m *Memory) LoadLeaseReceivables(_ context.Context, code billing.ContractCode) ([]billing.LeaseReceivable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLeaseLocked(code), nil
}

func (m *Memory) LoadBuyoutReceivables(_ context.Context, code billing.ContractCode) ([]billing.BuyoutReceivable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadBuyoutLocked(code), nil
}

// Count returns the number of stored receivables across all contracts.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, recs := range m.lease {
		n += len(recs)
	}
	for _, recs := range m.buyout {
		n += len(recs)
	}
	return n
}

func (m *Memory) deleteLocked(kind billing.ContractKind, code billing.ContractCode) int {
	var n int
	switch kind {
	case billing.KindLease:
		n = len(m.lease[code])
		delete(m.lease, code)
	case billing.KindBuyout:
		n = len(m.buyout[code])
		delete(m.buyout, code)
	}
	return n
}

// insertLeaseLocked rejects a (code, seq) that is already stored, or repeated
// within recs, the same way the SQL primary key does. Every record is checked
// before any is written, so a rejected batch leaves the store unchanged.
func (m *Memory) insertLeaseLocked(recs []billing.LeaseReceivable) (int, error) {
	seen := make(map[seqKey]bool, len(recs))
	for _, r := range recs {
		key := seqKey{r.ContractCode, r.Seq}
		if seen[key] || hasSeq(m.lease[r.ContractCode], r.Seq, func(x billing.LeaseReceivable) int { return x.Seq }) {
			return 0, billing.Persistence("insert lease receivable", errDuplicateSeq)
		}
		seen[key] = true
	}

	for _, r := range recs {
		m.lease[r.ContractCode] = append(m.lease[r.ContractCode], r)
	}
	return len(recs), nil
}

func (m *Memory) insertBuyoutLocked(recs []billing.BuyoutReceivable) (int, error) {
	seen := make(map[seqKey]bool, len(recs))
	for _, r := range recs {
		key := seqKey{r.ContractCode, r.Seq}
		if seen[key] || hasSeq(m.buyout[r.ContractCode], r.Seq, func(x billing.BuyoutReceivable) int { return x.Seq }) {
			return 0, billing.Persistence("insert buyout receivable", errDuplicateSeq)
		}
		seen[key] = true
	}

	for _, r := range recs {
		m.buyout[r.ContractCode] = append(m.buyout[r.ContractCode], r)
	}
	return len(recs), nil
}

type seqKey struct {
	code billing.ContractCode
	seq  int
}

func hasSeq[T any](stored []T, seq int, seqOf func(T) int) bool {
	for _, existing := range stored {
		if seqOf(existing) == seq {
			return true
		}
	}
	return false
}

func (m *Memory) loadLeaseLocked(code billing.ContractCode) []billing.LeaseReceivable {
	result := make([]billing.LeaseReceivable, len(m.lease[code]))
	copy(result, m.lease[code])
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result
}

func (m *Memory) loadBuyoutLocked(code billing.ContractCode) []billing.BuyoutReceivable {
	result := make([]billing.BuyoutReceivable, len(m.buyout[code]))
	copy(result, m.buyout[code])
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(billing.ScheduleStore) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	// A context cancelled while fn ran aborts the commit.
	if err := ctx.Err(); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	lease  map[billing.ContractCode][]billing.LeaseReceivable
	buyout map[billing.ContractCode][]billing.BuyoutReceivable
}

func (tm *TxMemory) snapshot() memorySnapshot {
	leaseCopy := make(map[billing.ContractCode][]billing.LeaseReceivable, len(tm.lease))
	for k, v := range tm.lease {
		leaseCopy[k] = append([]billing.LeaseReceivable{}, v...)
	}
	buyoutCopy := make(map[billing.ContractCode][]billing.BuyoutReceivable, len(tm.buyout))
	for k, v := range tm.buyout {
		buyoutCopy[k] = append([]billing.BuyoutReceivable{}, v...)
	}
	return memorySnapshot{lease: leaseCopy, buyout: buyoutCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.lease = s.lease
	tm.buyout = s.buyout
}

// txMemoryView runs against the parent while its lock is held by WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) DeleteReceivables(_ context.Context, kind billing.ContractKind, code billing.ContractCode) (int, error) {
	return tv.parent.deleteLocked(kind, code), nil
}

func (tv *txMemoryView) InsertLeaseReceivables(_ context.Context, recs []billing.LeaseReceivable) (int, error) {
	return tv.parent.insertLeaseLocked(recs)
}

func (tv *txMemoryView) InsertBuyoutReceivables(_ context.Context, recs []billing.BuyoutReceivable) (int, error) {
	return tv.parent.insertBuyoutLocked(recs)
}

func (tv *txMemoryView) LoadLeaseReceivables(_ context.Context, code billing.ContractCode) ([]billing.LeaseReceivable, error) {
	return tv.parent.loadLeaseLocked(code), nil
}

func (tv *txMemoryView) LoadBuyoutReceivables(_ context.Context, code billing.ContractCode) ([]billing.BuyoutReceivable, error) {
	return tv.parent.loadBuyoutLocked(code), nil
}
