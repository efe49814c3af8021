package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/voicemetrics/callbridge/internal/domain/record"
)

// MemStore implements Store in memory. It backs tests and single-process
// deployments that do not need durable persistence.
type MemStore struct {
	mu         sync.RWMutex
	calls      map[string]record.Call
	orders     map[string]record.Order
	costBasis  []record.CostBasisEntry
	reconciled []record.Reconciled
}

// NewMemStore creates an in-memory store with configuration options.
func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		calls:  make(map[string]record.Call),
		orders: make(map[string]record.Order),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// MemOption applies a configuration option to the MemStore.
type MemOption func(*MemStore)

// WithCostBasis seeds the externally maintained cost-basis table.
func WithCostBasis(entries []record.CostBasisEntry) MemOption {
	return func(s *MemStore) {
		s.costBasis = append(s.costBasis, entries...)
	}
}

// UpsertCall inserts or updates a call row keyed by call ID.
func (s *MemStore) UpsertCall(_ context.Context, c record.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[c.ID] = c
	return nil
}

// UpsertOrder inserts or updates an order row keyed by order number.
func (s *MemStore) UpsertOrder(_ context.Context, o record.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderNumber] = o
	return nil
}

// Calls returns the call snapshot in stable (ID) order.
func (s *MemStore) Calls(_ context.Context) ([]record.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record.Call, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Orders returns the order snapshot in stable (order number) order.
func (s *MemStore) Orders(_ context.Context) ([]record.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

// CostBasis returns the seeded cost-basis table.
func (s *MemStore) CostBasis(_ context.Context) ([]record.CostBasisEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record.CostBasisEntry, len(s.costBasis))
	copy(out, s.costBasis)
	return out, nil
}

// ReplaceReconciled swaps the reconciled dataset for rows.
func (s *MemStore) ReplaceReconciled(_ context.Context, rows []record.Reconciled) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciled = make([]record.Reconciled, len(rows))
	copy(s.reconciled, rows)
	return len(rows), nil
}

// Reconciled returns the current reconciled dataset.
func (s *MemStore) Reconciled(_ context.Context) ([]record.Reconciled, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record.Reconciled, len(s.reconciled))
	copy(out, s.reconciled)
	return out, nil
}

// Counts reports stored row counts.
func (s *MemStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Calls:      int64(len(s.calls)),
		Orders:     int64(len(s.orders)),
		Reconciled: int64(len(s.reconciled)),
		CostBasis:  int64(len(s.costBasis)),
	}, nil
}
