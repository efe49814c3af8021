// Package repository defines the persistence contract for source snapshots
// and the reconciled dataset.
package repository

import (
	"context"

	"github.com/voicemetrics/callbridge/internal/domain/record"
)

// Counts summarizes the persisted row counts for monitoring.
type Counts struct {
	Calls      int64
	Orders     int64
	Reconciled int64
	CostBasis  int64
}

// Store provides read/write access to persisted call, order, cost-basis and
// reconciled rows. Single-row write failures are local to the row; bulk read
// failures make the dataset unusable and are terminal for a pipeline run.
type Store interface {
	// UpsertCall inserts or updates a call row, keyed by call ID.
	UpsertCall(ctx context.Context, c record.Call) error

	// UpsertOrder inserts or updates an order row, keyed by order number.
	UpsertOrder(ctx context.Context, o record.Order) error

	// Calls returns the full persisted call snapshot.
	Calls(ctx context.Context) ([]record.Call, error)

	// Orders returns the full persisted order snapshot.
	Orders(ctx context.Context) ([]record.Order, error)

	// CostBasis returns the externally maintained cost-basis table.
	CostBasis(ctx context.Context) ([]record.CostBasisEntry, error)

	// ReplaceReconciled atomically swaps the reconciled dataset for rows.
	// A row that fails to write is skipped; the returned count is the
	// number of rows actually stored.
	ReplaceReconciled(ctx context.Context, rows []record.Reconciled) (int, error)

	// Reconciled returns the current reconciled dataset.
	Reconciled(ctx context.Context) ([]record.Reconciled, error)

	// Counts reports persisted row counts.
	Counts(ctx context.Context) (Counts, error)
}
