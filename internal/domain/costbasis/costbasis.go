// Package costbasis defines the contract for resolving a product title to its
// unit cost.
package costbasis

import (
	"context"

	"github.com/voicemetrics/callbridge/internal/domain/normalize"
	"github.com/voicemetrics/callbridge/internal/domain/record"
	"github.com/voicemetrics/callbridge/pkg/metrics"
)

// Resolver maps a product title to its unit cost.
type Resolver interface {
	// Resolve returns the unit cost for title. A title with no cost-basis
	// entry resolves to 0; a missing entry must never block reconciliation.
	Resolve(ctx context.Context, title string) float64
}

// InMemoryResolver implements Resolver over a normalized-title map loaded
// from the cost-basis reference table.
type InMemoryResolver struct {
	costs map[string]float64
}

// NewInMemoryResolver creates a resolver with configuration options.
func NewInMemoryResolver(opts ...Option) *InMemoryResolver {
	r := &InMemoryResolver{
		costs: make(map[string]float64),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve looks up the normalized title. Lookup is case and surrounding
// whitespace insensitive. Misses are counted and degrade to zero cost.
func (r *InMemoryResolver) Resolve(_ context.Context, title string) float64 {
	key := normalize.Title(title)
	if key == "" {
		return 0
	}
	cost, ok := r.costs[key]
	if !ok {
		metrics.RecordCostBasisMiss()
		return 0
	}
	return cost
}

// Len returns the number of loaded cost-basis entries.
func (r *InMemoryResolver) Len() int {
	return len(r.costs)
}

// Option applies a configuration option to the InMemoryResolver.
type Option func(*InMemoryResolver)

// WithEntries loads cost-basis rows, keyed by normalized title. Later entries
// for the same normalized title win.
func WithEntries(entries []record.CostBasisEntry) Option {
	return func(r *InMemoryResolver) {
		for _, e := range entries {
			key := normalize.Title(e.ProductTitle)
			if key == "" {
				continue
			}
			r.costs[key] = e.UnitCost
		}
	}
}
