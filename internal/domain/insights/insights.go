// Package insights computes the dashboard-facing KPIs, time-bucketed series
// and coupon report from a reconciled dataset plus the raw call set. The
// engine holds only configuration; every operation is a pure aggregation over
// its inputs and safe to run concurrently against a stable snapshot.
package insights

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/voicemetrics/callbridge/internal/domain/record"
)

// Default financial configuration constants.
const (
	// defaultTaxDivisor extracts the pre-tax amount from tax-inclusive
	// revenue (18% GST).
	defaultTaxDivisor = 1.18

	// defaultPerPurchaseOverhead is the fixed fulfilment overhead charged
	// per attributed purchase.
	defaultPerPurchaseOverhead = 120

	// defaultConnectedMinSec is the duration above which a call counts as
	// connected; at or below it the call is treated as voicemail/misdial.
	defaultConnectedMinSec = 1

	// defaultPromoCode is the promotional code tracked by the coupon report.
	defaultPromoCode = "OFF5"
)

// Engine computes metrics from reconciled rows and raw calls.
type Engine struct {
	taxDivisor          float64
	perPurchaseOverhead float64
	connectedMinSec     float64
	promoCode           string
}

// NewEngine creates an Engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		taxDivisor:          defaultTaxDivisor,
		perPurchaseOverhead: defaultPerPurchaseOverhead,
		connectedMinSec:     defaultConnectedMinSec,
		promoCode:           defaultPromoCode,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Window is an inclusive [From, To] date range. Records filter on their own
// date: calls and reconciled rows use the call start date.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether ts falls inside the window, compared at day
// granularity in UTC. A zero timestamp is never inside any window.
func (w Window) Contains(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	d := dateOf(ts)
	return !d.Before(dateOf(w.From)) && !d.After(dateOf(w.To))
}

// dateOf truncates ts to midnight UTC.
func dateOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summary is the KPI scalar set for one window.
type Summary struct {
	TotalCalls           int     `json:"total_calls"`
	ConnectedCalls       int     `json:"connected_calls"`
	TotalCallCost        float64 `json:"total_call_cost"`
	TotalCallDurationSec float64 `json:"total_call_duration_sec"`
	TotalCallDurationHMS string  `json:"total_call_duration_hms"`
	TotalPurchases       int     `json:"total_purchases"`
	TotalRevenue         float64 `json:"total_revenue"`
	TotalCOGS            float64 `json:"total_cogs"`
	ConversionRate       float64 `json:"conversion_rate"`
	Profit               float64 `json:"profit"`
}

// Summarize computes the KPI set for the window. conversion_rate is 0, never
// an error, when no call in the window connected.
func (e *Engine) Summarize(ctx context.Context, recs []record.Reconciled, calls []record.Call, w Window) Summary {
	var s Summary
	for _, c := range calls {
		if !w.Contains(c.StartedAt) {
			continue
		}
		s.TotalCalls++
		if c.DurationSec > e.connectedMinSec {
			s.ConnectedCalls++
		}
		s.TotalCallCost += c.Cost
		s.TotalCallDurationSec += c.DurationSec
	}
	s.TotalCallDurationHMS = formatHMS(s.TotalCallDurationSec)

	attributed := e.attribute(recs, w)
	s.TotalPurchases = len(attributed)
	for _, r := range attributed {
		s.TotalRevenue += r.TotalPrice
		s.TotalCOGS += r.Cost
	}

	if s.ConnectedCalls > 0 {
		s.ConversionRate = round2(float64(s.TotalPurchases) / float64(s.ConnectedCalls) * 100)
	}
	s.Profit = s.TotalRevenue/e.taxDivisor - s.TotalCOGS - s.TotalCallCost - e.perPurchaseOverhead*float64(s.TotalPurchases)

	return s
}

// Attributed returns the window's attributed purchases: rows with an order
// number, a product title and an order timestamp whose call started at or
// before the order was created, reduced to the first row per customer email.
// One attributed row therefore exists per unique converting customer.
func (e *Engine) Attributed(ctx context.Context, recs []record.Reconciled, w Window) []record.Reconciled {
	return e.attribute(recs, w)
}

func (e *Engine) attribute(recs []record.Reconciled, w Window) []record.Reconciled {
	seen := make(map[string]struct{})
	var out []record.Reconciled
	for _, r := range recs {
		if !w.Contains(r.CallStartedAt) {
			continue
		}
		if r.OrderNumber == "" || r.Title == "" || r.OrderCreatedAt.IsZero() {
			continue
		}
		// A purchase that happened before the call cannot be attributed
		// to it.
		if r.CallStartedAt.After(r.OrderCreatedAt) {
			continue
		}
		if _, dup := seen[r.Email]; dup {
			continue
		}
		seen[r.Email] = struct{}{}
		out = append(out, r)
	}
	return out
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatHMS renders a duration in seconds as H:MM:SS.
func formatHMS(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
