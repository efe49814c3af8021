package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/voicemetrics/callbridge/internal/domain/record"
)

// Granularity selects the bucket width of a time series.
type Granularity string

// Supported bucket granularities.
const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
)

// ParseGranularity parses a user-supplied granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case Day, "":
		return Day, nil
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	case Quarter:
		return Quarter, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// periodStart returns the start instant of the period containing ts.
// Weeks start on Monday; quarters on the first of Jan/Apr/Jul/Oct.
func periodStart(ts time.Time, g Granularity) time.Time {
	d := dateOf(ts)
	switch g {
	case Week:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	case Month:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Quarter:
		q := (int(d.Month()) - 1) / 3
		return time.Date(d.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// Bucket is one period of the revenue/profit series.
type Bucket struct {
	PeriodStart time.Time `json:"period_start"`
	Revenue     float64   `json:"revenue"`
	COGS        float64   `json:"cogs"`
	Profit      float64   `json:"profit"`
	Customers   int       `json:"distinct_customers"`
}

// Series buckets the window's attributed purchases by the order creation
// period and computes per-bucket revenue, cogs, distinct customers and
// profit. The window's total call cost is allocated across buckets by each
// bucket's share of attributed customers; with zero attributed customers
// overall the allocation is defined as 0. Buckets are ordered by period
// start.
func (e *Engine) Series(ctx context.Context, recs []record.Reconciled, calls []record.Call, w Window, g Granularity) []Bucket {
	var totalCallCost float64
	for _, c := range calls {
		if w.Contains(c.StartedAt) {
			totalCallCost += c.Cost
		}
	}

	attributed := e.attribute(recs, w)
	totalPurchases := len(attributed)

	byPeriod := make(map[time.Time]*Bucket)
	for _, r := range attributed {
		start := periodStart(r.OrderCreatedAt, g)
		b, ok := byPeriod[start]
		if !ok {
			b = &Bucket{PeriodStart: start}
			byPeriod[start] = b
		}
		b.Revenue += r.TotalPrice
		b.COGS += r.Cost
		b.Customers++
	}

	out := make([]Bucket, 0, len(byPeriod))
	for _, b := range byPeriod {
		var allocatedCallCost float64
		if totalPurchases > 0 {
			allocatedCallCost = totalCallCost * float64(b.Customers) / float64(totalPurchases)
		}
		b.Profit = b.Revenue/e.taxDivisor - b.COGS - allocatedCallCost - e.perPurchaseOverhead*float64(b.Customers)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})

	return out
}
