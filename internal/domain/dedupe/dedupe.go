// Package dedupe collapses the linker output to one reconciled row per
// (phone key, order number, resolved title) group.
package dedupe

import (
	"context"
	"sort"

	"github.com/voicemetrics/callbridge/internal/domain/costbasis"
	"github.com/voicemetrics/callbridge/internal/domain/record"
	"github.com/voicemetrics/callbridge/pkg/metrics"
)

// groupKey identifies one logical (customer, order, product) record.
type groupKey struct {
	phone string
	order string
	title string
}

// Deduplicate sorts joined rows by (phone asc, order number asc, order
// created_at desc) and keeps the first row of every (phone, order number,
// resolved title) group, so the most recently created order-side snapshot is
// authoritative. Ties in created_at keep original row order: the sort is
// stable. Costs are resolved from the cost-basis table and emails resolved
// order-side first, then call-side, then the "NA" sentinel.
func Deduplicate(ctx context.Context, joined []record.Joined, costs costbasis.Resolver) []record.Reconciled {
	rows := make([]record.Joined, len(joined))
	copy(rows, joined)

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PhoneKey != rows[j].PhoneKey {
			return rows[i].PhoneKey < rows[j].PhoneKey
		}
		if rows[i].Order.OrderNumber != rows[j].Order.OrderNumber {
			return rows[i].Order.OrderNumber < rows[j].Order.OrderNumber
		}
		return rows[i].Order.CreatedAt.After(rows[j].Order.CreatedAt)
	})

	seen := make(map[groupKey]struct{}, len(rows))
	out := make([]record.Reconciled, 0, len(rows))
	for _, r := range rows {
		key := groupKey{phone: r.PhoneKey, order: r.Order.OrderNumber, title: r.Title}
		if _, dup := seen[key]; dup {
			metrics.RecordDedupeCollapsed()
			continue
		}
		seen[key] = struct{}{}

		out = append(out, record.Reconciled{
			PhoneKey:       r.PhoneKey,
			Email:          resolveEmail(r.Order.Email, r.Call.Email),
			CallStartedAt:  r.Call.StartedAt,
			DurationSec:    r.Call.DurationSec,
			CallCost:       r.Call.Cost,
			OrderNumber:    r.Order.OrderNumber,
			OrderCreatedAt: r.Order.CreatedAt,
			TotalPrice:     r.Order.TotalPrice,
			DiscountCodes:  r.Order.DiscountCodes,
			CustomerName:   r.Order.CustomerName,
			Title:          r.Title,
			Cost:           costs.Resolve(ctx, r.Title),
		})
	}

	return out
}

// resolveEmail prefers the order-side email, falls back to the call-side one,
// and finally to the sentinel so a reconciled row is never email-less.
func resolveEmail(orderEmail, callEmail string) string {
	if orderEmail != "" {
		return orderEmail
	}
	if callEmail != "" {
		return callEmail
	}
	return record.EmailUnknown
}
