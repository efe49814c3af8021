// Package linker joins call records to order records on the normalized phone
// key. Link is a pure function over its inputs and safe for concurrent use.
package linker

import (
	"context"

	"github.com/voicemetrics/callbridge/internal/domain/record"
	"github.com/voicemetrics/callbridge/pkg/metrics"
)

// Link performs an inner join of orders and calls on the normalized phone
// key. Orders and calls with no counterpart are dropped. A phone matching m
// calls and n orders yields all m*n pairs; the deduplicator collapses them
// later. Each row's title is the order-side title when non-empty, else the
// call-side title.
func Link(ctx context.Context, orders []record.Order, calls []record.Call) []record.Joined {
	callsByPhone := make(map[string][]record.Call, len(calls))
	for _, c := range calls {
		key := c.PhoneKey()
		if key == "" {
			metrics.RecordLinkerDropped("call")
			continue
		}
		callsByPhone[key] = append(callsByPhone[key], c)
	}

	var joined []record.Joined
	for _, o := range orders {
		key := o.PhoneKey()
		if key == "" {
			metrics.RecordLinkerDropped("order")
			continue
		}
		matches, ok := callsByPhone[key]
		if !ok {
			metrics.RecordLinkerDropped("order")
			continue
		}
		for _, c := range matches {
			title := o.Title
			if title == "" {
				title = c.Title
			}
			joined = append(joined, record.Joined{
				PhoneKey: key,
				Call:     c,
				Order:    o,
				Title:    title,
			})
		}
	}

	metrics.RecordLinkedRows(len(joined))
	return joined
}
