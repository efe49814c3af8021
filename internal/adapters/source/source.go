// Package source implements clients for the two upstream record platforms:
// the voice-agent call API and the e-commerce order API. Clients return
// complete batches; a record that cannot be parsed is skipped and counted,
// never fatal to the batch. A fetch that fails outright returns an error and
// the caller decides whether the run continues without that source.
package source

import (
	"errors"

	"context"

	"github.com/voicemetrics/callbridge/internal/domain/record"
)

// Sentinel kinds for source-fetch errors.
var (
	ErrUnavailable = errors.New("source unavailable")
)

// CallSource fetches the current call batch from the voice-agent platform.
type CallSource interface {
	FetchCalls(ctx context.Context) ([]record.Call, error)
}

// OrderSource fetches the current order batch from the e-commerce platform.
type OrderSource interface {
	FetchOrders(ctx context.Context) ([]record.Order, error)
}
