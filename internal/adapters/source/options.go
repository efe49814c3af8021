package source

import (
	"net/http"
	"time"
)

// CallOption applies a configuration option to the CallClient.
type CallOption func(*CallClient)

// WithCallHTTPClient overrides the HTTP client used for call fetches.
func WithCallHTTPClient(hc *http.Client) CallOption {
	return func(c *CallClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCallPageLimit sets the list-calls page size.
func WithCallPageLimit(limit int) CallOption {
	return func(c *CallClient) {
		if limit > 0 {
			c.pageLimit = limit
		}
	}
}

// WithRatePerSecond sets the per-second calling rate used to compute a
// call's cost from its duration.
func WithRatePerSecond(rate float64) CallOption {
	return func(c *CallClient) {
		if rate >= 0 {
			c.ratePerSec = rate
		}
	}
}

// WithBackoff sets the initial retry backoff; each attempt doubles it.
func WithBackoff(d time.Duration) CallOption {
	return func(c *CallClient) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// OrderOption applies a configuration option to the OrderClient.
type OrderOption func(*OrderClient)

// WithOrderHTTPClient overrides the HTTP client used for order fetches.
func WithOrderHTTPClient(hc *http.Client) OrderOption {
	return func(c *OrderClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithOrderPageLimit sets the orders page size.
func WithOrderPageLimit(limit int) OrderOption {
	return func(c *OrderClient) {
		if limit > 0 {
			c.pageLimit = limit
		}
	}
}
