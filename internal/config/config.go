// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory snapshot write queue.
	QueueSize int `koanf:"queue_size"`

	// WriterCount sets the number of snapshot writer workers.
	WriterCount int `koanf:"writer_count"`

	// DSN is the Postgres connection string. Empty selects the in-memory
	// store, which is what tests and local runs use.
	DSN string `koanf:"dsn"`

	// CallAPIURL and CallAPIKey configure the voice-agent platform client.
	CallAPIURL string `koanf:"call_api_url"`
	CallAPIKey string `koanf:"call_api_key"`

	// CallFromNumbers lists the outbound agent numbers to fetch calls for.
	CallFromNumbers []string `koanf:"call_from_numbers"`

	// CallPageLimit caps one list-calls page.
	CallPageLimit int `koanf:"call_page_limit"`

	// CallRatePerSecond prices one second of talk time.
	CallRatePerSecond float64 `koanf:"call_rate_per_second"`

	// OrderAPIURL and OrderAPIToken configure the e-commerce platform client.
	OrderAPIURL   string `koanf:"order_api_url"`
	OrderAPIToken string `koanf:"order_api_token"`

	// OrderPageLimit caps one orders page.
	OrderPageLimit int `koanf:"order_page_limit"`

	// TaxDivisor extracts the pre-tax amount from tax-inclusive revenue.
	TaxDivisor float64 `koanf:"tax_divisor"`

	// PerPurchaseOverhead is the fixed fulfilment cost per attributed purchase.
	PerPurchaseOverhead float64 `koanf:"per_purchase_overhead"`

	// ConnectedCallMinSeconds is the duration above which a call counts as
	// connected.
	ConnectedCallMinSeconds float64 `koanf:"connected_call_min_seconds"`

	// PromoCode is the coupon tracked by the coupon report.
	PromoCode string `koanf:"promo_code"`

	// DefaultWindowDays is the trailing report range when a query omits dates.
	DefaultWindowDays int `koanf:"default_window_days"`

	// RunPeriodSec schedules automatic pipeline runs; 0 disables them.
	RunPeriodSec int `koanf:"run_period_sec"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		QueueSize:               100_000,
		WriterCount:             runtime.NumCPU() * 2,
		CallPageLimit:           1000,
		CallRatePerSecond:       0.1989,
		OrderPageLimit:          250,
		TaxDivisor:              1.18,
		PerPurchaseOverhead:     120,
		ConnectedCallMinSeconds: 1,
		PromoCode:               "OFF5",
		DefaultWindowDays:       30,
		RunPeriodSec:            0,
	}
	return c
}
