package insights

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTaxDivisor sets the divisor that extracts pre-tax revenue from the
// tax-inclusive order total.
func WithTaxDivisor(d float64) Option {
	return func(e *Engine) {
		if d > 0 {
			e.taxDivisor = d
		}
	}
}

// WithPerPurchaseOverhead sets the fixed overhead charged per attributed
// purchase in the profit formula.
func WithPerPurchaseOverhead(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.perPurchaseOverhead = v
		}
	}
}

// WithConnectedMinSeconds sets the duration threshold above which a call
// counts as connected.
func WithConnectedMinSeconds(sec float64) Option {
	return func(e *Engine) {
		if sec >= 0 {
			e.connectedMinSec = sec
		}
	}
}

// WithPromoCode sets the promotional code tracked by the coupon report.
func WithPromoCode(code string) Option {
	return func(e *Engine) {
		if code != "" {
			e.promoCode = code
		}
	}
}
