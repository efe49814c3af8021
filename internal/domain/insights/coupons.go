package insights

import (
	"context"

	"github.com/voicemetrics/callbridge/internal/domain/record"
)

// CouponUse is one deduplicated coupon-report row.
type CouponUse struct {
	CustomerName string `json:"customer_name"`
	Email        string `json:"email"`
	OrderNumber  string `json:"order_number"`
	Code         string `json:"code"`
}

// CouponReport scans the window's reconciled rows for orders that used the
// configured promotional code. The discount payload is parsed strictly;
// malformed or empty payloads count as "no coupon". Rows are deduplicated on
// the full (name, email, order number) identity. The attribution rule does
// not apply here: any reconciled order in range qualifies.
func (e *Engine) CouponReport(ctx context.Context, recs []record.Reconciled, w Window) []CouponUse {
	type identity struct {
		name  string
		email string
		order string
	}
	seen := make(map[identity]struct{})
	var out []CouponUse
	for _, r := range recs {
		if !w.Contains(r.CallStartedAt) {
			continue
		}
		if !record.HasCode(r.DiscountCodes, e.promoCode) {
			continue
		}
		id := identity{name: r.CustomerName, email: r.Email, order: r.OrderNumber}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, CouponUse{
			CustomerName: r.CustomerName,
			Email:        r.Email,
			OrderNumber:  r.OrderNumber,
			Code:         e.promoCode,
		})
	}
	return out
}
