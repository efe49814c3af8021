// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/voicemetrics/callbridge/internal/domain/insights"
)

// CouponsHandler handles promo-code usage report requests.
type CouponsHandler struct {
	deps Dependencies
}

// NewCouponsHandler creates a new coupons handler.
func NewCouponsHandler(deps Dependencies) *CouponsHandler {
	return &CouponsHandler{deps: deps}
}

// HandleGetCoupons handles GET /api/coupons?from=...&to=....
func (h *CouponsHandler) HandleGetCoupons(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_coupons"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	window, err := parseWindow(r, h.deps)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	uses, err := h.deps.Coupons(r.Context(), window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if uses == nil {
		uses = []insights.CouponUse{}
	}
	writeJSON(w, http.StatusOK, uses)
}
