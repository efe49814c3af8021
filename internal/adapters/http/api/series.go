// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/voicemetrics/callbridge/internal/domain/insights"
)

// SeriesHandler handles bucketed revenue/profit series requests.
type SeriesHandler struct {
	deps Dependencies
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(deps Dependencies) *SeriesHandler {
	return &SeriesHandler{deps: deps}
}

// HandleGetSeries handles GET /api/series?granularity=week&from=...&to=....
// Granularity defaults to day.
func (h *SeriesHandler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_series"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	granularity, err := insights.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	window, err := parseWindow(r, h.deps)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	buckets, err := h.deps.Series(r.Context(), window, granularity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if buckets == nil {
		buckets = []insights.Bucket{}
	}
	writeJSON(w, http.StatusOK, buckets)
}
