// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/voicemetrics/callbridge/internal/domain/record"
)

// ReconciledHandler handles reconciled dataset requests.
type ReconciledHandler struct {
	deps Dependencies
}

// reconciledResponse carries the rows with an explicit count so an empty
// window is distinguishable from a failed query.
type reconciledResponse struct {
	Count int                 `json:"count"`
	Rows  []record.Reconciled `json:"rows"`
}

// NewReconciledHandler creates a new reconciled handler.
func NewReconciledHandler(deps Dependencies) *ReconciledHandler {
	return &ReconciledHandler{deps: deps}
}

// HandleGetReconciled handles GET /api/reconciled?from=...&to=....
func (h *ReconciledHandler) HandleGetReconciled(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_reconciled"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	window, err := parseWindow(r, h.deps)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	rows, err := h.deps.Reconciled(r.Context(), window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if rows == nil {
		rows = []record.Reconciled{}
	}
	writeJSON(w, http.StatusOK, reconciledResponse{Count: len(rows), Rows: rows})
}
