// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"

	service "github.com/voicemetrics/callbridge/internal/app"
)

// PipelineHandler handles on-demand pipeline run requests.
type PipelineHandler struct {
	deps Dependencies
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(deps Dependencies) *PipelineHandler {
	return &PipelineHandler{deps: deps}
}

// HandleRunPipeline handles POST /api/pipeline/run. Only one run executes at
// a time; a concurrent trigger gets 409.
func (h *PipelineHandler) HandleRunPipeline(w http.ResponseWriter, r *http.Request) {
	const op = "api.run_pipeline"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	report, err := h.deps.RunPipeline(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrPipelineRunning) {
			writeError(w, http.StatusConflict, "pipeline_running", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
