// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	service "github.com/voicemetrics/callbridge/internal/app"
	"github.com/voicemetrics/callbridge/internal/domain/insights"
	"github.com/voicemetrics/callbridge/internal/domain/record"
)

// dateLayout is the wire format for report window bounds.
const dateLayout = "2006-01-02"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Window applies the default trailing range when a bound is zero.
	Window(from, to time.Time) insights.Window

	// Read operations expose the reconciled dataset and its reports.
	Summary(ctx context.Context, w insights.Window) (insights.Summary, error)
	Series(ctx context.Context, w insights.Window, g insights.Granularity) ([]insights.Bucket, error)
	Coupons(ctx context.Context, w insights.Window) ([]insights.CouponUse, error)
	Reconciled(ctx context.Context, w insights.Window) ([]record.Reconciled, error)

	// RunPipeline triggers a full fetch-and-reconcile pass.
	RunPipeline(ctx context.Context) (service.RunReport, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	summaryHandler    *SummaryHandler
	seriesHandler     *SeriesHandler
	couponsHandler    *CouponsHandler
	reconciledHandler *ReconciledHandler
	pipelineHandler   *PipelineHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		summaryHandler:    NewSummaryHandler(deps),
		seriesHandler:     NewSeriesHandler(deps),
		couponsHandler:    NewCouponsHandler(deps),
		reconciledHandler: NewReconciledHandler(deps),
		pipelineHandler:   NewPipelineHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("/api/series", MetricsMiddleware(s.seriesHandler.HandleGetSeries, "series"))
	mux.HandleFunc("/api/coupons", MetricsMiddleware(s.couponsHandler.HandleGetCoupons, "coupons"))
	mux.HandleFunc("/api/reconciled", MetricsMiddleware(s.reconciledHandler.HandleGetReconciled, "reconciled"))
	mux.HandleFunc("/api/pipeline/run", MetricsMiddleware(s.pipelineHandler.HandleRunPipeline, "pipeline_run"))
}

// parseWindow reads the from/to query parameters. Either bound may be
// omitted; the dependency fills the default trailing range. A bound that
// fails to parse, or a range where from is after to, is a client error.
func parseWindow(r *http.Request, deps Dependencies) (insights.Window, error) {
	var from, to time.Time
	var err error

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return insights.Window{}, fmt.Errorf("invalid from date %q; want YYYY-MM-DD", raw)
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return insights.Window{}, fmt.Errorf("invalid to date %q; want YYYY-MM-DD", raw)
		}
	}

	w := deps.Window(from, to)
	if w.From.After(w.To) {
		return insights.Window{}, fmt.Errorf("from date is after to date")
	}
	return w, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
