// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	writequeue "github.com/voicemetrics/callbridge/internal/adapters/mq/queue"
	workerpool "github.com/voicemetrics/callbridge/internal/adapters/mq/worker"
	repository "github.com/voicemetrics/callbridge/internal/adapters/repository"
	"github.com/voicemetrics/callbridge/internal/adapters/source"
	"github.com/voicemetrics/callbridge/internal/domain/costbasis"
	"github.com/voicemetrics/callbridge/internal/domain/dedupe"
	"github.com/voicemetrics/callbridge/internal/domain/insights"
	"github.com/voicemetrics/callbridge/internal/domain/linker"
	"github.com/voicemetrics/callbridge/internal/domain/record"
	"github.com/voicemetrics/callbridge/pkg/logger"
	"github.com/voicemetrics/callbridge/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize         = 100000
	defaultWriterCount       = 8
	defaultWindowDays        = 30
	enqueueRetryDelay        = 10 * time.Millisecond
	defaultPipelineRunPeriod = 0 // disabled unless configured
)

// Service implements the API dependencies for the reconciliation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	callSource source.CallSource
	orderSrc   source.OrderSource
	writeQueue writequeue.Queue
	writerPool *workerpool.Pool
	engine     *insights.Engine

	// Configuration
	writerCount int
	queueSize   int
	windowDays  int
	runPeriod   time.Duration
	engineOpts  []insights.Option

	// Pipeline serialization. One run at a time; a second caller gets
	// ErrPipelineRunning instead of queueing behind the first.
	runMu sync.Mutex

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCallSource sets the voice-agent platform client.
func WithCallSource(cs source.CallSource) Option {
	return func(s *Service) {
		if cs != nil {
			s.callSource = cs
		}
	}
}

// WithOrderSource sets the e-commerce platform client.
func WithOrderSource(os source.OrderSource) Option {
	return func(s *Service) {
		if os != nil {
			s.orderSrc = os
		}
	}
}

// WithWriterCount sets the number of snapshot writer goroutines.
func WithWriterCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.writerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the write queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDefaultWindowDays sets the report window used when a query omits dates.
func WithDefaultWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithRunPeriod enables periodic pipeline runs at the given interval.
func WithRunPeriod(period time.Duration) Option {
	return func(s *Service) {
		if period > 0 {
			s.runPeriod = period
		}
	}
}

// WithEngineOptions forwards financial configuration to the insights engine.
func WithEngineOptions(opts ...insights.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		writerCount: defaultWriterCount,
		queueSize:   defaultQueueSize,
		windowDays:  defaultWindowDays,
		runPeriod:   defaultPipelineRunPeriod,
		stopCh:      make(chan struct{}),
		logger:      nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting reconciliation service...")

	if s.store == nil {
		s.store = repository.NewMemStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	s.engine = insights.NewEngine(s.engineOpts...)
	s.writeQueue = writequeue.NewInMemoryQueue(
		writequeue.WithCapacity(s.queueSize),
		writequeue.WithBufferSize(s.queueSize),
	)

	s.writerPool = workerpool.NewPool(s.writerCount, s.writeQueue, s.store)
	s.writerPool.Start(ctx)

	if s.runPeriod > 0 {
		go s.runLoop(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "reconciliation service started",
		logger.Int("writers", s.writerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("windowDays", s.windowDays),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping reconciliation service...")

	if s.writerPool != nil {
		s.writerPool.Stop()
	}

	if q, ok := s.writeQueue.(*writequeue.InMemoryQueue); ok {
		_ = q.Close()
	}

	if s.store != nil {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "reconciliation service stopped")
}

// runLoop triggers the pipeline on the configured schedule.
func (s *Service) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.runPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if _, err := s.RunPipeline(ctx); err != nil {
				s.logger.Error(ctx, "scheduled pipeline run failed", logger.Error(err))
			}
		}
	}
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID          string   `json:"run_id"`
	CallsFetched   int      `json:"calls_fetched"`
	OrdersFetched  int      `json:"orders_fetched"`
	SourceErrors   []string `json:"source_errors,omitempty"`
	RowsLinked     int      `json:"rows_linked"`
	RowsReconciled int      `json:"rows_reconciled"`
	RowsStored     int      `json:"rows_stored"`
	ElapsedMS      int64    `json:"elapsed_ms"`
}

// RunPipeline executes one full reconciliation pass: fetch both sources,
// persist the snapshots through the write queue, then link, deduplicate and
// replace the reconciled dataset. A source that fails to fetch is reported
// and the run continues against the last stored snapshot for that source; a
// store read or reconciled-swap failure aborts the run.
func (s *Service) RunPipeline(ctx context.Context) (RunReport, error) {
	if !s.runMu.TryLock() {
		metrics.RecordErrorByComponent("pipeline", "already_running")
		return RunReport{}, ErrPipelineRunning
	}
	defer s.runMu.Unlock()

	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return RunReport{}, ErrNotStarted
	}
	store, q := s.store, s.writeQueue
	callSource, orderSrc := s.callSource, s.orderSrc
	s.mu.RUnlock()

	start := time.Now()
	report := RunReport{RunID: uuid.NewString()}
	var wg sync.WaitGroup

	if callSource != nil {
		calls, err := callSource.FetchCalls(ctx)
		if err != nil {
			metrics.RecordSourceFetchFailure("calls")
			s.logger.Warn(ctx, "call fetch failed; reconciling from stored snapshot", logger.Error(err))
			report.SourceErrors = append(report.SourceErrors, fmt.Sprintf("calls: %v", err))
		} else {
			report.CallsFetched = len(calls)
			for i := range calls {
				wg.Add(1)
				if !s.enqueue(ctx, q, writequeue.Job{Call: &calls[i], Done: wg.Done}) {
					wg.Done()
				}
			}
		}
	}

	if orderSrc != nil {
		orders, err := orderSrc.FetchOrders(ctx)
		if err != nil {
			metrics.RecordSourceFetchFailure("orders")
			s.logger.Warn(ctx, "order fetch failed; reconciling from stored snapshot", logger.Error(err))
			report.SourceErrors = append(report.SourceErrors, fmt.Sprintf("orders: %v", err))
		} else {
			report.OrdersFetched = len(orders)
			for i := range orders {
				wg.Add(1)
				if !s.enqueue(ctx, q, writequeue.Job{Order: &orders[i], Done: wg.Done}) {
					wg.Done()
				}
			}
		}
	}

	if err := waitSettled(ctx, &wg); err != nil {
		return report, fmt.Errorf("snapshot writes did not settle: %w", err)
	}

	rows, err := s.reconcile(ctx, store)
	if err != nil {
		return report, err
	}
	report.RowsLinked = rows.linked
	report.RowsReconciled = rows.reconciled
	report.RowsStored = rows.stored
	report.ElapsedMS = time.Since(start).Milliseconds()

	metrics.RecordPipelineRun()
	metrics.RecordPipelineDuration(float64(report.ElapsedMS))
	s.logger.Info(ctx, "pipeline run complete",
		logger.String("run_id", report.RunID),
		logger.Int("calls_fetched", report.CallsFetched),
		logger.Int("orders_fetched", report.OrdersFetched),
		logger.Int("rows_linked", report.RowsLinked),
		logger.Int("rows_stored", report.RowsStored),
	)

	return report, nil
}

// enqueue pushes a write job, waiting out transient backpressure.
func (s *Service) enqueue(ctx context.Context, q writequeue.Queue, job writequeue.Job) bool {
	for !q.Enqueue(ctx, job) {
		if q.IsClosed() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(enqueueRetryDelay):
		}
	}
	return true
}

// waitSettled blocks until every enqueued write has been attempted.
func waitSettled(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type reconcileCounts struct {
	linked     int
	reconciled int
	stored     int
}

// reconcile rebuilds the reconciled dataset from the stored snapshots.
func (s *Service) reconcile(ctx context.Context, store repository.Store) (reconcileCounts, error) {
	var counts reconcileCounts

	calls, err := store.Calls(ctx)
	if err != nil {
		return counts, fmt.Errorf("load call snapshot: %w", err)
	}
	orders, err := store.Orders(ctx)
	if err != nil {
		return counts, fmt.Errorf("load order snapshot: %w", err)
	}
	costs, err := store.CostBasis(ctx)
	if err != nil {
		return counts, fmt.Errorf("load cost basis: %w", err)
	}
	resolver := costbasis.NewInMemoryResolver(costbasis.WithEntries(costs))

	joined := linker.Link(ctx, orders, calls)
	counts.linked = len(joined)

	recs := dedupe.Deduplicate(ctx, joined, resolver)
	counts.reconciled = len(recs)

	stored, err := store.ReplaceReconciled(ctx, recs)
	if err != nil {
		return counts, fmt.Errorf("replace reconciled dataset: %w", err)
	}
	counts.stored = stored
	metrics.UpdateReconciledRows(stored)

	return counts, nil
}

// Window builds the inclusive report window, falling back to the configured
// trailing default when a bound is missing.
func (s *Service) Window(from, to time.Time) insights.Window {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -s.windowDays)
	}
	return insights.Window{From: from, To: to}
}

// Summary computes the KPI set for the window.
func (s *Service) Summary(ctx context.Context, w insights.Window) (insights.Summary, error) {
	recs, calls, err := s.snapshot(ctx)
	if err != nil {
		return insights.Summary{}, err
	}
	return s.engine.Summarize(ctx, recs, calls, w), nil
}

// Series computes the bucketed revenue/profit series for the window.
func (s *Service) Series(ctx context.Context, w insights.Window, g insights.Granularity) ([]insights.Bucket, error) {
	recs, calls, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Series(ctx, recs, calls, w, g), nil
}

// Coupons computes the promo-code usage report for the window.
func (s *Service) Coupons(ctx context.Context, w insights.Window) ([]insights.CouponUse, error) {
	recs, err := s.store.Reconciled(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reconciled dataset: %w", err)
	}
	return s.engine.CouponReport(ctx, recs, w), nil
}

// Reconciled returns the reconciled rows whose call started inside the window.
func (s *Service) Reconciled(ctx context.Context, w insights.Window) ([]record.Reconciled, error) {
	recs, err := s.store.Reconciled(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reconciled dataset: %w", err)
	}
	out := make([]record.Reconciled, 0, len(recs))
	for _, r := range recs {
		if w.Contains(r.CallStartedAt) {
			out = append(out, r)
		}
	}
	return out, nil
}

// snapshot loads the reconciled dataset and the raw call set.
func (s *Service) snapshot(ctx context.Context) ([]record.Reconciled, []record.Call, error) {
	recs, err := s.store.Reconciled(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load reconciled dataset: %w", err)
	}
	calls, err := s.store.Calls(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load call snapshot: %w", err)
	}
	return recs, calls, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"writerCount": s.writerCount,
		"queueSize":   s.queueSize,
		"windowDays":  s.windowDays,
	}

	if s.started {
		queueLen := s.writeQueue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)

		if counts, err := s.store.Counts(ctx); err == nil {
			stats["calls"] = counts.Calls
			stats["orders"] = counts.Orders
			stats["reconciled"] = counts.Reconciled
			stats["costBasis"] = counts.CostBasis
			metrics.UpdateStoredCalls(counts.Calls)
			metrics.UpdateStoredOrders(counts.Orders)
		}
	}

	return stats
}
