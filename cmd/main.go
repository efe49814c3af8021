package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/voicemetrics/callbridge/internal/adapters/http/api"
	"github.com/voicemetrics/callbridge/internal/adapters/repository"
	"github.com/voicemetrics/callbridge/internal/adapters/source"
	service "github.com/voicemetrics/callbridge/internal/app"
	"github.com/voicemetrics/callbridge/internal/config"
	"github.com/voicemetrics/callbridge/internal/domain/insights"
	"github.com/voicemetrics/callbridge/pkg/logger"
	"github.com/voicemetrics/callbridge/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Pick the snapshot store: Postgres when a DSN is configured, otherwise
	// the in-memory store.
	store, err := buildStore(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to open store: " + err.Error() + "\n")
		return
	}

	// Create and start the service with configuration options
	svc := service.New(serviceOptions(cfg, store, loggerInstance)...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildStore opens the Postgres-backed store when cfg.DSN is set and falls
// back to the in-memory store otherwise.
func buildStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.DSN == "" {
		return repository.NewMemStore(), nil
	}
	return repository.NewGormStore(ctx, cfg.DSN)
}

// serviceOptions assembles the service wiring from configuration. Source
// clients are only attached when their base URL is configured; without them
// the pipeline reconciles whatever snapshot the store already holds.
func serviceOptions(cfg *config.Config, store repository.Store, log logger.Logger) []service.Option {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithStore(store),
		service.WithWriterCount(cfg.WriterCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDefaultWindowDays(cfg.DefaultWindowDays),
		service.WithEngineOptions(
			insights.WithTaxDivisor(cfg.TaxDivisor),
			insights.WithPerPurchaseOverhead(cfg.PerPurchaseOverhead),
			insights.WithConnectedMinSeconds(cfg.ConnectedCallMinSeconds),
			insights.WithPromoCode(cfg.PromoCode),
		),
	}

	if cfg.CallAPIURL != "" {
		opts = append(opts, service.WithCallSource(source.NewCallClient(
			cfg.CallAPIURL,
			cfg.CallAPIKey,
			cfg.CallFromNumbers,
			source.WithCallPageLimit(cfg.CallPageLimit),
			source.WithRatePerSecond(cfg.CallRatePerSecond),
		)))
	}

	if cfg.OrderAPIURL != "" {
		opts = append(opts, service.WithOrderSource(source.NewOrderClient(
			cfg.OrderAPIURL,
			cfg.OrderAPIToken,
			source.WithOrderPageLimit(cfg.OrderPageLimit),
		)))
	}

	if cfg.RunPeriodSec > 0 {
		opts = append(opts, service.WithRunPeriod(time.Duration(cfg.RunPeriodSec)*time.Second))
	}

	return opts
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval) // Update every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	// GetStats already refreshes the stored row gauges; mirror the queue
	// depth here as well.
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
