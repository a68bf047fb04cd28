// Package metrics provides Prometheus metrics for contextor-mcp.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextor_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"cache", "result"},
	)

	cacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextor_cache_evictions_total",
			Help: "Total number of entries removed by capacity eviction or expiry",
		},
		[]string{"cache", "reason"},
	)

	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextor_tasks_total",
			Help: "Total number of background tasks by final status",
		},
		[]string{"status"},
	)

	taskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contextor_task_duration_seconds",
			Help:    "Background task duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	tokensCountedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextor_token_computations_total",
			Help: "Total number of token counts computed by a backend (cache misses)",
		},
		[]string{"backend"},
	)

	documentBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contextor_document_bytes",
			Help:    "Size of assembled Markdown documents in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
)

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordCacheEviction records entries removed from a cache. Reason is "capacity" or "expired".
func RecordCacheEviction(cache, reason string, count int) {
	if count <= 0 {
		return
	}
	cacheEvictionsTotal.WithLabelValues(cache, reason).Add(float64(count))
}

// RecordTask records a finished background task.
func RecordTask(status string, elapsed time.Duration) {
	tasksTotal.WithLabelValues(status).Inc()
	taskDuration.Observe(elapsed.Seconds())
}

// RecordTokenComputation records a token count computed by the named backend.
func RecordTokenComputation(backend string) {
	tokensCountedTotal.WithLabelValues(backend).Inc()
}

// RecordDocument records the size of an assembled document.
func RecordDocument(sizeBytes int) {
	documentBytes.Observe(float64(sizeBytes))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics endpoint stopped", "addr", addr, "error", err)
	}
}
