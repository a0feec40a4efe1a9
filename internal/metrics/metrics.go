package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Runs counts completed simulation runs by mode and status.
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sim_runs_total", Help: "Simulation runs by mode and status."},
		[]string{"mode", "status"},
	)
	// RunDuration tracks wall time of a full simulation run in seconds.
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "sim_run_duration_seconds", Help: "Simulation run duration in seconds.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}},
		[]string{"mode"},
	)

	// OptimizerGenerations counts evolved generations across all runs.
	OptimizerGenerations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "optimizer_generations_total", Help: "Genetic optimizer generations evolved."},
	)
	// OptimizerEvaluations counts fitness evaluations.
	OptimizerEvaluations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "optimizer_evaluations_total", Help: "Genetic optimizer fitness evaluations."},
	)

	// NavSearches counts path searches by algorithm label.
	NavSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nav_searches_total", Help: "Navigator path searches by algorithm."},
		[]string{"algorithm"},
	)
	// NavExpansions counts nodes expanded by the weighted search.
	NavExpansions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "nav_expansions_total", Help: "Nodes expanded by weighted path search."},
	)

	// WebhookDeliveries counts webhook delivery outcomes.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers all collectors on the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Runs)
		Registry.MustRegister(RunDuration)
		Registry.MustRegister(OptimizerGenerations)
		Registry.MustRegister(OptimizerEvaluations)
		Registry.MustRegister(NavSearches)
		Registry.MustRegister(NavExpansions)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
