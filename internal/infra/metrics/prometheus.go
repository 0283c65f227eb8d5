package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/movement"
)

const namespace = "agrovest"

// Recorder implements movement.Metrics on a Prometheus registry
type Recorder struct {
	registry *prometheus.Registry

	workflows        *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec
	amounts          *prometheus.CounterVec
	reconcileRuns    prometheus.Counter
	repaired         *prometheus.CounterVec
	mismatches       prometheus.Gauge
	httpRequests     *prometheus.CounterVec
}

var _ movement.Metrics = (*Recorder)(nil)

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		workflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_total",
			Help:      "Money-movement workflows by outcome",
		}, []string{"workflow", "outcome"}),
		workflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Duration of money-movement workflows",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"workflow"}),
		amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moved_amount_total",
			Help:      "Currency moved by successful workflows",
		}, []string{"workflow"}),
		reconcileRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Completed reconciliation passes",
		}),
		repaired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_positions_repaired_total",
			Help:      "Positions moved out of active by the reconciler",
		}, []string{"action"}),
		mismatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wallet_balance_mismatches",
			Help:      "Wallets whose balance disagreed with the ledger on the last pass",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(r.workflows, r.workflowDuration, r.amounts, r.reconcileRuns, r.repaired, r.mismatches, r.httpRequests)
	return r
}

// ObserveWorkflow records one workflow execution
func (r *Recorder) ObserveWorkflow(workflow, outcome string, d time.Duration) {
	r.workflows.WithLabelValues(workflow, outcome).Inc()
	r.workflowDuration.WithLabelValues(workflow).Observe(d.Seconds())
}

// AddAmount adds a moved amount to the workflow's running total
func (r *Recorder) AddAmount(workflow string, amount decimal.Decimal) {
	f, _ := amount.Abs().Float64()
	r.amounts.WithLabelValues(workflow).Add(f)
}

// ObserveReconcile records the result of a reconciliation pass
func (r *Recorder) ObserveReconcile(report *movement.ReconcileReport) {
	r.reconcileRuns.Inc()
	r.repaired.WithLabelValues("completed").Add(float64(report.CompletedPositions))
	r.repaired.WithLabelValues("cancelled").Add(float64(report.CancelledPositions))
	r.mismatches.Set(float64(len(report.Mismatches)))
}

// ObserveRequest counts one HTTP request
func (r *Recorder) ObserveRequest(method, route string, status int) {
	r.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
