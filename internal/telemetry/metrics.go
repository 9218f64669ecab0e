// Package telemetry exposes search metrics to Prometheus and search spans to
// OpenTelemetry.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hailam/aaschess/internal/aas"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	searches *prometheus.CounterVec
	nodes    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	depth    *prometheus.HistogramVec

	entropy        prometheus.Gauge
	entropyDelta   prometheus.Gauge
	entropyTrend   prometheus.Gauge
	depthExtension prometheus.Gauge
	width          prometheus.Gauge
	timeScale      prometheus.Gauge
	nodeBudget     prometheus.Gauge
	weights        *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg. A nil reg uses a private
// registry, which keeps repeated construction in tests from colliding.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aaschess_searches_total",
			Help: "Completed searches by strategy",
		}, []string{"strategy"}),
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aaschess_search_nodes_total",
			Help: "Nodes (or simulations) searched by strategy",
		}, []string{"strategy"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aaschess_search_duration_seconds",
			Help:    "Search wall time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
		}, []string{"strategy"}),
		depth: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aaschess_search_depth",
			Help:    "Depth reached per search",
			Buckets: prometheus.LinearBuckets(1, 2, 16),
		}, []string{"strategy"}),

		entropy: f.NewGauge(prometheus.GaugeOpts{
			Name: "aaschess_state_entropy",
			Help: "Entropy of the last planned position",
		}),
		entropyDelta: f.NewGauge(prometheus.GaugeOpts{
			Name: "aaschess_entropy_delta",
			Help: "Change in entropy since the previous plan",
		}),
		entropyTrend: f.NewGauge(prometheus.GaugeOpts{
			Name: "aaschess_entropy_trend",
			Help: "Least-squares slope of the entropy history",
		}),
		depthExtension: f.NewGauge(prometheus.GaugeOpts{
			Name: "aaschess_budget_depth_extension",
			Help: "Depth extension granted by the allocator",
		}),
		width: f.NewGauge(prometheus.GaugeOpts{
			Name: "aaschess_budget_width",
			Help: "Width multiplier granted by the allocator",
		}),
		timeScale: f.NewGauge(prometheus.GaugeOpts{
			Name: "aaschess_budget_time",
			Help: "Time multiplier granted by the allocator",
		}),
		nodeBudget: f.NewGauge(prometheus.GaugeOpts{
			Name: "aaschess_budget_nodes",
			Help: "Node budget granted by the allocator",
		}),
		weights: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aaschess_branch_weight",
			Help: "Branch-value weight by feature",
		}, []string{"feature"}),
	}
}

// ObservePlan records the allocator's reading and budget.
func (m *Metrics) ObservePlan(p aas.Plan) {
	m.entropy.Set(p.Entropy)
	m.entropyDelta.Set(p.Gradient.Delta)
	m.entropyTrend.Set(p.Gradient.Trend())
	m.depthExtension.Set(float64(p.Budget.DepthExtension))
	m.width.Set(p.Budget.Width)
	m.timeScale.Set(p.Budget.Time)
	m.nodeBudget.Set(float64(p.Budget.Nodes))
}

// ObserveWeights records the current branch-value weights.
func (m *Metrics) ObserveWeights(w aas.Weights) {
	m.weights.WithLabelValues("capture").Set(w.Capture)
	m.weights.WithLabelValues("check").Set(w.Check)
	m.weights.WithLabelValues("center").Set(w.Center)
	m.weights.WithLabelValues("promotion").Set(w.Promotion)
}

// ObserveSearch records one finished search.
func (m *Metrics) ObserveSearch(strategy string, nodes uint64, depth int, elapsed time.Duration) {
	m.searches.WithLabelValues(strategy).Inc()
	m.nodes.WithLabelValues(strategy).Add(float64(nodes))
	m.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	m.depth.WithLabelValues(strategy).Observe(float64(depth))
}
