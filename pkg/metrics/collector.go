package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/meter"
)

const namespace = "cyberpulse"

// Outcome labels for upstream calls and crosswalk reloads
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeDenied      = "denied"
)

// Collector holds the evaluation metrics on a private registry.
//
// Metrics:
//   - cyberpulse_evaluations_total: evaluated controls by status
//   - cyberpulse_evaluation_score: score distribution
//   - cyberpulse_evaluation_confidence: confidence distribution
//   - cyberpulse_item_failures_total: items that could not be evaluated
//   - cyberpulse_upstream_calls_total: gate and crosswalk calls by outcome
//   - cyberpulse_batch_duration_seconds: end to end batch latency
//   - cyberpulse_crosswalk_reloads_total: crosswalk file reloads by outcome
type Collector struct {
	registry *prometheus.Registry

	evaluations    *prometheus.CounterVec
	score          prometheus.Histogram
	confidence     prometheus.Histogram
	itemFailures   prometheus.Counter
	upstreamCalls  *prometheus.CounterVec
	batchDuration  prometheus.Histogram
	crosswalkLoads *prometheus.CounterVec
}

// NewCollector registers all metrics. A nil registry gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of evaluated controls by status",
		}, []string{"status"}),
		score: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_score",
			Help:      "Distribution of control scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_confidence",
			Help:      "Distribution of evaluation confidence",
			Buckets:   prometheus.LinearBuckets(20, 10, 9),
		}),
		itemFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_failures_total",
			Help:      "Total number of batch items that failed parameter parsing",
		}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Calls to the metered API and crosswalk hosts by outcome",
		}, []string{"op", "outcome"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of a full batch including upstream calls",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		crosswalkLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crosswalk_reloads_total",
			Help:      "Crosswalk file reloads by outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		c.evaluations,
		c.score,
		c.confidence,
		c.itemFailures,
		c.upstreamCalls,
		c.batchDuration,
		c.crosswalkLoads,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveOutputs records one batch worth of outputs
func (c *Collector) ObserveOutputs(outputs []engine.Output) {
	for _, o := range outputs {
		if o.Failed() {
			c.itemFailures.Inc()
			continue
		}
		c.evaluations.WithLabelValues(string(o.Result.Status)).Inc()
		c.score.Observe(float64(o.Result.Score))
		c.confidence.Observe(float64(o.Result.Confidence))
	}
}

// ObserveItemFailure counts an item that aborted its batch
func (c *Collector) ObserveItemFailure() {
	c.itemFailures.Inc()
}

// ObserveUpstream records the outcome of a gate or crosswalk call
func (c *Collector) ObserveUpstream(op string, err error) {
	c.upstreamCalls.WithLabelValues(op, outcomeOf(err)).Inc()
}

func (c *Collector) ObserveBatch(d time.Duration) {
	c.batchDuration.Observe(d.Seconds())
}

// ObserveReload records a crosswalk file reload
func (c *Collector) ObserveReload(err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	c.crosswalkLoads.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// WriteTextfile dumps the registry for the node exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var apiErr *meter.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return OutcomeRateLimited
		case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
			return OutcomeDenied
		}
	}
	return OutcomeError
}
