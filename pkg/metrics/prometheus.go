package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder tracks per-operation outcomes and durations with Prometheus.
type Recorder struct {
	opSuccess  *prometheus.CounterVec
	opFailure  *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
	lastScore  *prometheus.GaugeVec
}

// New creates a Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		opSuccess: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_operation_success_total",
				Help: "Successful completions per named operation",
			},
			[]string{"operation"},
		),
		opFailure: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_operation_failure_total",
				Help: "Failures per named operation",
			},
			[]string{"operation"},
		),
		opDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketwatch_operation_duration_seconds",
				Help:    "Duration of named operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lastScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketwatch_consensus_score",
				Help: "Winning score of the last consensus evaluation per symbol",
			},
			[]string{"symbol", "action"},
		),
	}
}

// StartTracking begins a duration measurement for the named operation. The
// returned func records the elapsed time when called.
func (r *Recorder) StartTracking(operation string) func() {
	start := time.Now()
	return func() {
		r.opDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (r *Recorder) TrackSuccess(operation string) {
	r.opSuccess.WithLabelValues(operation).Inc()
}

func (r *Recorder) TrackFailure(operation string, _ error) {
	r.opFailure.WithLabelValues(operation).Inc()
}

// RecordConsensus records the winning score of an evaluation.
func (r *Recorder) RecordConsensus(symbol, action string, score int) {
	r.lastScore.WithLabelValues(symbol, action).Set(float64(score))
}

// Noop is a metrics recorder that records nothing. Used in tests.
type Noop struct{}

func (Noop) StartTracking(string) func() { return func() {} }
func (Noop) TrackSuccess(string)         {}
func (Noop) TrackFailure(string, error)  {}

func (Noop) RecordConsensus(string, string, int) {}
