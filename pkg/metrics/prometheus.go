package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	gatherer prometheus.Gatherer

	bars        *prometheus.GaugeVec
	extrema     *prometheus.GaugeVec
	days        *prometheus.CounterVec
	zones       *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the pipeline metrics on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry registers on reg and pushes what g gathers.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: g,
		bars: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "srzones_bars_loaded",
				Help: "Bars loaded by the last build of a pair",
			},
			[]string{"pair"},
		),
		extrema: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "srzones_extrema_detected",
				Help: "Extrema found by the last build of a pair",
			},
			[]string{"pair"},
		),
		days: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "srzones_days_total",
				Help: "Days processed, by outcome",
			},
			[]string{"pair", "outcome"},
		),
		zones: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "srzones_zones_per_day",
				Help:    "Zones emitted for a built day, including window min and max",
				Buckets: prometheus.LinearBuckets(2, 2, 10),
			},
			[]string{"pair"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "srzones_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "srzones_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

func (r *Recorder) RecordBars(pair string, n int) {
	r.bars.WithLabelValues(pair).Set(float64(n))
}

func (r *Recorder) RecordExtrema(pair string, n int) {
	r.extrema.WithLabelValues(pair).Set(float64(n))
}

// RecordDay counts a processed day as built or skipped.
func (r *Recorder) RecordDay(pair string, built bool) {
	outcome := "skipped"
	if built {
		outcome = "built"
	}
	r.days.WithLabelValues(pair, outcome).Inc()
}

func (r *Recorder) RecordZones(pair string, n int) {
	r.zones.WithLabelValues(pair).Observe(float64(n))
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}

// Push sends everything gathered to a Prometheus pushgateway under job.
// Batch runs exit before a scrape could happen, so they push instead.
func (r *Recorder) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(r.gatherer).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
