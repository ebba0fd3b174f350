package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	attacksLastHour  prometheus.Gauge
	attacksPrevHour  prometheus.Gauge
	breakerState     *prometheus.GaugeVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		upstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attackdash_upstream_requests_total",
				Help: "Upstream fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		upstreamLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "attackdash_upstream_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attackdash_cache_lookups_total",
				Help: "Cache lookups by cache name and result",
			},
			[]string{"cache", "result"},
		),
		attacksLastHour: f.NewGauge(prometheus.GaugeOpts{
			Name: "attackdash_attacks_last_hour",
			Help: "Attacks counted in the most recent hour",
		}),
		attacksPrevHour: f.NewGauge(prometheus.GaugeOpts{
			Name: "attackdash_attacks_previous_hour",
			Help: "Attacks counted in the hour before the most recent one",
		}),
		breakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "attackdash_circuit_breaker_state",
				Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
			},
			[]string{"source"},
		),
	}
}

// RecordFetch records one upstream call.
func (r *Recorder) RecordFetch(source, outcome string, seconds float64) {
	r.upstreamRequests.WithLabelValues(source, outcome).Inc()
	r.upstreamLatency.WithLabelValues(source).Observe(seconds)
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(name, result).Inc()
}

// RecordAttacks publishes the hourly attack counts.
func (r *Recorder) RecordAttacks(lastHour, previousHour int) {
	r.attacksLastHour.Set(float64(lastHour))
	r.attacksPrevHour.Set(float64(previousHour))
}

// RecordBreakerState publishes a breaker transition.
func (r *Recorder) RecordBreakerState(source string, state float64) {
	r.breakerState.WithLabelValues(source).Set(state)
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordFetch(string, string, float64) {}
func (Noop) RecordCache(string, bool)            {}
func (Noop) RecordAttacks(int, int)              {}
func (Noop) RecordBreakerState(string, float64)  {}
