package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the recorder's Prometheus collectors.
type Metrics struct {
	Ticks         prometheus.Counter
	Groups        prometheus.Counter
	Failures      *prometheus.CounterVec
	Entities      prometheus.Gauge
	TickDuration  prometheus.Histogram
	OpenEvents    prometheus.Gauge
	EventsEmitted prometheus.Counter
}

// Failure stages.
const (
	StageDescribe = "describe"
	StageSink     = "sink"
	StageEvent    = "event"
)

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "semrec",
			Name:      "ticks_total",
			Help:      "Scene samples taken.",
		}),
		Groups: f.NewCounter(prometheus.CounterOpts{
			Namespace: "semrec",
			Name:      "fact_groups_total",
			Help:      "Fact groups handed to the sink queue.",
		}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semrec",
			Name:      "failures_total",
			Help:      "Recording failures by stage.",
		}, []string{"stage"}),
		Entities: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "semrec",
			Name:      "scene_entities",
			Help:      "Entities in the last snapshot.",
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semrec",
			Name:      "tick_duration_seconds",
			Help:      "Time spent scanning and emitting one snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		OpenEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "semrec",
			Name:      "open_events",
			Help:      "Events begun but not completed.",
		}),
		EventsEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "semrec",
			Name:      "events_total",
			Help:      "Completed events.",
		}),
	}
}
