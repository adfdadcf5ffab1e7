package assistant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the assistant's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	turns          *prometheus.CounterVec
	oracleCalls    *prometheus.CounterVec
	oracleDuration *prometheus.HistogramVec
	failClosed     prometheus.Counter
	queryDuration  prometheus.Histogram
	queryRows      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autopic",
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Completed assistant turns by route and outcome.",
		}, []string{"route", "outcome"}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autopic",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Language model calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		oracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "autopic",
			Subsystem: "oracle",
			Name:      "call_duration_seconds",
			Help:      "Language model call latency by stage.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"stage"}),
		failClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "autopic",
			Subsystem: "classifier",
			Name:      "fail_closed_total",
			Help:      "Classifier oracle failures routed to the direct responder.",
		}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autopic",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Synthesized query execution latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		queryRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autopic",
			Subsystem: "query",
			Name:      "rows",
			Help:      "Rows returned by synthesized queries.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	reg.MustRegister(m.turns, m.oracleCalls, m.oracleDuration, m.failClosed, m.queryDuration, m.queryRows)
	return m
}

// RegisterSessionGauge exposes the number of live sessions.
func RegisterSessionGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "autopic",
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions currently held in memory.",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) observeTurn(route string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.turns.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) observeOracle(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.oracleCalls.WithLabelValues(stage, outcome).Inc()
	if d > 0 {
		m.oracleDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (m *Metrics) observeFailClosed() {
	if m == nil {
		return
	}
	m.failClosed.Inc()
}

func (m *Metrics) observeQuery(d time.Duration, rows int) {
	if m == nil {
		return
	}
	m.queryDuration.Observe(d.Seconds())
	m.queryRows.Observe(float64(rows))
}
