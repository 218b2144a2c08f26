package telemetry

import (
	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink translates debate events into Prometheus collectors.
// Debate completions are keyed by status, everything else by role and
// outcome. Turn durations land in a histogram per role.
type PrometheusSink struct {
	debatesTotal    *prometheus.CounterVec
	debatesActive   prometheus.Gauge
	turnEventsTotal *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
}

// NewPrometheusSink registers the debate collectors with reg. Pass a
// fresh prometheus.NewRegistry() in tests; nil falls back to the default
// registerer. Registration panics on name collisions.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &PrometheusSink{
		debatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dialectic",
				Name:      "debates_total",
				Help:      "Completed debates by terminal status.",
			},
			[]string{"status"},
		),
		debatesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dialectic",
				Name:      "debates_active",
				Help:      "Debates currently running.",
			},
		),
		turnEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dialectic",
				Name:      "turn_events_total",
				Help:      "Turn-level events by role and outcome.",
			},
			[]string{"role", "outcome"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dialectic",
				Name:      "retries_total",
				Help:      "Agent call attempts that failed and were retried.",
			},
			[]string{"role"},
		),
		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dialectic",
				Name:      "violations_total",
				Help:      "Protocol violations by kind.",
			},
			[]string{"violation"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dialectic",
				Name:      "turn_duration_seconds",
				Help:      "Agent turn durations, excluding pacing padding.",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"role"},
		),
	}

	reg.MustRegister(
		s.debatesTotal,
		s.debatesActive,
		s.turnEventsTotal,
		s.retriesTotal,
		s.violationsTotal,
		s.turnDuration,
	)
	return s
}

func (s *PrometheusSink) Emit(e domain.Event) {
	switch e.Phase {
	case domain.PhaseStart:
		s.debatesActive.Inc()
		return
	case domain.PhaseTerminated:
		s.debatesActive.Dec()
		s.debatesTotal.WithLabelValues(e.Detail).Inc()
		return
	}

	role := string(e.Role)
	s.turnEventsTotal.WithLabelValues(role, string(e.Outcome)).Inc()

	switch e.Outcome {
	case domain.OutcomeRetry:
		s.retriesTotal.WithLabelValues(role).Inc()
	case domain.OutcomeViolation:
		s.violationsTotal.WithLabelValues(e.Detail).Inc()
	}

	if e.Outcome == domain.OutcomeOK || e.Outcome == domain.OutcomeViolation {
		s.turnDuration.WithLabelValues(role).Observe(e.EndedAt.Sub(e.StartedAt).Seconds())
	}
}

var _ domain.TelemetrySink = (*PrometheusSink)(nil)
