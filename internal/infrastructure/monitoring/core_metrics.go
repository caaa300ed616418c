// Package monitoring provides the Prometheus instrumentation for the
// nutrition intelligence core.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the core's Prometheus collectors. A nil *Metrics is safe to
// record into, so tests can pass nothing.
type Metrics struct {
	MealsCreated       *prometheus.CounterVec
	AnalysisOutcomes   *prometheus.CounterVec
	AnalysisDuration   prometheus.Histogram
	ValidationVerdicts *prometheus.CounterVec
	CorrectionsWritten prometheus.Counter
	LearnerUpdates     prometheus.Counter
	LearnerSkips       *prometheus.CounterVec
	BreakerState       prometheus.Gauge
}

// NewMetrics builds and registers the core collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MealsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platewise",
			Name:      "meals_created_total",
			Help:      "Meals created, by terminal analysis status.",
		}, []string{"status"}),
		AnalysisOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platewise",
			Name:      "analysis_outcomes_total",
			Help:      "Analyzer call outcomes, by result kind.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "platewise",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of analyzer calls, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		ValidationVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platewise",
			Name:      "validation_verdicts_total",
			Help:      "Validation engine verdicts on analyzer output.",
		}, []string{"verdict"}),
		CorrectionsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "platewise",
			Name:      "correction_rows_written_total",
			Help:      "Correction telemetry rows appended.",
		}),
		LearnerUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "platewise",
			Name:      "learner_updates_total",
			Help:      "Library entries updated by the online learner.",
		}),
		LearnerSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platewise",
			Name:      "learner_skips_total",
			Help:      "Observations the learner dropped, by reason.",
		}, []string{"reason"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "platewise",
			Name:      "analyzer_breaker_state",
			Help:      "Analyzer circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}

	reg.MustRegister(
		m.MealsCreated,
		m.AnalysisOutcomes,
		m.AnalysisDuration,
		m.ValidationVerdicts,
		m.CorrectionsWritten,
		m.LearnerUpdates,
		m.LearnerSkips,
		m.BreakerState,
	)
	return m
}

// ObserveMealCreated records one terminal meal status.
func (m *Metrics) ObserveMealCreated(status string) {
	if m == nil {
		return
	}
	m.MealsCreated.WithLabelValues(status).Inc()
}

// ObserveAnalysis records one analyzer outcome and its duration in seconds.
func (m *Metrics) ObserveAnalysis(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.AnalysisOutcomes.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(seconds)
}

// ObserveVerdict records one validation verdict.
func (m *Metrics) ObserveVerdict(verdict string) {
	if m == nil {
		return
	}
	m.ValidationVerdicts.WithLabelValues(verdict).Inc()
}

// ObserveCorrections records n appended correction rows.
func (m *Metrics) ObserveCorrections(n int) {
	if m == nil {
		return
	}
	m.CorrectionsWritten.Add(float64(n))
}

// ObserveLearnerUpdate records one library update.
func (m *Metrics) ObserveLearnerUpdate() {
	if m == nil {
		return
	}
	m.LearnerUpdates.Inc()
}

// ObserveLearnerSkip records one dropped observation.
func (m *Metrics) ObserveLearnerSkip(reason string) {
	if m == nil {
		return
	}
	m.LearnerSkips.WithLabelValues(reason).Inc()
}

// ObserveBreakerState records the analyzer breaker state.
func (m *Metrics) ObserveBreakerState(state float64) {
	if m == nil {
		return
	}
	m.BreakerState.Set(state)
}
