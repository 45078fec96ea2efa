package metrics

import "github.com/prometheus/client_golang/prometheus"

// History tracks history query fan-outs and exports.
type History struct {
	runs       prometheus.Counter
	superseded prometheus.Counter
	sections   *prometheus.CounterVec
	exports    *prometheus.CounterVec
}

// NewHistory registers the history collectors on reg when it is not nil.
// Methods on a nil *History are no-ops.
func NewHistory(reg prometheus.Registerer) *History {
	m := &History{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dtc_insights",
			Subsystem: "history",
			Name:      "runs_total",
			Help:      "History query fan-outs started.",
		}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dtc_insights",
			Subsystem: "history",
			Name:      "superseded_results_total",
			Help:      "Section results discarded because a newer run started.",
		}),
		sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtc_insights",
			Subsystem: "history",
			Name:      "section_failures_total",
			Help:      "Failed history sections by name.",
		}, []string{"section"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtc_insights",
			Subsystem: "history",
			Name:      "exports_total",
			Help:      "CSV exports by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.superseded, m.sections, m.exports)
	}
	return m
}

// RunStarted counts a fan-out of the three history sections.
func (m *History) RunStarted() {
	if m != nil {
		m.runs.Inc()
	}
}

// Superseded counts a section result dropped for a stale generation.
func (m *History) Superseded() {
	if m != nil {
		m.superseded.Inc()
	}
}

// SectionFailed counts a failed section: current, previous or events.
func (m *History) SectionFailed(section string) {
	if m != nil {
		m.sections.WithLabelValues(section).Inc()
	}
}

// Exported counts export outcomes: written, empty, archived, archive_failed.
func (m *History) Exported(outcome string) {
	if m != nil {
		m.exports.WithLabelValues(outcome).Inc()
	}
}
