package compiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts compiler activity. A nil *Metrics records nothing.
type Metrics struct {
	compilations *prometheus.CounterVec
	deprecations *prometheus.CounterVec
	shortcuts    *prometheus.CounterVec
}

// NewMetrics registers the compiler counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		compilations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "selectir_compilations_total",
			Help: "Total number of select clause compilations by outcome.",
		}, []string{"outcome"}),
		deprecations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "selectir_deprecated_syntax_total",
			Help: "Total number of deprecated constructs compiled.",
		}, []string{"construct"}),
		shortcuts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "selectir_shortcuts_total",
			Help: "Total number of clauses compiled through the whole-clause shortcut.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) compiled(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.compilations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) deprecated(construct string) {
	if m == nil {
		return
	}
	m.deprecations.WithLabelValues(construct).Inc()
}

func (m *Metrics) shortcut(kind string) {
	if m == nil {
		return
	}
	m.shortcuts.WithLabelValues(kind).Inc()
}
