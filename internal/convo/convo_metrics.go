package convo

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the context engine.
type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	ThreadsStarted   prometheus.Counter
	DecisionsTotal   prometheus.Counter
	ResolutionsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns engine metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_convo_messages_total",
			Help: "Messages processed by the context engine, by attention level.",
		}, []string{"attention"}),
		ThreadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_convo_threads_started_total",
			Help: "Conversation threads started by topic shift or channel silence.",
		}),
		DecisionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_convo_decisions_total",
			Help: "Decision sentences recorded.",
		}),
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_convo_resolutions_total",
			Help: "Pronoun and vague-reference resolutions, by entity kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.MessagesTotal,
		m.ThreadsStarted,
		m.DecisionsTotal,
		m.ResolutionsTotal,
	)

	return m
}

// Hooks returns engine hooks that increment the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnMessage: func(attentionLevel string, threadStarted bool) {
			m.MessagesTotal.WithLabelValues(attentionLevel).Inc()
			if threadStarted {
				m.ThreadsStarted.Inc()
			}
		},
		OnDecision: func() {
			m.DecisionsTotal.Inc()
		},
		OnResolve: func(kind string) {
			m.ResolutionsTotal.WithLabelValues(kind).Inc()
		},
	}
}
