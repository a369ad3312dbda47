package extract

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the extraction subsystem.
type Metrics struct {
	ExtractionsTotal    *prometheus.CounterVec
	ExtractionDuration  *prometheus.HistogramVec
	ExtractionTokensIn  prometheus.Histogram
	ExtractionTokensOut prometheus.Histogram
	ConfidenceTotal     *prometheus.CounterVec
	LLMCallsTotal       prometheus.Counter
	LLMTokensIn         prometheus.Counter
	LLMTokensOut        prometheus.Counter
	LLMDuration         prometheus.Histogram
	SubmitsTotal        *prometheus.CounterVec
	TrackerCreatesTotal *prometheus.CounterVec
	FeedbackTotal       *prometheus.CounterVec
}

// NewMetrics registers and returns extraction metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExtractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_extractions_total",
			Help: "Total extraction runs by final status.",
		}, []string{"status"}),
		ExtractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_extraction_duration_seconds",
			Help:    "Duration of extraction runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}, []string{"status", "model"}),
		ExtractionTokensIn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_extraction_tokens_input",
			Help:    "Input tokens consumed per extraction run.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100 .. ~51200
		}),
		ExtractionTokensOut: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_extraction_tokens_output",
			Help:    "Output tokens consumed per extraction run.",
			Buckets: prometheus.ExponentialBuckets(50, 2, 8), // 50 .. ~6400
		}),
		ConfidenceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_extraction_confidence_total",
			Help: "Completed extractions by adjusted confidence level.",
		}, []string{"confidence"}),
		LLMCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_llm_calls_total",
			Help: "Total LLM provider calls.",
		}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_submits_total",
			Help: "Total message submissions by result.",
		}, []string{"result"}),
		TrackerCreatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_tracker_creates_total",
			Help: "Tracker issue creations by tracker name and status.",
		}, []string{"tracker", "status"}),
		FeedbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_feedback_total",
			Help: "Human feedback events by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.ExtractionsTotal,
		m.ExtractionDuration,
		m.ExtractionTokensIn,
		m.ExtractionTokensOut,
		m.ConfidenceTotal,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
		m.SubmitsTotal,
		m.TrackerCreatesTotal,
		m.FeedbackTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnLLMCall: func(inputTokens, outputTokens int, duration float64) {
			m.LLMCallsTotal.Inc()
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
			m.LLMDuration.Observe(duration)
		},
		OnComplete: func(e *CompleteEvent) {
			m.ExtractionsTotal.WithLabelValues(string(e.Status)).Inc()
			m.ExtractionDuration.WithLabelValues(string(e.Status), e.Model).Observe(e.Duration)
			m.ExtractionTokensIn.Observe(float64(e.TokensIn))
			m.ExtractionTokensOut.Observe(float64(e.TokensOut))
			if e.Status == StatusComplete {
				m.ConfidenceTotal.WithLabelValues(e.Confidence).Inc()
			}
		},
	}
}
