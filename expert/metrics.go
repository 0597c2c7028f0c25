package expert

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 是编排层的 Prometheus 指标。
type Metrics struct {
	Predictions        *prometheus.CounterVec // path: direct | llm
	Explanations       *prometheus.CounterVec // path: local | llm
	ExtractionFailures *prometheus.CounterVec // kind: probability | explanation
	SessionInit        *prometheus.CounterVec // result: ok | error
	ScorerDegraded     prometheus.Counter
	RAGBackfills       prometheus.Counter
}

// NewMetrics 创建指标，reg 非 nil 时注册到 reg。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_predictions_total",
				Help: "Count of churn probability predictions by path.",
			},
			[]string{"path"},
		),
		Explanations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_explanations_total",
				Help: "Count of churn explanations by path.",
			},
			[]string{"path"},
		),
		ExtractionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_extraction_failures_total",
				Help: "Count of generated outputs that could not be parsed, by kind.",
			},
			[]string{"kind"},
		),
		SessionInit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_session_init_total",
				Help: "Count of expert session initialization attempts by result.",
			},
			[]string{"result"},
		),
		ScorerDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "churn_scorer_degraded_total",
			Help: "Count of margin calls served by a scorer without any scoring capability.",
		}),
		RAGBackfills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "churn_rag_backfills_total",
			Help: "Count of embedding index backfills from the relational store.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Predictions,
			m.Explanations,
			m.ExtractionFailures,
			m.SessionInit,
			m.ScorerDegraded,
			m.RAGBackfills,
		)
	}
	return m
}
