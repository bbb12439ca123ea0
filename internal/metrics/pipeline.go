package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation pipeline metrics. Stage labels: sparse, dense, fuse,
// rerank, mmr.
var (
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reelrank",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each recommendation pipeline stage",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"stage"},
	)

	PipelineCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reelrank",
			Name:      "pipeline_stage_candidates",
			Help:      "Candidate count leaving each pipeline stage",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200},
		},
		[]string{"stage"},
	)

	RecommendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reelrank",
			Name:      "recommend_requests_total",
			Help:      "Total recommend calls by outcome",
		},
		[]string{"outcome"}, // "ok", "empty", "degraded"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(PipelineCandidates)
	prometheus.MustRegister(RecommendRequestsTotal)
	pipelineMetricsRegistered = true
}
