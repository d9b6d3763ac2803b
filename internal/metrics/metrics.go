package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeVerdict     = "verdict"
	OutcomeTooShort    = "too_short"
	OutcomeUnavailable = "unavailable"

	// LabelOther buckets model labels outside the configured categories.
	LabelOther = "other"
)

var (
	// sentinel_classifications_total{outcome=verdict|too_short|unavailable}
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_classifications_total",
		Help: "Messages run through the toxicity pipeline, by outcome",
	}, []string{"outcome"})

	// sentinel_labels_total{label=Aggro|Violence|...|OK}
	Labels = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_labels_total",
		Help: "Labels assigned by the toxicity pipeline",
	}, []string{"label"})

	ModelLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_model_latency_seconds",
		Help:    "Latency of moderation model classify calls",
		Buckets: prometheus.DefBuckets,
	})

	// sentinel_verdict_cache_total{result=hit|miss}
	VerdictCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_verdict_cache_total",
		Help: "Model verdict cache lookups",
	}, []string{"result"})

	// sentinel_flags_total{level=WARN|CRIT}
	Flags = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_flags_total",
		Help: "Messages flagged for moderator review",
	}, []string{"level"})

	HookFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_hook_failures_total",
		Help: "Event hook failures, by hook name",
	}, []string{"hook"})
)

func RecordClassification(outcome string) {
	Classifications.WithLabelValues(outcome).Inc()
}

func RecordLabel(label string) {
	Labels.WithLabelValues(label).Inc()
}

func ObserveModelLatency(d time.Duration) {
	ModelLatency.Observe(d.Seconds())
}

func RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	VerdictCache.WithLabelValues(result).Inc()
}

func RecordFlag(level string) {
	Flags.WithLabelValues(level).Inc()
}

func RecordHookFailure(hook string) {
	HookFailures.WithLabelValues(hook).Inc()
}
