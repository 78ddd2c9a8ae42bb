package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/liamcoop/prrules/internal/logger"
	"github.com/liamcoop/prrules/rules"
)

var (
	// RecordsEvaluated counts purchase requests/orders matched against the catalog
	RecordsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prrules_records_evaluated_total",
			Help: "Total number of records evaluated against the rule catalog",
		},
	)

	// RuleChecks counts individual record/rule evaluations
	RuleChecks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prrules_rule_checks_total",
			Help: "Total number of rule checks executed",
		},
	)

	// RuleMatches counts positive rule checks, split by automatability
	RuleMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prrules_rule_matches_total",
			Help: "Total number of rule checks that matched",
		},
		[]string{"automatable"},
	)

	// RequestErrors counts failed API requests by type
	RequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prrules_request_errors_total",
			Help: "Total number of failed API requests by type",
		},
		[]string{"type"},
	)

	// EvaluationDuration tracks how long an evaluate request spends matching
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prrules_evaluation_duration_seconds",
			Help:    "Time spent matching records against the catalog, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LogErrors = promauto.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "prrules_log_errors_total",
			Help: "Total number of error-level log records",
		},
		func() float64 { return float64(logger.TotalErrors.Load()) },
	)

	LogWarnings = promauto.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "prrules_log_warnings_total",
			Help: "Total number of warning-level log records",
		},
		func() float64 { return float64(logger.TotalWarnings.Load()) },
	)
)

// Error type constants
const (
	ErrorTypeDecode  = "decode"
	ErrorTypeCatalog = "catalog"
	ErrorTypeStore   = "store"
)

// ObserveRun adds the counters of a finished run
func ObserveRun(run *rules.Run) {
	RecordsEvaluated.Add(float64(run.Records))
	RuleChecks.Add(float64(run.Checks))

	matches := 0
	for _, res := range run.Results {
		matches += len(res.MatchedRules)
	}
	RuleMatches.WithLabelValues("true").Add(float64(run.AutomatableMatches))
	RuleMatches.WithLabelValues("false").Add(float64(matches - run.AutomatableMatches))
}
