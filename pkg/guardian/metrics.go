package guardian

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeInvalid = "invalid"
	outcomeFailed  = "failed"
	outcomeMatch   = "match"
	outcomeNoMatch = "no_match"
)

var (
	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_registrations_total",
		Help: "Content registrations by content type and outcome.",
	}, []string{"type", "outcome"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_verifications_total",
		Help: "Similarity verifications by content type and outcome.",
	}, []string{"type", "outcome"})

	scoringFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_scoring_failures_total",
		Help: "Candidates skipped because they could not be scored.",
	}, []string{"type"})

	licensesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardian_licenses_issued_total",
		Help: "Licenses appended to content records.",
	})

	verifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "guardian_verify_duration_seconds",
		Help:    "Time spent scanning the registry for a verification.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
)

// typeLabel keeps caller-supplied content types out of metric label values.
func typeLabel(t ContentType) string {
	if t.IsValid() {
		return string(t)
	}
	return "unknown"
}
