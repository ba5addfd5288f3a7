package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-level Prometheus metrics. Store-level
// latency histograms live next to the stores that observe them.
type Metrics struct {
	PrefillsTotal        prometheus.Counter
	SubmissionsChecked   *prometheus.CounterVec
	ProviderCallFailures *prometheus.CounterVec
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		PrefillsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "formgate_prefills_total",
			Help: "Total number of successful identity prefills",
		}),
		SubmissionsChecked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_submission_checks_total",
			Help: "Submission verification outcomes by error code, outcome=ok on success",
		}, []string{"outcome"}),
		ProviderCallFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_provider_call_failures_total",
			Help: "Identity provider call failures by kind (fetch_failed vs breaker_open)",
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObservePrefill() {
	m.PrefillsTotal.Inc()
}

func (m *Metrics) ObserveSubmissionCheck(outcome string) {
	m.SubmissionsChecked.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProviderFailure(kind string) {
	m.ProviderCallFailures.WithLabelValues(kind).Inc()
}
