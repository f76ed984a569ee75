package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the intake subsystem.
type Metrics struct {
	ClassificationsTotal *prometheus.CounterVec
	AdmissionsTotal      *prometheus.CounterVec
	AdmitDuration        prometheus.Histogram
	NotifyFailuresTotal  *prometheus.CounterVec
}

// NewMetrics registers and returns intake metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_classifications_total",
			Help: "Symptom classifications by assigned tier and whether a phrase matched.",
		}, []string{"tier", "matched"}),
		AdmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_admissions_total",
			Help: "Kiosk admissions by result.",
		}, []string{"result"}),
		AdmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kiosk_admit_duration_seconds",
			Help:    "Duration of a full admission (register, classify, record) in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		}),
		NotifyFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_notify_failures_total",
			Help: "Admission notifications that failed, by notifier.",
		}, []string{"notifier"}),
	}

	reg.MustRegister(
		m.ClassificationsTotal,
		m.AdmissionsTotal,
		m.AdmitDuration,
		m.NotifyFailuresTotal,
	)

	return m
}

func (m *Metrics) observeClassification(c Classification) {
	if m == nil {
		return
	}
	matched := "true"
	if c.MatchedPhrase == "" {
		matched = "false"
	}
	m.ClassificationsTotal.WithLabelValues(string(c.Tier), matched).Inc()
}

func (m *Metrics) observeAdmission(result string, seconds float64) {
	if m == nil {
		return
	}
	m.AdmissionsTotal.WithLabelValues(result).Inc()
	m.AdmitDuration.Observe(seconds)
}

func (m *Metrics) observeNotifyFailure(name string) {
	if m == nil {
		return
	}
	m.NotifyFailuresTotal.WithLabelValues(name).Inc()
}
