package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "province_quota"

// Login outcomes recorded by IncrementLogin.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Metrics tracks quota decisions and account activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TargetAdded    prometheus.Counter
	TargetRemoved  prometheus.Counter
	TargetRejected *prometheus.CounterVec
	Registrations  prometheus.Counter
	Logins         *prometheus.CounterVec
}

// New registers all counters with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TargetAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "target_added_total",
			Help:      "Total number of target provinces added to users",
		}),
		TargetRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "target_removed_total",
			Help:      "Total number of target provinces removed from users",
		}),
		TargetRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "target_rejected_total",
			Help:      "Rejected target province additions by rule",
		}, []string{"reason"}),
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of registered users",
		}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),
	}
}

// IncrementTargetAdded records a successful target province addition.
func (m *Metrics) IncrementTargetAdded() {
	if m == nil {
		return
	}
	m.TargetAdded.Inc()
}

// IncrementTargetRemoved records a removed target province.
func (m *Metrics) IncrementTargetRemoved() {
	if m == nil {
		return
	}
	m.TargetRemoved.Inc()
}

// IncrementTargetRejected records a rejected addition labelled by error code.
func (m *Metrics) IncrementTargetRejected(reason string) {
	if m == nil {
		return
	}
	m.TargetRejected.WithLabelValues(reason).Inc()
}

// IncrementRegistration records a new user account.
func (m *Metrics) IncrementRegistration() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

// IncrementLogin records a login attempt with LoginSuccess or LoginFailure.
func (m *Metrics) IncrementLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}
