package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hackgods/testing-registration/internal/registration"
)

// Metrics holds the Prometheus collectors of the registration engine.
type Metrics struct {
	RegistrationsCommitted *prometheus.CounterVec
	RegistrationsRejected  *prometheus.CounterVec
	EmployeesImportedTotal prometheus.Counter
	VisitorsEnqueued       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsCommitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "testing_registrations_committed_total",
			Help: "Visitor registrations written, by workflow",
		}, []string{"workflow"}),
		RegistrationsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "testing_registrations_rejected_total",
			Help: "Visitor registrations refused, by workflow, error kind and reason",
		}, []string{"workflow", "kind", "reason"}),
		EmployeesImportedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "testing_employees_imported_total",
			Help: "HR records written by employee imports",
		}),
		VisitorsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "testing_visitors_enqueued_total",
			Help: "Queue check-in attempts that reached the store, by outcome",
		}, []string{"matched"}),
	}
}

var _ registration.Recorder = (*Metrics)(nil)

func (m *Metrics) RegistrationCommitted(workflow string) {
	m.RegistrationsCommitted.WithLabelValues(workflow).Inc()
}

func (m *Metrics) RegistrationRejected(workflow string, kind registration.Kind, reason registration.Reason) {
	m.RegistrationsRejected.WithLabelValues(workflow, string(kind), string(reason)).Inc()
}

func (m *Metrics) EmployeesImported(count int) {
	m.EmployeesImportedTotal.Add(float64(count))
}

func (m *Metrics) VisitorEnqueued(ok bool) {
	m.VisitorsEnqueued.WithLabelValues(strconv.FormatBool(ok)).Inc()
}
