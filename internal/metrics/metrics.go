package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess       = "success"
	OutcomeClientError   = "client_error"
	OutcomeInternalError = "internal_error"
)

// Metrics tracks the registration and confirmation flows.
type Metrics struct {
	Registrations      *prometheus.CounterVec
	Confirmations      *prometheus.CounterVec
	NotificationErrors prometheus.Counter
	EmailsSent         *prometheus.CounterVec
}

// New registers the metrics on reg. A nil *Metrics records nothing. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_customer_registrations_total",
			Help: "Customer registrations by outcome",
		}, []string{"outcome"}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_customer_confirmations_total",
			Help: "Email confirmations by outcome",
		}, []string{"outcome"}),
		NotificationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "bank_confirmation_notification_errors_total",
			Help: "Confirmation emails that could not be handed to the queue",
		}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_confirmation_emails_total",
			Help: "Confirmation email deliveries attempted by the worker",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.Confirmations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementNotificationErrors() {
	if m == nil {
		return
	}
	m.NotificationErrors.Inc()
}

func (m *Metrics) ObserveEmailSent(outcome string) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(outcome).Inc()
}
