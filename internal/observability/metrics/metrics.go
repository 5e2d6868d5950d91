// Package metrics exposes the prometheus instruments shared across the
// membership services.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	webhookEvents    *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	emailsSent       *prometheus.CounterVec
	registrationRuns *prometheus.CounterVec
}

// New registers the domain instruments on the default registry.
func New() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberd_webhook_events_total",
		Help: "Gateway webhook events by provider, type and outcome.",
	}, []string{"provider", "event_type", "status"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberd_membership_transitions_total",
		Help: "Membership status transitions by target status.",
	}, []string{"to_status"})
	emailsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberd_emails_sent_total",
		Help: "Lifecycle emails by template and outcome.",
	}, []string{"template", "status"})
	registrationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memberd_registration_previews_total",
		Help: "Registration price previews by inferred type.",
	}, []string{"type"})

	registerer.MustRegister(webhookEvents, transitions, emailsSent, registrationRuns)

	return &Metrics{
		webhookEvents:    webhookEvents,
		transitions:      transitions,
		emailsSent:       emailsSent,
		registrationRuns: registrationRuns,
	}
}

// RecordWebhookEvent increments webhook event counts.
func (m *Metrics) RecordWebhookEvent(provider, eventType, status string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(
		strings.TrimSpace(provider),
		strings.TrimSpace(eventType),
		strings.TrimSpace(status),
	).Inc()
}

// RecordTransition increments membership transition counts.
func (m *Metrics) RecordTransition(toStatus string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(strings.TrimSpace(toStatus)).Inc()
}

// RecordEmail increments lifecycle email counts.
func (m *Metrics) RecordEmail(template, status string) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(strings.TrimSpace(template), strings.TrimSpace(status)).Inc()
}

// RecordRegistrationPreview increments registration preview counts.
func (m *Metrics) RecordRegistrationPreview(registrationType string) {
	if m == nil {
		return
	}
	m.registrationRuns.WithLabelValues(strings.TrimSpace(registrationType)).Inc()
}
