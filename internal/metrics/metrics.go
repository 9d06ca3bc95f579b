// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics defines the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors.
type Metrics struct {
	Outcomes        *prometheus.CounterVec
	OTPValidations  *prometheus.CounterVec
	MailSends       *prometheus.CounterVec
	SenderRotations prometheus.Counter
	ResourcesMade   *prometheus.CounterVec
	ResolveFailures *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_outcomes_total",
			Help: "Verification state machine outcomes by operation and code",
		}, []string{"operation", "code"}),
		OTPValidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_otp_validations_total",
			Help: "OTP validations by result kind",
		}, []string{"kind"}),
		MailSends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_mail_sends_total",
			Help: "Mail send attempts by credential path and result",
		}, []string{"path", "result"}),
		SenderRotations: f.NewCounter(prometheus.CounterOpts{
			Name: "verify_mail_sender_rotations_total",
			Help: "Number of sender pool rotations",
		}),
		ResourcesMade: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_resources_created_total",
			Help: "Chat resources created by the resolver, by kind",
		}, []string{"kind"}),
		ResolveFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_resource_failures_total",
			Help: "Resolver steps that failed, by kind",
		}, []string{"kind"}),
	}
}

// Outcome counts a state machine outcome.
func (m *Metrics) Outcome(operation, code string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(operation, code).Inc()
}

// OTPValidation counts a ledger validation.
func (m *Metrics) OTPValidation(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "VALID"
	}
	m.OTPValidations.WithLabelValues(kind).Inc()
}

// MailSend counts a send attempt on the "pool" or "fallback" path.
func (m *Metrics) MailSend(path string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.MailSends.WithLabelValues(path, result).Inc()
}

// SenderRotated counts a pool rotation.
func (m *Metrics) SenderRotated() {
	if m == nil {
		return
	}
	m.SenderRotations.Inc()
}

// ResourceCreated counts a created role, group or channel.
func (m *Metrics) ResourceCreated(kind string) {
	if m == nil {
		return
	}
	m.ResourcesMade.WithLabelValues(kind).Inc()
}

// ResolveFailed counts a failed resolver step.
func (m *Metrics) ResolveFailed(kind string) {
	if m == nil {
		return
	}
	m.ResolveFailures.WithLabelValues(kind).Inc()
}
