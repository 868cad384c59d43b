// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts authentication outcomes. A nil *Metrics is valid and
// records nothing, so services can run without a registry in tests.
type Metrics struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
}

// NewMetrics creates and registers the identity metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "identity",
			Name:      "registrations_total",
			Help:      "Account registrations by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "identity",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "identity",
			Name:      "verifications_total",
			Help:      "Email verification attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "identity",
			Name:      "token_refreshes_total",
			Help:      "Refresh token rotations by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.registrations, m.logins, m.verifications, m.refreshes)
	return m
}

func (m *Metrics) recordRegistration(outcome string) {
	if m != nil {
		m.registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) recordLogin(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) recordVerification(outcome string) {
	if m != nil {
		m.verifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) recordRefresh(outcome string) {
	if m != nil {
		m.refreshes.WithLabelValues(outcome).Inc()
	}
}

// Metric outcome labels.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)
