// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package observability records publish metrics, serves them while a run is
// in progress, and pushes them to a Prometheus Pushgateway when it ends.
package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/samber/oops"
)

// JobName is the Pushgateway job the metrics are grouped under.
const JobName = "cardsmith_publish"

// Metrics contains the counters for one cardsmith run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PublishAttempts prometheus.Counter
	AuthAttempts    *prometheus.CounterVec
	VerifyAttempts  *prometheus.CounterVec
	Sessions        *prometheus.CounterVec
}

// NewMetrics creates the metrics on a private registry so runs never touch
// the global one.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		PublishAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cardsmith_publish_attempts_total",
			Help: "Total number of registry publish invocations",
		}),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsmith_auth_attempts_total",
				Help: "Total number of registry logins by result",
			},
			[]string{"result"},
		),
		VerifyAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsmith_verify_attempts_total",
				Help: "Total number of ephemeral-run verification probes by result",
			},
			[]string{"result"},
		),
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsmith_sessions_total",
				Help: "Total number of publish sessions by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(m.PublishAttempts)
	registry.MustRegister(m.AuthAttempts)
	registry.MustRegister(m.VerifyAttempts)
	registry.MustRegister(m.Sessions)

	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordPublishAttempt counts one publish invocation.
func (m *Metrics) RecordPublishAttempt() {
	if m == nil {
		return
	}
	m.PublishAttempts.Inc()
}

// RecordAuthAttempt counts one login.
func (m *Metrics) RecordAuthAttempt(success bool) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(result(success)).Inc()
}

// RecordVerifyAttempt counts one verification probe.
func (m *Metrics) RecordVerifyAttempt(success bool) {
	if m == nil {
		return
	}
	m.VerifyAttempts.WithLabelValues(result(success)).Inc()
}

// RecordSession counts a finished session by its outcome.
func (m *Metrics) RecordSession(outcome string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(outcome).Inc()
}

// Push sends the metrics to the Pushgateway at url. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if m == nil || url == "" {
		return nil
	}
	err := push.New(url, JobName).
		Gatherer(m.registry).
		PushContext(ctx)
	if err != nil {
		return oops.Code("METRICS_PUSH_FAILED").With("url", url).Wrap(err)
	}
	slog.DebugContext(ctx, "pushed metrics", "url", url, "job", JobName)
	return nil
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
