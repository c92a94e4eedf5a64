// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instrumentation for the auth API.

It covers three areas:

  - HTTP: request counts and latency, labelled by chi route pattern.
  - Security: login outcomes, registrations, and issued tokens.
  - Storage: PostgreSQL pool gauges sampled at scrape time.

All collectors are registered on a caller-supplied registry so tests can use
a fresh one per case.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taibuivan/apisegura/internal/platform/middleware"
)

const namespace = "apisegura"

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Security metrics
	LoginAttemptsTotal *prometheus.CounterVec
	RegistrationsTotal prometheus.Counter
	TokensIssuedTotal  *prometheus.CounterVec
}

// New creates and registers all collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		RegistrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Accounts created",
			},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_issued_total",
				Help:      "Tokens issued by kind (pair or access)",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.RegistrationsTotal,
		m.TokensIssuedTotal,
	)

	return m
}

// # Security Events

// LoginAttempt counts one login by outcome.
func (m *Metrics) LoginAttempt(outcome string) {
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// UserRegistered counts one new account.
func (m *Metrics) UserRegistered() {
	m.RegistrationsTotal.Inc()
}

// TokensIssued counts one issuance of the given kind.
func (m *Metrics) TokensIssued(kind string) {
	m.TokensIssuedTotal.WithLabelValues(kind).Inc()
}

// # Storage

// PoolStatter is satisfied by *pgxpool.Pool.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// ObservePool registers gauges that read pool statistics on every scrape.
func (m *Metrics) ObservePool(pool PoolStatter) {
	gauge := func(name, help string, value func(*pgxpool.Stat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
			func() float64 { return float64(value(pool.Stat())) },
		)
	}

	m.registry.MustRegister(
		gauge("db_connections_total", "Connections currently open", (*pgxpool.Stat).TotalConns),
		gauge("db_connections_acquired", "Connections currently in use", (*pgxpool.Stat).AcquiredConns),
		gauge("db_connections_idle", "Connections currently idle", (*pgxpool.Stat).IdleConns),
	)
}

// # HTTP

// Middleware instruments requests. The route label is the chi pattern, so
// /users/42 and /users/7 share one series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := middleware.NewStatusRecorder(writer)

		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := strconv.Itoa(recorder.Status)
		m.HTTPRequestsTotal.WithLabelValues(request.Method, route, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
