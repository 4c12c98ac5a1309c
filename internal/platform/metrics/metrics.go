// Copyright (c) 2026 Blood Bridge. All rights reserved.

// Package metrics exposes Prometheus instrumentation for the portal.
//
// A nil [*Metrics] is valid everywhere and records nothing, which keeps unit
// tests free of registry plumbing.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the portal records into.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	gateDecisions       *prometheus.CounterVec
	interceptorOutcomes *prometheus.CounterVec
	roleLookups         *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		gatherer: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total HTTP requests served by the portal",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Latency of HTTP requests served by the portal",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_gate_decisions_total",
			Help: "Access gate decisions by resulting state",
		}, []string{"gate", "state"}),
		interceptorOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_interceptor_outcomes_total",
			Help: "Outbound authenticated calls by interceptor outcome",
		}, []string{"outcome"}),
		roleLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_role_lookups_total",
			Help: "Role resolutions by result (hit, fetched, none, error)",
		}, []string{"result"}),
	}

	registered := []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.gateDecisions,
		m.interceptorOutcomes,
		m.roleLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, collector := range registered {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// # Domain Recorders

// GateDecision counts one access gate decision.
func (m *Metrics) GateDecision(gate, state string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(gate, state).Inc()
}

// InterceptorOutcome counts one outbound call classification.
func (m *Metrics) InterceptorOutcome(outcome string) {
	if m == nil {
		return
	}
	m.interceptorOutcomes.WithLabelValues(outcome).Inc()
}

// RoleLookup counts one role resolution.
func (m *Metrics) RoleLookup(result string) {
	if m == nil {
		return
	}
	m.roleLookups.WithLabelValues(result).Inc()
}

// # HTTP Instrumentation

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(request.Method)

		m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(recorder.status)).Inc()
	})
}
