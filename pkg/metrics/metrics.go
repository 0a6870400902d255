// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package metrics exposes pinning rejections and connection outcomes as
// Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-keypin/pkg/echo"
	"github.com/jeremyhahn/go-keypin/pkg/keypin"
)

var (
	_ keypin.Observer         = (*Collector)(nil)
	_ echo.ConnectionRecorder = (*Collector)(nil)
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "keypin"

// Collector holds the process metrics on a private registry. It
// implements keypin.Observer.
type Collector struct {
	rejections  *prometheus.CounterVec
	pinnedKeys  prometheus.Gauge
	connections *prometheus.CounterVec
	registry    *prometheus.Registry
}

// New creates a Collector. An empty namespace selects DefaultNamespace.
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Total number of peers rejected by the key pin verifier",
		},
		[]string{"role", "kind"},
	)

	c.pinnedKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pinned_keys",
			Help:      "Number of public keys currently pinned",
		},
	)

	c.connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "echo",
			Name:      "connections_total",
			Help:      "Total number of echo connections by result",
		},
		[]string{"result"},
	)

	c.registry.MustRegister(
		c.rejections,
		c.pinnedKeys,
		c.connections,
	)

	return c
}

// ObserveRejection counts a rejected peer.
func (c *Collector) ObserveRejection(ev keypin.Event) {
	c.rejections.WithLabelValues(ev.Role.String(), ev.Kind.String()).Inc()
}

// SetPinnedKeys records the size of the active key set.
func (c *Collector) SetPinnedKeys(n int) {
	c.pinnedKeys.Set(float64(n))
}

// RecordConnection counts an echo connection outcome, one of
// echo.ResultAccepted or echo.ResultFailed.
func (c *Collector) RecordConnection(result string) {
	c.connections.WithLabelValues(result).Inc()
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
