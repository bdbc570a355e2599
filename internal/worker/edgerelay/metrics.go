// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package edgerelay

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "userrelay"
	metricsSubsystem = "edge"
)

// Reply delivery routes, used as metric labels.
const (
	deliveryBroadcast  = "broadcast"
	deliveryCorrelated = "correlated"
	deliveryBound      = "bound"
	deliveryDropped    = "dropped"
)

// Collector is a prometheus.Collector that collects metrics about the edge
// relay.
type Collector struct {
	connections       prometheus.Gauge
	commandsForwarded prometheus.Counter
	replies           *prometheus.CounterVec
	sendFailures      prometheus.Counter
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "connections",
				Help:      "The number of registered user connections.",
			},
		),
		commandsForwarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "commands_forwarded_total",
				Help:      "The number of commands forwarded to the requests queue.",
			},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "replies_total",
				Help:      "The number of replies consumed, by how they were delivered.",
			}, []string{"delivery"},
		),
		sendFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "send_failures_total",
				Help:      "The number of connections dropped after a failed send.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.connections.Describe(ch)
	c.commandsForwarded.Describe(ch)
	c.replies.Describe(ch)
	c.sendFailures.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.connections.Collect(ch)
	c.commandsForwarded.Collect(ch)
	c.replies.Collect(ch)
	c.sendFailures.Collect(ch)
}

func (c *Collector) setConnections(n int) {
	if c != nil {
		c.connections.Set(float64(n))
	}
}

func (c *Collector) forwarded() {
	if c != nil {
		c.commandsForwarded.Inc()
	}
}

func (c *Collector) replied(delivery string) {
	if c != nil {
		c.replies.WithLabelValues(delivery).Inc()
	}
}

func (c *Collector) sendFailed() {
	if c != nil {
		c.sendFailures.Inc()
	}
}
