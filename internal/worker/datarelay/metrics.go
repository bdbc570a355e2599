// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package datarelay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/userrelay/core/envelope"
)

const (
	metricsNamespace = "userrelay"
	metricsSubsystem = "data"

	// Command labels outside the vocabulary.
	labelUnknown   = "unknown"
	labelMissing   = "missing"
	labelMalformed = "malformed"
)

// Collector is a prometheus.Collector that collects metrics about the
// data relay.
type Collector struct {
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "commands_total",
				Help:      "The number of commands handled, by command and outcome.",
			}, []string{"command", "outcome"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "command_duration_seconds",
				Help:      "The time taken to handle a command, including publishing its result.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			}, []string{"command"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.commands.Describe(ch)
	c.commandDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.commands.Collect(ch)
	c.commandDuration.Collect(ch)
}

func (c *Collector) observe(command string, result envelope.Result, elapsed time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if result.Error != nil {
		outcome = "error"
	}
	c.commands.WithLabelValues(command, outcome).Inc()
	c.commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// commandLabel bounds the command label to the vocabulary.
func commandLabel(cmd envelope.Command) string {
	switch {
	case !cmd.Present:
		return labelMissing
	case envelope.IsKnown(cmd.Name):
		return cmd.Name
	default:
		return labelUnknown
	}
}
