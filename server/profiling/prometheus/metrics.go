/*
 * Copyright 2025 The Segue Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides the Prometheus metrics of the Segue server.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "segue"

// Metrics manages the metric information that the server collects.
type Metrics struct {
	registry *prometheus.Registry

	connectedSessions    prometheus.Gauge
	roomsCreatedTotal    prometheus.Counter
	mutationsTotal       *prometheus.CounterVec
	presenceUpdatesTotal prometheus.Counter
	broadcastsTotal      prometheus.Counter
	snapshotSavesTotal   *prometheus.CounterVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: registry,
		connectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "connected_sessions",
			Help:      "The number of currently connected sessions.",
		}),
		roomsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "created_total",
			Help:      "The total number of rooms created.",
		}),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "mutations_total",
			Help:      "The total number of document mutations applied, by operation.",
		}, []string{"op"}),
		presenceUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "presence_updates_total",
			Help:      "The total number of presence updates relayed.",
		}),
		broadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "broadcasts_total",
			Help:      "The total number of room broadcasts published.",
		}),
		snapshotSavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "saves_total",
			Help:      "The total number of snapshot save attempts, by result.",
		}, []string{"result"}),
	}

	for _, collector := range []prometheus.Collector{
		metrics.connectedSessions,
		metrics.roomsCreatedTotal,
		metrics.mutationsTotal,
		metrics.presenceUpdatesTotal,
		metrics.broadcastsTotal,
		metrics.snapshotSavesTotal,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return metrics, nil
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SessionConnected increments the connected session gauge.
func (m *Metrics) SessionConnected() {
	m.connectedSessions.Inc()
}

// SessionDisconnected decrements the connected session gauge.
func (m *Metrics) SessionDisconnected() {
	m.connectedSessions.Dec()
}

// RoomCreated counts a newly created room.
func (m *Metrics) RoomCreated() {
	m.roomsCreatedTotal.Inc()
}

// MutationApplied counts one applied mutation by operation name.
func (m *Metrics) MutationApplied(op string) {
	m.mutationsTotal.WithLabelValues(op).Inc()
}

// PresenceUpdated counts one relayed presence update.
func (m *Metrics) PresenceUpdated() {
	m.presenceUpdatesTotal.Inc()
}

// Broadcast counts one published room broadcast.
func (m *Metrics) Broadcast() {
	m.broadcastsTotal.Inc()
}

// SnapshotSaved counts one snapshot save attempt with its result.
func (m *Metrics) SnapshotSaved(result string) {
	m.snapshotSavesTotal.WithLabelValues(result).Inc()
}
