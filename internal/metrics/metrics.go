// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus metrics for the streaming client.
//
// All methods are safe to call on a nil *Metrics, so components can take an
// optional collector without guarding every call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Send outcomes.
const (
	OutcomeComplete = "complete"
	OutcomeErrored  = "errored"
	OutcomeCanceled = "canceled"
	OutcomeRejected = "rejected"
)

// Frame drop reasons.
const (
	DropMalformed = "malformed"
	DropOversized = "oversized"
	DropEmpty     = "empty"
	DropClosed    = "closed"
)

// Metrics holds all Prometheus metrics for citechat.
type Metrics struct {
	registry *prometheus.Registry

	FramesTotal        *prometheus.CounterVec
	FramesDroppedTotal *prometheus.CounterVec
	SendsTotal         *prometheus.CounterVec
	StreamDuration     prometheus.Histogram
	Streaming          prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citechat_frames_total",
			Help: "Protocol frames decoded, by frame type",
		},
		[]string{"type"},
	)

	m.FramesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citechat_frames_dropped_total",
			Help: "Stream lines or frames dropped, by reason",
		},
		[]string{"reason"},
	)

	m.SendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citechat_sends_total",
			Help: "Send attempts, by outcome",
		},
		[]string{"outcome"},
	)

	m.StreamDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "citechat_stream_duration_seconds",
			Help:    "Time from send to reply termination",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	m.Streaming = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "citechat_streaming",
			Help: "1 while a reply is streaming",
		},
	)

	m.registry.MustRegister(
		m.FramesTotal,
		m.FramesDroppedTotal,
		m.SendsTotal,
		m.StreamDuration,
		m.Streaming,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the metrics in text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFrame counts a decoded frame.
func (m *Metrics) RecordFrame(frameType string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(frameType).Inc()
}

// RecordDrop counts a dropped line or frame.
func (m *Metrics) RecordDrop(reason string) {
	if m == nil {
		return
	}
	m.FramesDroppedTotal.WithLabelValues(reason).Inc()
}

// StreamStarted flips the streaming gauge on.
func (m *Metrics) StreamStarted() {
	if m == nil {
		return
	}
	m.Streaming.Set(1)
}

// RecordSend records the outcome of a send. Rejected sends carry no duration.
func (m *Metrics) RecordSend(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SendsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeRejected {
		return
	}
	m.Streaming.Set(0)
	m.StreamDuration.Observe(duration.Seconds())
}
