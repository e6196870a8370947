// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package render

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Modes label render metrics.
const (
	ModeEmote    = "emote"
	ModeImage    = "image"
	ModeLanguage = "language"
)

// Status constants for render metrics.
const (
	StatusSuccess       = "success"
	StatusNotApplicable = "not_applicable"
	StatusError         = "error"
)

// Renders counts render attempts by mode and outcome.
var Renders = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "runicbabble_renders_total",
		Help: "Total number of render attempts",
	},
	[]string{"mode", "status"},
)

// RenderDuration observes how long successful renders take.
var RenderDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "runicbabble_render_duration_seconds",
		Help:    "Render duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"mode"},
)

// RegisterMetrics registers the render metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Renders)
	reg.MustRegister(RenderDuration)
}

// RecordRender counts one render attempt.
func RecordRender(mode, status string) {
	Renders.WithLabelValues(mode, status).Inc()
}

// RecordDuration observes the duration of one successful render.
func RecordDuration(mode string, d time.Duration) {
	RenderDuration.WithLabelValues(mode).Observe(d.Seconds())
}
