package observability

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/straywatch/straywatch/internal/core"
)

// Metrics holds process-wide counters for detection sessions and poll
// loops. The zero value is not usable; call NewMetrics.
type Metrics struct {
	// Detection session
	FramesReceived       atomic.Uint64
	FramesProcessed      atomic.Uint64
	ObservationsAppended atomic.Uint64
	AppendFailures       atomic.Uint64

	// Poll loop
	Polls        atomic.Uint64
	StalePolls   atomic.Uint64
	RowsSkipped  atomic.Uint64
	AlertsRaised atomic.Uint64
	NotifyErrors atomic.Uint64

	// Latest state
	CurrentCount atomic.Int64
	TierLevel    atomic.Int64

	registry *prometheus.Registry
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	FramesReceived       uint64 `json:"frames_received"`
	FramesProcessed      uint64 `json:"frames_processed"`
	ObservationsAppended uint64 `json:"observations_appended"`
	AppendFailures       uint64 `json:"append_failures"`
	Polls                uint64 `json:"polls"`
	StalePolls           uint64 `json:"stale_polls"`
	RowsSkipped          uint64 `json:"rows_skipped"`
	AlertsRaised         uint64 `json:"alerts_raised"`
	NotifyErrors         uint64 `json:"notify_errors"`
	CurrentCount         int64  `json:"current_count"`
	TierLevel            int64  `json:"tier_level"`
}

var tierLevels = map[core.Tier]int64{
	core.TierSafe:     0,
	core.TierCaution:  1,
	core.TierCritical: 2,
	core.TierDanger:   3,
}

// NewMetrics creates a Metrics instance with its own Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	u := func(v *atomic.Uint64) func() float64 {
		return func() float64 { return float64(v.Load()) }
	}
	i := func(v *atomic.Int64) func() float64 {
		return func() float64 { return float64(v.Load()) }
	}

	gauges := []struct {
		name, help string
		fn         func() float64
	}{
		{"straywatch_frames_received_total", "Detection frames received from the source", u(&m.FramesReceived)},
		{"straywatch_frames_processed_total", "Detection frames counted after frame skip", u(&m.FramesProcessed)},
		{"straywatch_observations_appended_total", "Observations appended to the log", u(&m.ObservationsAppended)},
		{"straywatch_append_failures_total", "Failed observation appends", u(&m.AppendFailures)},
		{"straywatch_polls_total", "View poll cycles", u(&m.Polls)},
		{"straywatch_stale_polls_total", "Poll cycles that kept stale data", u(&m.StalePolls)},
		{"straywatch_rows_skipped_total", "Malformed rows skipped while polling", u(&m.RowsSkipped)},
		{"straywatch_alerts_raised_total", "Alerts raised by the alert engine", u(&m.AlertsRaised)},
		{"straywatch_notify_errors_total", "Failed alert notifications", u(&m.NotifyErrors)},
		{"straywatch_current_count", "Latest counted objects", i(&m.CurrentCount)},
		{"straywatch_tier_level", "Latest status tier (0=Safe, 1=Caution, 2=Critical, 3=Danger)", i(&m.TierLevel)},
	}
	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.fn,
		))
	}
}

// RecordPoll accounts for one poll frame.
func (m *Metrics) RecordPoll(frame core.Frame) {
	m.Polls.Add(1)
	if frame.Stale {
		m.StalePolls.Add(1)
		return
	}
	m.RowsSkipped.Add(uint64(len(frame.Skipped)))
	if frame.HasData {
		m.CurrentCount.Store(int64(frame.Summary.Latest.Count))
		m.TierLevel.Store(tierLevels[frame.Summary.Tier])
	}
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		FramesReceived:       m.FramesReceived.Load(),
		FramesProcessed:      m.FramesProcessed.Load(),
		ObservationsAppended: m.ObservationsAppended.Load(),
		AppendFailures:       m.AppendFailures.Load(),
		Polls:                m.Polls.Load(),
		StalePolls:           m.StalePolls.Load(),
		RowsSkipped:          m.RowsSkipped.Load(),
		AlertsRaised:         m.AlertsRaised.Load(),
		NotifyErrors:         m.NotifyErrors.Load(),
		CurrentCount:         m.CurrentCount.Load(),
		TierLevel:            m.TierLevel.Load(),
	}
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
