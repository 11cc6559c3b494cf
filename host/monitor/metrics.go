package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coreclock/core"
)

// Metrics holds the exporter registry and the collectors fed by Check
type Metrics struct {
	registry *prometheus.Registry

	coreHz      prometheus.Gauge
	sysclkHz    prometheus.Gauge
	vcoHz       prometheus.Gauge
	reports     prometheus.Counter
	mismatches  prometheus.Counter
	frameErrors prometheus.Counter
	dropped     prometheus.Counter
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		coreHz: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coreclock_core_hz",
			Help: "Core clock frequency reported by the firmware",
		}),
		sysclkHz: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coreclock_sysclk_hz",
			Help: "System clock before the core prescaler, derived from the reported registers",
		}),
		vcoHz: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coreclock_vco_hz",
			Help: "PLL1 VCO frequency, zero when PLL1 is not the system clock",
		}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coreclock_reports_total",
			Help: "Clock reports received",
		}),
		mismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coreclock_mismatch_total",
			Help: "Reports whose core clock differs from the host derivation",
		}),
		frameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coreclock_frame_errors_total",
			Help: "Corrupt frames skipped by the decoder",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coreclock_dropped_frames_total",
			Help: "Frames missing from the sequence",
		}),
	}
	m.registry.MustRegister(m.coreHz, m.sysclkHz, m.vcoHz, m.reports, m.mismatches, m.frameErrors, m.dropped)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(reported uint32, tree *core.ClockTree, mismatch bool) {
	m.reports.Inc()
	m.coreHz.Set(float64(reported))
	m.sysclkHz.Set(float64(tree.SysClk))
	m.vcoHz.Set(float64(tree.VCO))
	if mismatch {
		m.mismatches.Inc()
	}
}

// addFrameErrors and addDropped take deltas since the MCU keeps running totals
func (m *Metrics) addFrameErrors(n uint32) {
	if n > 0 {
		m.frameErrors.Add(float64(n))
	}
}

func (m *Metrics) addDropped(n uint32) {
	if n > 0 {
		m.dropped.Add(float64(n))
	}
}
