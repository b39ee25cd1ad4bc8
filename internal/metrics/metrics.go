// Package metrics collects and exposes Prometheus metrics for reloadconf.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all reloadconf-specific Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	// Swap engine metrics.
	SwapTotal     *prometheus.CounterVec
	RollbackTotal *prometheus.CounterVec

	// Supervised process metrics.
	ProcessStartTotal  prometheus.Counter
	ProcessReloadTotal *prometheus.CounterVec
	ProcessUp          prometheus.Gauge

	// Daemon-level metrics.
	CycleErrorTotal  prometheus.Counter
	SupervisorUptime prometheus.Gauge
	BuildInfo        *prometheus.GaugeVec
}

// New creates and registers all reloadconf metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()

	// Register default Go runtime metrics.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,

		SwapTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reloadconf_swap_total",
				Help: "Total number of resolved swap attempts by outcome.",
			},
			[]string{"outcome"},
		),

		RollbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reloadconf_swap_rollback_total",
				Help: "Total number of rollbacks by failed stage.",
			},
			[]string{"stage"},
		),

		ProcessStartTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reloadconf_process_start_total",
				Help: "Total number of times the supervised command was started.",
			},
		),

		ProcessReloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reloadconf_process_reload_total",
				Help: "Total number of reloads delivered, by method.",
			},
			[]string{"method"},
		),

		ProcessUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reloadconf_process_up",
				Help: "Whether the supervised command is currently running.",
			},
		),

		CycleErrorTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reloadconf_cycle_errors_total",
				Help: "Total number of poll cycles that ended in an error.",
			},
		),

		SupervisorUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reloadconf_supervisor_uptime_seconds",
				Help: "Uptime of the reloadconf daemon in seconds.",
			},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reloadconf_info",
				Help: "Build information about reloadconf.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		c.SwapTotal,
		c.RollbackTotal,
		c.ProcessStartTotal,
		c.ProcessReloadTotal,
		c.ProcessUp,
		c.CycleErrorTotal,
		c.SupervisorUptime,
		c.BuildInfo,
	)

	return c
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SetBuildInfo sets the constant build info gauge.
func (c *Collector) SetBuildInfo(version, goVersion string) {
	c.BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// IncSwap increments the swap counter for an outcome.
func (c *Collector) IncSwap(outcome string) {
	c.SwapTotal.WithLabelValues(outcome).Inc()
}

// IncRollback increments the rollback counter for a failed stage.
func (c *Collector) IncRollback(stage string) {
	c.RollbackTotal.WithLabelValues(stage).Inc()
}

// IncProcessStart increments the start counter.
func (c *Collector) IncProcessStart() {
	c.ProcessStartTotal.Inc()
}

// IncProcessReload increments the reload counter for a delivery method.
func (c *Collector) IncProcessReload(method string) {
	c.ProcessReloadTotal.WithLabelValues(method).Inc()
}

// SetProcessUp records supervised command liveness.
func (c *Collector) SetProcessUp(up bool) {
	if up {
		c.ProcessUp.Set(1)
	} else {
		c.ProcessUp.Set(0)
	}
}

// IncCycleError increments the cycle error counter.
func (c *Collector) IncCycleError() {
	c.CycleErrorTotal.Inc()
}

// SetSupervisorUptime sets the daemon uptime gauge.
func (c *Collector) SetSupervisorUptime(seconds float64) {
	c.SupervisorUptime.Set(seconds)
}
