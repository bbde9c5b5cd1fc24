// Package metrics exposes Prometheus collectors for route resolution,
// server identity loads and daemon events.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "panelnav").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for load duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registerer receives the collectors.
	// Default: prometheus.DefaultRegisterer
	Registerer prometheus.Registerer

	// Gatherer backs Handler.
	// Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
}

// Option configures Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the load duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry registers the collectors on reg and serves them from it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registerer = reg
		c.Gatherer = reg
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "panelnav",
		Buckets:    prometheus.DefBuckets,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	}
}

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	resolutions    *prometheus.CounterVec
	loadsStarted   *prometheus.CounterVec
	loadDuration   *prometheus.HistogramVec
	loadsDiscarded prometheus.Counter
	activeSessions prometheus.Gauge
	daemonEvents   *prometheus.CounterVec
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registerer)

	return &Metrics{
		gatherer: cfg.Gatherer,

		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "resolutions_total",
			Help:        "Route resolutions by resolver and resulting screen",
			ConstLabels: cfg.ConstLabels,
		}, []string{"resolver", "screen"}),

		loadsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "server_loads_total",
			Help:        "Server identity loads started, by kind (initial or reload)",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),

		loadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "server_load_duration_seconds",
			Help:        "Duration of committed server identity loads",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"outcome"}),

		loadsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "server_loads_discarded_total",
			Help:        "Server identity loads whose result arrived after the session moved on",
			ConstLabels: cfg.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "navigation_sessions",
			Help:        "Navigation sessions currently tracked",
			ConstLabels: cfg.ConstLabels,
		}),

		daemonEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "daemon_events_total",
			Help:        "Daemon websocket events received, by event name",
			ConstLabels: cfg.ConstLabels,
		}, []string{"event"}),
	}
}

// ObserveResolution counts one resolve.
func (m *Metrics) ObserveResolution(resolver, screen string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(resolver, screen).Inc()
}

// LoadStarted implements session.Observer.
func (m *Metrics) LoadStarted(reload bool) {
	if m == nil {
		return
	}
	kind := "initial"
	if reload {
		kind = "reload"
	}
	m.loadsStarted.WithLabelValues(kind).Inc()
}

// LoadFinished implements session.Observer.
func (m *Metrics) LoadFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// LoadDiscarded implements session.Observer.
func (m *Metrics) LoadDiscarded() {
	if m == nil {
		return
	}
	m.loadsDiscarded.Inc()
}

// SetActiveSessions records the number of tracked navigation sessions.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// ObserveDaemonEvent counts one daemon websocket event.
func (m *Metrics) ObserveDaemonEvent(event string) {
	if m == nil {
		return
	}
	m.daemonEvents.WithLabelValues(event).Inc()
}

// Handler serves the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
