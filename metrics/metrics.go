// Package metrics exports engine telemetry to Prometheus. The Collector
// plugs into an engine.CallbackManager, so view-models need no changes.
package metrics

import (
	"context"
	"net/http"

	"github.com/hupe1980/viewflow/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector provides engine metrics collection.
type Collector struct {
	registry *prometheus.Registry

	enginesActive  *prometheus.GaugeVec
	enginesCreated *prometheus.CounterVec
	inputsTotal    *prometheus.CounterVec
	emitsTotal     *prometheus.CounterVec
	callsInFlight  *prometheus.GaugeVec
	callLatency    *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	debounceDrops  *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "viewflow"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.enginesActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "active",
			Help:      "Number of live (not disposed) engines per screen",
		},
		[]string{"screen"},
	)

	c.enginesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "created_total",
			Help:      "Total number of engines created per screen",
		},
		[]string{"screen"},
	)

	c.inputsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "events_total",
			Help:      "Total number of input events handled",
		},
		[]string{"screen", "input"},
	)

	c.emitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "emissions_total",
			Help:      "Total number of output emissions",
		},
		[]string{"screen", "output"},
	)

	c.callsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "call",
			Name:      "in_flight",
			Help:      "Number of collaborator calls started and not yet applied",
		},
		[]string{"screen"},
	)

	c.callLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "call",
			Name:      "duration_seconds",
			Help:      "Collaborator call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"screen", "call", "outcome"},
	)

	c.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "call",
			Name:      "errors_total",
			Help:      "Total number of collaborator failures converted to error outputs",
		},
		[]string{"screen", "call"},
	)

	c.debounceDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "debounce_dropped_total",
			Help:      "Total number of input values superseded inside a debounce window",
		},
		[]string{"screen", "input"},
	)

	c.registry.MustRegister(
		c.enginesActive,
		c.enginesCreated,
		c.inputsTotal,
		c.emitsTotal,
		c.callsInFlight,
		c.callLatency,
		c.errorsTotal,
		c.debounceDrops,
	)

	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Register attaches the collector to a callback manager.
func (c *Collector) Register(cm *engine.CallbackManager) {
	cm.RegisterCallback(c.Callbacks()...)
}

// Callbacks returns the engine callbacks feeding this collector.
func (c *Collector) Callbacks() []engine.Callback {
	on := func(t engine.CallbackType, fn func(cc *engine.CallbackContext)) engine.Callback {
		return engine.NewFunctionCallback(t, func(_ context.Context, cc *engine.CallbackContext) error {
			fn(cc)
			return nil
		})
	}

	return []engine.Callback{
		on(engine.CallbackCreate, func(cc *engine.CallbackContext) {
			c.enginesCreated.WithLabelValues(cc.Screen).Inc()
			c.enginesActive.WithLabelValues(cc.Screen).Inc()
		}),
		on(engine.CallbackOnDispose, func(cc *engine.CallbackContext) {
			c.enginesActive.WithLabelValues(cc.Screen).Dec()
		}),
		on(engine.CallbackBeforeInput, func(cc *engine.CallbackContext) {
			c.inputsTotal.WithLabelValues(cc.Screen, cc.Input).Inc()
		}),
		on(engine.CallbackAfterEmit, func(cc *engine.CallbackContext) {
			c.emitsTotal.WithLabelValues(cc.Screen, cc.Output).Inc()
		}),
		on(engine.CallbackCallStart, func(cc *engine.CallbackContext) {
			c.callsInFlight.WithLabelValues(cc.Screen).Inc()
		}),
		on(engine.CallbackCallEnd, func(cc *engine.CallbackContext) {
			c.callsInFlight.WithLabelValues(cc.Screen).Dec()
			outcome := "success"
			if cc.Err != nil {
				outcome = "error"
			}
			c.callLatency.WithLabelValues(cc.Screen, cc.Call, outcome).Observe(cc.Duration.Seconds())
		}),
		on(engine.CallbackOnError, func(cc *engine.CallbackContext) {
			c.errorsTotal.WithLabelValues(cc.Screen, cc.Call).Inc()
		}),
		on(engine.CallbackDebounceDrop, func(cc *engine.CallbackContext) {
			c.debounceDrops.WithLabelValues(cc.Screen, cc.Input).Inc()
		}),
	}
}
