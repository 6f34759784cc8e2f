// Package metrics exposes Prometheus collectors for page loads and the API.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector. All methods are no-ops on a nil receiver.
type Metrics struct {
	reg *prometheus.Registry

	pagesLoaded    prometheus.Counter
	recordsLoaded  prometheus.Counter
	loadFailures   prometheus.Counter
	signalsDropped prometheus.Counter
	httpRequests   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		pagesLoaded: f.NewCounter(prometheus.CounterOpts{
			Name: "pagetable_pages_loaded_total",
			Help: "Pages appended to the table",
		}),
		recordsLoaded: f.NewCounter(prometheus.CounterOpts{
			Name: "pagetable_records_loaded_total",
			Help: "Records appended to the table",
		}),
		loadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pagetable_load_failures_total",
			Help: "Loads that failed to fetch or persist a page",
		}),
		signalsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "pagetable_signals_dropped_total",
			Help: "Load triggers ignored because a load was in flight",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pagetable_http_requests_total",
			Help: "API requests by route pattern and status code",
		}, []string{"route", "code"}),
	}
}

// PageLoaded records a successful load.
func (m *Metrics) PageLoaded(records int) {
	if m == nil {
		return
	}
	m.pagesLoaded.Inc()
	m.recordsLoaded.Add(float64(records))
}

// LoadFailed records a failed load.
func (m *Metrics) LoadFailed() {
	if m == nil {
		return
	}
	m.loadFailures.Inc()
}

// SignalDropped records a dropped trigger.
func (m *Metrics) SignalDropped() {
	if m == nil {
		return
	}
	m.signalsDropped.Inc()
}

// HTTPRequest records a served API request.
func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}
