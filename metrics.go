package alwayshsts

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HeadersTotal *prometheus.CounterVec
	LookupsTotal *prometheus.CounterVec
	Upgrades     prometheus.Counter
	Swept        prometheus.Counter
}

// NewMetrics creates the metrics in a registry of their own.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		HeadersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "always_hsts_headers_total",
				Help: "Strict-Transport-Security headers processed, by result",
			},
			[]string{"result"},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "always_hsts_lookups_total",
				Help: "Secure host lookups, by result",
			},
			[]string{"result"},
		),
		Upgrades: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "always_hsts_upgrades_total",
				Help: "Requests upgraded from http to https",
			},
		),
		Swept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "always_hsts_swept_total",
				Help: "Expired site states removed by the sweeper",
			},
		),
	}
}

// Handler returns the Prometheus exposition handler for the metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) header(result string) {
	if m == nil {
		return
	}
	m.HeadersTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) lookup(secure bool) {
	if m == nil {
		return
	}
	result := "insecure"
	if secure {
		result = "secure"
	}
	m.LookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) upgrade() {
	if m == nil {
		return
	}
	m.Upgrades.Inc()
}

func (m *Metrics) swept() {
	if m == nil {
		return
	}
	m.Swept.Inc()
}
