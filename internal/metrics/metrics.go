// Package metrics holds the service's Prometheus collectors. All methods are
// safe to call on a nil *Metrics so components can run without metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Geocode lookup results
const (
	GeocodeHit   = "hit"
	GeocodeMiss  = "miss"
	GeocodeError = "error"
)

// Email send results
const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailDropped = "dropped"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ordersPlaced    *prometheus.CounterVec
	geocodeLookups  *prometheus.CounterVec
	emailsSent      *prometheus.CounterVec
}

// New creates a dedicated registry with the service collectors plus the
// standard Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ordersPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_placed_total",
				Help: "Orders placed, by payment method.",
			},
			[]string{"payment_method"},
		),
		geocodeLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivery_geocode_lookups_total",
				Help: "Postal code geocode lookups by cache result.",
			},
			[]string{"result"},
		),
		emailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emails_sent_total",
				Help: "Transactional emails by outcome.",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.ordersPlaced,
		m.geocodeLookups,
		m.emailsSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) OrderPlaced(paymentMethod string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(paymentMethod).Inc()
}

func (m *Metrics) GeocodeLookup(result string) {
	if m == nil {
		return
	}
	m.geocodeLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) EmailResult(result string) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(result).Inc()
}
