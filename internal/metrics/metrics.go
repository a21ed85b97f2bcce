// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relaynotes"

// Label values for Writes.
const (
	WriteStored    = "stored"
	WriteDuplicate = "duplicate"
	WriteError     = "error"
)

// Label values for Publishes.
const (
	PublishOK    = "ok"
	PublishError = "error"
)

var (
	// Notifications counts inbound relay notifications by kind class
	// ("text_note", "metadata", "other") or "non_event".
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "ingest", Name: "notifications_total", Help: "Relay notifications received, by class."},
		[]string{"class"},
	)
	// Writes counts store outcomes for text notes.
	Writes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "ingest", Name: "writes_total", Help: "Event store writes, by result."},
		[]string{"result"},
	)
	// Publishes counts notes sent to the relay.
	Publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "relay", Name: "publishes_total", Help: "Notes published to the relay, by result."},
		[]string{"result"},
	)
	// RelayState is the current relay session state as its numeric value.
	RelayState = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Subsystem: "relay", Name: "state", Help: "Relay session state (0 disconnected, 1 connecting, 2 connected, 3 subscribed)."},
	)
	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "http", Name: "requests_total", Help: "HTTP API requests, by route and status."},
		[]string{"route", "code"},
	)
	// HTTPDuration observes API request latency by route.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds", Help: "HTTP API request latency.", Buckets: prometheus.DefBuckets},
		[]string{"route"},
	)
	// Exports counts backup export runs by destination and result.
	Exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: "sync", Name: "exports_total", Help: "Backup exports, by destination and result."},
		[]string{"destination", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		Notifications,
		Writes,
		Publishes,
		RelayState,
		HTTPRequests,
		HTTPDuration,
		Exports,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
