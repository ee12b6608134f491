package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// API
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests."},
		[]string{"handler", "method", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms..~10s
		},
		[]string{"handler", "method"},
	)
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notify_dispatch_total", Help: "Dispatch results."},
		[]string{"channel", "result"}, // accepted | rejected | queue_full | store_error
	)

	// Delivery
	DeliveryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notify_delivery_total", Help: "Delivery outcomes."},
		[]string{"channel", "outcome"}, // sent | failed
	)
	DeliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notify_delivery_duration_seconds",
			Help:    "Delivery latency including the channel round-trip.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms..~40s
		},
	)

	// Worker pool
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "notify_queue_depth", Help: "Tasks waiting in the delivery queue."},
	)

	// Listing
	DecodeSkips = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "notify_decode_skips_total", Help: "Stored records dropped from listings because they failed to decode."},
	)
)

var registerOnce sync.Once

// MustRegister registers default + our collectors. Only the first call
// registers, so tests can build the router repeatedly.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequests, HTTPDuration, DispatchTotal,
			DeliveryTotal, DeliveryDuration, QueueDepth, DecodeSkips,
		)
	})
}
