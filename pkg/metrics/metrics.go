package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hotelbook"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	// op: attach|detach, owner: hotel|user, outcome: ok|retry|failed|missing
	IntegrityOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "integrity_ops_total", Help: "Back-reference writes."},
		[]string{"op", "owner", "outcome"},
	)
	ReconcileFixes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "reconcile_fixes_total", Help: "Back-references repaired by the reconciler."},
		[]string{"owner", "action"},
	)
	BookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_ops_total", Help: "Booking mutations."},
		[]string{"op", "outcome"},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_published_total", Help: "Kafka publishes."},
		[]string{"topic", "outcome"},
	)
	IdempotencyEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "idempotency_events_total", Help: "Idempotency store hits/misses/conflicts."},
		[]string{"store", "event"},
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, IntegrityOps, ReconcileFixes, BookingOps, EventsPublished, IdempotencyEvents)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveIntegrity(op, owner, outcome string) {
	IntegrityOps.WithLabelValues(op, owner, outcome).Inc()
}

func ObserveReconcile(owner, action string, n int) {
	if n <= 0 {
		return
	}
	ReconcileFixes.WithLabelValues(owner, action).Add(float64(n))
}

func ObserveBooking(op string, err error) {
	BookingOps.WithLabelValues(op, Outcome(err)).Inc()
}

func ObservePublish(topic string, err error) {
	EventsPublished.WithLabelValues(topic, Outcome(err)).Inc()
}

func ObserveIdempotency(store, event string) {
	IdempotencyEvents.WithLabelValues(store, event).Inc()
}

func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
