package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================
// Prometheus Metrics
// ============================================================

var (
	registerOnce sync.Once

	itemWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garden",
			Subsystem: "items",
			Name:      "writes_total",
			Help:      "Garden item writes by operation and outcome.",
		},
		[]string{"op", "success"},
	)
	realtimeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "garden",
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Currently connected realtime subscribers.",
		},
	)
	realtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garden",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Realtime events published by type.",
		},
		[]string{"type"},
	)
	realtimeDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "garden",
			Subsystem: "realtime",
			Name:      "dropped_total",
			Help:      "Subscribers dropped because their buffer was full.",
		},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(itemWrites, realtimeSubscribers, realtimeEvents, realtimeDropped)
	})
}

func RecordWrite(op string, ok bool) {
	success := "false"
	if ok {
		success = "true"
	}
	itemWrites.WithLabelValues(op, success).Inc()
}

func SubscriberAdded() {
	realtimeSubscribers.Inc()
}

func SubscriberRemoved() {
	realtimeSubscribers.Dec()
}

func EventPublished(eventType string) {
	realtimeEvents.WithLabelValues(eventType).Inc()
}

func SubscriberDropped() {
	realtimeDropped.Inc()
}
