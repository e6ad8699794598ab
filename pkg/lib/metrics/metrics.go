// Package metrics exposes relay supervisor counters on the default
// Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relayd"

var (
	NodeUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "node_up",
		Help:      "1 while a relay node handle is published, 0 otherwise.",
	})

	Triggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "triggers_total",
		Help:      "Termination triggers that started the shutdown sequence.",
	}, []string{"trigger"})

	SnapshotsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_delivered_total",
		Help:      "Status snapshots pushed to consumers.",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_subscriptions",
		Help:      "Status streams currently being served.",
	})

	StopDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stop_duration_seconds",
		Help:      "Time spent stopping the relay node during shutdown.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
