// Package metrics declares the Prometheus collectors of the directory service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts collection fetches by collection and result.
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_fetch_total",
		Help: "Total number of collection fetches by collection and result",
	}, []string{"collection", "result"})

	// FetchLatency records how long a collection fetch took.
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "directory_fetch_latency_seconds",
		Help:    "Collection fetch latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	// NotificationsReceived counts change notifications by table.
	NotificationsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_notifications_total",
		Help: "Total change notifications received by table",
	}, []string{"table"})

	// MutationsTotal counts verify/suspend/delete operations by result.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_mutations_total",
		Help: "Total user mutations by operation, user type and result",
	}, []string{"operation", "user_type", "result"})

	// CollectionSize is the number of records currently held per collection.
	CollectionSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "directory_collection_size",
		Help: "Number of records held in the directory per collection",
	}, []string{"collection"})

	// StreamClients is the number of connected websocket watchers.
	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "directory_stream_clients",
		Help: "Number of connected directory stream clients",
	})
)

// Result maps an error to the result label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveFetch records the outcome and latency of a fetch started at start.
func ObserveFetch(collection string, start time.Time, err error) {
	FetchLatency.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	FetchTotal.WithLabelValues(collection, Result(err)).Inc()
}
