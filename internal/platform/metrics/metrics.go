package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics shared across the application.
type Metrics struct {
	DocumentsWritten  *prometheus.CounterVec
	DocumentsDeleted  *prometheus.CounterVec
	BroadcastsSent    prometheus.Counter
	SubscribersActive prometheus.Gauge
	BridgeMessages    prometheus.Counter
	BridgeDropped     prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		DocumentsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alphabase_documents_written_total",
			Help: "Total number of document writes, by collection",
		}, []string{"collection"}),
		DocumentsDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alphabase_documents_deleted_total",
			Help: "Total number of document deletions, by collection",
		}, []string{"collection"}),
		BroadcastsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alphabase_broadcasts_sent_total",
			Help: "Total number of change events fanned out to subscribers",
		}),
		SubscribersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "alphabase_subscribers_active",
			Help: "Number of currently connected realtime subscribers",
		}),
		BridgeMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alphabase_bridge_messages_total",
			Help: "Total number of device bus messages stored",
		}),
		BridgeDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alphabase_bridge_dropped_total",
			Help: "Total number of device bus messages dropped (malformed or unroutable)",
		}),
	}
}
