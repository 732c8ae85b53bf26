package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// relayedItems counts items by kind, send mode (single/album) and outcome.
	relayedItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_items_total",
			Help: "Media items handed to Telegram.",
		},
		[]string{"kind", "mode", "status"},
	)

	relayedAlbums = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_albums_total",
			Help: "Drained media groups by outcome.",
		},
		[]string{"status"},
	)

	// droppedItems counts album members without a grouped-media variant.
	droppedItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dropped_items_total",
			Help: "Album items dropped because their kind cannot be grouped.",
		},
		[]string{"kind"},
	)

	sendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_send_duration_seconds",
			Help:    "Duration of Bot API send calls, including rate limiter waits.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(relayedItems, relayedAlbums, droppedItems, sendLatency)
}
