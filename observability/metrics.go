package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_total",
			Help: "Total number of inbound protocol events.",
		},
		[]string{"event"},
	)
	MessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of persisted chat messages.",
		},
	)
	ModerationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_moderation_actions_total",
			Help: "Total number of moderation actions.",
		},
		[]string{"action", "outcome"},
	)
	DroppedSendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ws_dropped_sends_total",
			Help: "Total number of outbound events dropped on a full send buffer.",
		},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		ActiveConnections,
		EventsTotal,
		MessagesTotal,
		ModerationActionsTotal,
		DroppedSendsTotal,
	)
}
