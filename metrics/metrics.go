package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Deliveries counts events handed to the transport layer, by event name.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securechat_deliveries_total",
		Help: "Events pushed to the transport layer.",
	}, []string{"event"})

	// PresenceTransitions counts online/offline transitions.
	PresenceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securechat_presence_transitions_total",
		Help: "Presence transitions by resulting state.",
	}, []string{"state"})

	// ExpiredRequests counts chat requests swept into EXPIRED.
	ExpiredRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "securechat_expired_requests_total",
		Help: "Pending chat requests expired by the sweeper.",
	})
)
