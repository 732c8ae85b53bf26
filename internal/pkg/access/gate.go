// Package access restricts the bot to its single owner.
package access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var denials = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_denied_total",
		Help: "Updates rejected because the sender is not the owner.",
	},
	[]string{"action"},
)

func init() {
	prometheus.MustRegister(denials)
}

type Gate struct {
	ownerID int64
}

func NewGate(ownerID int64) *Gate {
	return &Gate{ownerID: ownerID}
}

// Allow reports whether senderID is the owner. A denial is logged and
// counted under action ("start", "media", ...).
func (g *Gate) Allow(senderID int64, action string) bool {
	if senderID == g.ownerID {
		return true
	}
	denials.WithLabelValues(action).Inc()
	log.Warn().
		Int64("user_id", senderID).
		Str("action", action).
		Msg("unauthorized access attempt")
	return false
}
