package model

import "time"

// ServerHealth is the self-reported health of a backend server
type ServerHealth string

const (
	HealthHealthy     ServerHealth = "healthy"
	HealthDraining    ServerHealth = "draining"
	HealthUnreachable ServerHealth = "unreachable"
)

// ServerDescriptor is a backend server as seen through its heartbeats.
// The router keeps a cache of these; servers self-report, so the cache is
// never the source of truth.
type ServerDescriptor struct {
	ID          ServerID     `json:"id"`
	Address     string       `json:"address"`
	PlayerCount int          `json:"player_count"`
	Capacity    int          `json:"capacity"`
	Health      ServerHealth `json:"health"`
	LastSeen    time.Time    `json:"last_seen"`
}

// Routable reports whether the server can accept a new player
func (d *ServerDescriptor) Routable() bool {
	return d.Health == HealthHealthy && d.PlayerCount < d.Capacity
}
