package model

import "time"

// PlayerProfile is the durable per-player record. The persistence gateway
// owns it; the cache tier holds a bounded-lifetime copy that is never
// authoritative.
type PlayerProfile struct {
	PlayerID    PlayerID `json:"player_id"`
	DisplayName string   `json:"display_name"`
	Rank        string   `json:"rank,omitempty"`

	Stats      map[string]int64  `json:"stats,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Friends    []PlayerID        `json:"friends,omitempty"`

	LastSeen time.Time `json:"last_seen"`

	// Version is the optimistic concurrency counter. Save compares it
	// against the stored version and rejects stale writes.
	Version int64 `json:"version"`
}

// Clone returns a deep copy so callers can mutate without aliasing the
// cached record
func (p *PlayerProfile) Clone() *PlayerProfile {
	out := *p
	if p.Stats != nil {
		out.Stats = make(map[string]int64, len(p.Stats))
		for k, v := range p.Stats {
			out.Stats[k] = v
		}
	}
	if p.Attributes != nil {
		out.Attributes = make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			out.Attributes[k] = v
		}
	}
	if p.Friends != nil {
		out.Friends = append([]PlayerID(nil), p.Friends...)
	}
	return &out
}
