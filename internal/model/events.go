package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topic names events are published under. Ordering is guaranteed only
// within a single topic per publishing process.
const (
	TopicPresence  = "presence"
	TopicParty     = "party"
	TopicHeartbeat = "server-heartbeat"
)

// EventType identifies the type of event
type EventType string

const (
	// Presence events
	EventPlayerConnected EventType = "player_connected"
	EventStatusChanged   EventType = "status_changed"
	EventPlayerLeft      EventType = "player_left"

	// Party events
	EventPartyFormed        EventType = "party_formed"
	EventPartyInvited       EventType = "party_invited"
	EventPartyMemberAdded   EventType = "party_member_added"
	EventPartyMemberLeft    EventType = "party_member_left"
	EventPartyLeaderChanged EventType = "party_leader_changed"
	EventPartyInviteExpired EventType = "party_invite_expired"
	EventPartyDisbanded     EventType = "party_disbanded"

	// Server events
	EventServerHeartbeat EventType = "server_heartbeat"

	// EventBusReconnected is injected locally by the bus adapter after a
	// transport reconnect. Consumers should rebuild derived views rather
	// than trust deltas accumulated before the gap.
	EventBusReconnected EventType = "bus_reconnected"
)

// Event is the envelope carried on the bus. Payload is the JSON encoding
// of one of the payload structs below; delivery is at-least-once, so
// consumers dedup on ID where it matters.
type Event struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DecodePayload unmarshals the event payload into v
func (e *Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}

// PresencePayload is carried by presence topic events
type PresencePayload struct {
	PlayerID PlayerID      `json:"player_id"`
	ServerID ServerID      `json:"server_id,omitempty"`
	Status   SessionStatus `json:"status,omitempty"`
}

// PartyPayload is carried by party topic events
type PartyPayload struct {
	PartyID  PartyID  `json:"party_id"`
	PlayerID PlayerID `json:"player_id,omitempty"`
	LeaderID PlayerID `json:"leader_id,omitempty"`
}

// HeartbeatPayload is a backend server's periodic self-report
type HeartbeatPayload struct {
	ServerID    ServerID     `json:"server_id"`
	Address     string       `json:"address"`
	PlayerCount int          `json:"player_count"`
	Capacity    int          `json:"capacity"`
	Health      ServerHealth `json:"health"`
}
