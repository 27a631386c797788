package model

import "time"

// PlayerID uniquely identifies a player across the whole network
type PlayerID string

// ServerID identifies a backend game server
type ServerID string

// SessionStatus represents the lifecycle state of a player session
type SessionStatus string

const (
	StatusConnecting    SessionStatus = "connecting"
	StatusActive        SessionStatus = "active"
	StatusTransferring  SessionStatus = "transferring"
	StatusDisconnecting SessionStatus = "disconnecting"
)

// PlayerSession records where a connected player currently is.
// Owned by the session registry; other components treat it as read-only.
type PlayerSession struct {
	PlayerID    PlayerID      `json:"player_id"`
	ServerID    ServerID      `json:"server_id,omitempty"` // empty while in transit
	Status      SessionStatus `json:"status"`
	ConnectedAt time.Time     `json:"connected_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// TransferTo is the destination server while the session is
	// transferring; TransferStartedAt lets the registry force-close
	// transfers that never complete.
	TransferTo        ServerID  `json:"transfer_to,omitempty"`
	TransferStartedAt time.Time `json:"transfer_started_at,omitempty"`

	// Version increments on every mutation; concurrent writers use it to
	// detect that they raced and must retry against fresh state.
	Version int64 `json:"version"`
}

// CanTransition reports whether the session status state machine allows
// moving from the current status to the given one.
func (s *PlayerSession) CanTransition(to SessionStatus) bool {
	switch s.Status {
	case StatusConnecting:
		return to == StatusActive || to == StatusDisconnecting
	case StatusActive:
		return to == StatusTransferring || to == StatusDisconnecting
	case StatusTransferring:
		return to == StatusActive || to == StatusDisconnecting
	case StatusDisconnecting:
		return false
	}
	return false
}
