package model

import "time"

// PartyID identifies a party
type PartyID string

// PartyMember is a single member of a party
type PartyMember struct {
	PlayerID PlayerID  `json:"player_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// PartyState is the owning record for one party. All mutation goes through
// the party coordinator; the version counter serializes concurrent edits
// from different processes.
type PartyState struct {
	ID       PartyID       `json:"id"`
	LeaderID PlayerID      `json:"leader_id"`
	Members  []PartyMember `json:"members"`

	// Invites maps invited players to invite expiry
	Invites map[PlayerID]time.Time `json:"invites,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// GetMember returns the member with the given player ID, or nil
func (p *PartyState) GetMember(id PlayerID) *PartyMember {
	for i := range p.Members {
		if p.Members[i].PlayerID == id {
			return &p.Members[i]
		}
	}
	return nil
}

// RemoveMember removes the member with the given player ID, reporting
// whether it was present
func (p *PartyState) RemoveMember(id PlayerID) bool {
	for i, m := range p.Members {
		if m.PlayerID == id {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			return true
		}
	}
	return false
}

// LongestTenured returns the member that joined earliest, or nil if the
// party is empty. Used for leadership succession.
func (p *PartyState) LongestTenured() *PartyMember {
	var oldest *PartyMember
	for i := range p.Members {
		if oldest == nil || p.Members[i].JoinedAt.Before(oldest.JoinedAt) {
			oldest = &p.Members[i]
		}
	}
	return oldest
}
