package request

// ConnectRequest is the proxy's notification that a player is connecting
type ConnectRequest struct {
	PlayerID string `json:"player_id"`
}

// ArrivalRequest confirms a player landed on a server
type ArrivalRequest struct {
	PlayerID string `json:"player_id"`
	ServerID string `json:"server_id"`
}

// DisconnectRequest is the proxy's notification that a player left
type DisconnectRequest struct {
	PlayerID string `json:"player_id"`
}

// InviteRequest invites a player into the issuer's party
type InviteRequest struct {
	LeaderID string `json:"leader_id"`
	TargetID string `json:"target_id"`
}

// AcceptInviteRequest accepts a pending party invite
type AcceptInviteRequest struct {
	PlayerID string `json:"player_id"`
	PartyID  string `json:"party_id"`
}

// LeavePartyRequest removes a player from their party
type LeavePartyRequest struct {
	PlayerID string `json:"player_id"`
}
