package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrDuplicateSession  = errors.New("player already has an active session")
	ErrUnknownSession    = errors.New("no session exists for player")
	ErrInvalidTransition = errors.New("invalid session status transition")

	// Party errors
	ErrPartyNotFound     = errors.New("party not found")
	ErrNotLeader         = errors.New("player is not the party leader")
	ErrAlreadyInParty    = errors.New("player is already in a party")
	ErrNotInParty        = errors.New("player is not in a party")
	ErrNoInvite          = errors.New("player has no invite to this party")
	ErrInviteExpired     = errors.New("invite has expired")
	ErrMergeNotSupported = errors.New("cannot merge two multi-member parties")

	// Routing errors
	ErrNoAvailableServer = errors.New("no server available for routing")
	ErrUnknownPolicy     = errors.New("unknown routing policy")

	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrStaleWrite      = errors.New("profile version is stale")

	// Concurrency errors
	ErrVersionConflict = errors.New("record was modified by a concurrent writer")

	// Transport errors
	ErrPublishUnavailable = errors.New("event publish failed after retries")
	ErrBusClosed          = errors.New("event bus is closed")
)
