package redis

import (
	"fmt"

	"github.com/mythichub/nexus/internal/model"
)

// Key prefix for all coordination data
const keyPrefix = "nexus"

// sessionKey returns the Redis key for a PlayerSession
func sessionKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// sessionIndexKey returns the Redis key for the SET of live session keys
func sessionIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", keyPrefix)
}

// partyKey returns the Redis key for a PartyState
func partyKey(id model.PartyID) string {
	return fmt.Sprintf("%s:party:%s", keyPrefix, id)
}

// partyIndexKey returns the Redis key for the player -> party index
func partyIndexKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:party_of:%s", keyPrefix, id)
}

// lastServerKey returns the Redis key recording a player's last server
func lastServerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:last_server:%s", keyPrefix, id)
}

// profileKey returns the Redis key for a cached PlayerProfile
func profileKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:profile:%s", keyPrefix, id)
}
