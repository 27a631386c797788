package profile

import (
	"context"

	"github.com/mythichub/nexus/internal/model"
)

// Store is the durable document store behind the gateway. Get returns
// model.ErrProfileNotFound for unknown players. Upsert must ignore writes
// older than the stored version, so late flushes cannot roll a profile
// back.
type Store interface {
	Get(ctx context.Context, id model.PlayerID) (*model.PlayerProfile, error)
	Upsert(ctx context.Context, profile *model.PlayerProfile) error
	Close() error
}
