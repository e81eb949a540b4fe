package storage

import (
	"context"

	"github.com/annel0/mmo-game/internal/mathx"
)

// PositionRepo persists a spawn position per authenticated account
// (auth.User.ID), so a returning player resumes near where they left
// off instead of always spawning at the fixed spawn point.
type PositionRepo interface {
	// Save stores the account's last known position.
	Save(ctx context.Context, userID uint64, pos mathx.Vec3) error

	// Load returns the account's stored position, or found=false on a
	// first-ever join.
	Load(ctx context.Context, userID uint64) (pos mathx.Vec3, found bool, err error)

	// Delete removes a stored position (tests, account reset).
	Delete(ctx context.Context, userID uint64) error

	// BatchSave stores several accounts' positions in one call, used by
	// a periodic autosave sweep.
	BatchSave(ctx context.Context, positions map[uint64]mathx.Vec3) error
}
