package repository

import (
	"context"

	"city-plot-engine/internal/domain/model"
)

// UserRepository persists the engine's per-account counters. Save performs an
// optimistic-concurrency write: it only succeeds when the stored Version still
// matches u.Version, and bumps it by one. Callers retry on conflict or run
// inside a transaction that serializes per user.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// FindByIDForUpdate locks the row inside the supplied transaction.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
}
