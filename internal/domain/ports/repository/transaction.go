package repository

import (
	"context"
	"time"

	"city-plot-engine/internal/domain/model"
)

// TransactionRepository persists payment intents and their lifecycle.
// Save upserts by id; the idempotency key column is unique, so inserting a
// second transaction with the same key fails with domain.ErrAlreadyExists.
type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, tx Tx, key string) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.TransactionStatus, completedAt *time.Time) error
	// CountCompletedNear counts completed plot purchases since `since` whose
	// linked plot lies within radius of center. Feeds the demand estimator.
	CountCompletedNear(ctx context.Context, tx Tx, center model.Position, radius float64, since time.Time) (int, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)
	SumCompletedByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}
