package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

const userColumns = `id, subscription_tier, free_squares_limit, free_squares_used, credits, total_spent, version, created_at, updated_at`

// Save upserts with optimistic concurrency: the update only applies while the
// stored version matches, and bumps it. Zero rows on an existing id means a
// concurrent writer won; surfaced as ErrOperationFailed so callers retry.
func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, subscription_tier, free_squares_limit, free_squares_used, credits, total_spent, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,1,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  subscription_tier=$2, free_squares_limit=$3, free_squares_used=$4,
  credits=$5, total_spent=$6, version=users.version+1, updated_at=$8
WHERE users.version=$9;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.SubscriptionTier, u.FreeSquaresLimit, u.FreeSquaresUsed,
		u.CreditsCents, u.TotalSpentCents, u.CreatedAt, u.UpdatedAt, u.Version)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOperationFailed
	}
	u.Version++
	return nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findByID(ctx, tx, id, false)
}

// FindByIDForUpdate locks the row within the enclosing transaction so the
// quota/credit read-modify-write cannot race a concurrent purchase.
func (r *PostgresUserRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findByID(ctx, tx, id, true)
}

func (r *PostgresUserRepo) findByID(ctx context.Context, tx repository.Tx, id string, forUpdate bool) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if forUpdate {
		if _, ok := tx.(pgx.Tx); ok {
			q += " FOR UPDATE"
		}
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.SubscriptionTier, &u.FreeSquaresLimit, &u.FreeSquaresUsed,
		&u.CreditsCents, &u.TotalSpentCents, &u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &u, nil
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
