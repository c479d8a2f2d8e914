package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*PostgresTransactionRepo)(nil)

type PostgresTransactionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTransactionRepo(pool *pgxpool.Pool) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{pool: pool}
}

const txColumns = `id, user_id, plot_id, amount, currency, type, status, idempotency_key, client_secret, metadata, created_at, updated_at, completed_at`

func (r *PostgresTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (id, user_id, plot_id, amount, currency, type, status, idempotency_key, client_secret, metadata, created_at, updated_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  plot_id=$3, amount=$4, currency=$5, type=$6, status=$7,
  idempotency_key=$8, client_secret=$9, metadata=$10, updated_at=$12, completed_at=$13;`
	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.PlotID, t.AmountCents, t.Currency, t.Type, t.Status,
		t.IdempotencyKey, t.ClientSecret, t.Metadata, t.CreatedAt, t.UpdatedAt, t.CompletedAt)
	if err != nil {
		if isUniqueViolation(err, "transactions_idempotency_key_key") {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM transactions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *PostgresTransactionRepo) FindByIdempotencyKey(ctx context.Context, tx repository.Tx, key string) (*model.Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM transactions WHERE idempotency_key=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, key)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *PostgresTransactionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, completedAt *time.Time) error {
	const q = `UPDATE transactions SET status=$2, completed_at=COALESCE($3, completed_at), updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, status, completedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresTransactionRepo) CountCompletedNear(ctx context.Context, tx repository.Tx, center model.Position, radius float64, since time.Time) (int, error) {
	const q = `
SELECT COUNT(*)
  FROM transactions t
  JOIN plots p ON p.id = t.plot_id
 WHERE t.type = 'plot_purchase'
   AND t.status = 'completed'
   AND t.completed_at >= $4
   AND (p.pos_x-$1)*(p.pos_x-$1) + (p.pos_z-$2)*(p.pos_z-$2) <= $3*$3;`
	row, err := pickRow(ctx, r.pool, tx, q, center.X, center.Z, radius, since)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *PostgresTransactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + txColumns + ` FROM transactions WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresTransactionRepo) SumCompletedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM transactions WHERE status='completed' AND completed_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	if err := row.Scan(&t.ID, &t.UserID, &t.PlotID, &t.AmountCents, &t.Currency,
		&t.Type, &t.Status, &t.IdempotencyKey, &t.ClientSecret, &t.Metadata,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &t, nil
}
