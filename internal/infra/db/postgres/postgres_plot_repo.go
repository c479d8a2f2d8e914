package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
)

var _ repository.PlotRepository = (*PostgresPlotRepo)(nil)

type PostgresPlotRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlotRepo(pool *pgxpool.Pool) *PostgresPlotRepo {
	return &PostgresPlotRepo{pool: pool}
}

const plotColumns = `id, user_id, pos_x, pos_z, width, depth, total_cost, free_squares, paid_squares, price_per_square, payment_status, customizations, created_at`

// Insert is insert-or-fail: the unique index over (pos_x, pos_z) arbitrates
// concurrent purchases of the same position, so exactly one wins.
func (r *PostgresPlotRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Plot) error {
	const q = `
INSERT INTO plots (id, user_id, pos_x, pos_z, width, depth, total_cost, free_squares, paid_squares, price_per_square, payment_status, customizations, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.Position.X, p.Position.Z, p.Size.Width, p.Size.Depth,
		p.Pricing.TotalCostCents, p.Pricing.FreeSquares, p.Pricing.PaidSquares,
		p.Pricing.PricePerSquareCents, p.PaymentStatus, p.Customizations, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "plots_position_key") {
			return domain.ErrPositionOccupied
		}
		if isUniqueViolation(err, "") {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresPlotRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plot, error) {
	q := `SELECT ` + plotColumns + ` FROM plots WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlot(row)
}

func (r *PostgresPlotRepo) FindByPosition(ctx context.Context, tx repository.Tx, pos model.Position) (*model.Plot, error) {
	q := `SELECT ` + plotColumns + ` FROM plots WHERE pos_x=$1 AND pos_z=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, pos.X, pos.Z)
	if err != nil {
		return nil, err
	}
	return scanPlot(row)
}

func (r *PostgresPlotRepo) CountWithinRadius(ctx context.Context, tx repository.Tx, center model.Position, radius float64) (int, error) {
	const q = `
SELECT COUNT(*) FROM plots
 WHERE (pos_x-$1)*(pos_x-$1) + (pos_z-$2)*(pos_z-$2) <= $3*$3;`
	row, err := pickRow(ctx, r.pool, tx, q, center.X, center.Z, radius)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *PostgresPlotRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Plot, error) {
	q := `SELECT ` + plotColumns + ` FROM plots WHERE user_id=$1 ORDER BY created_at;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Plot
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresPlotRepo) UpdatePaymentStatus(ctx context.Context, tx repository.Tx, id string, status model.PlotPaymentStatus) error {
	const q = `UPDATE plots SET payment_status=$2 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, status)
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

func scanPlot(row pgx.Row) (*model.Plot, error) {
	var p model.Plot
	if err := row.Scan(&p.ID, &p.UserID, &p.Position.X, &p.Position.Z,
		&p.Size.Width, &p.Size.Depth,
		&p.Pricing.TotalCostCents, &p.Pricing.FreeSquares, &p.Pricing.PaidSquares,
		&p.Pricing.PricePerSquareCents, &p.PaymentStatus, &p.Customizations, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &p, nil
}
