package repository

import (
	"context"

	"city-plot-engine/internal/domain/model"
)

// PlotRepository persists allocated plots. Insert must fail with
// domain.ErrPositionOccupied when another plot already holds the position;
// inside a transaction that check-and-insert is a single atomic step (unique
// index arbitration), which is what guarantees at-most-one plot per position
// under concurrent purchases.
type PlotRepository interface {
	Insert(ctx context.Context, tx Tx, p *model.Plot) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plot, error)
	FindByPosition(ctx context.Context, tx Tx, pos model.Position) (*model.Plot, error)
	// CountWithinRadius counts plots whose position lies within radius of center.
	CountWithinRadius(ctx context.Context, tx Tx, center model.Position, radius float64) (int, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Plot, error)
	UpdatePaymentStatus(ctx context.Context, tx Tx, id string, status model.PlotPaymentStatus) error
}
