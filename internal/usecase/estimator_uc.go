package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
	"city-plot-engine/internal/domain/pricing"
)

// Estimate is the spatial pricing context for one position.
type Estimate struct {
	LocationMultiplier float64
	DemandMultiplier   float64
}

// EstimatorUseCase computes location and demand multipliers for a position.
// Read-only; staleness is acceptable here (pricing tolerates it, allocation
// does not depend on it for correctness).
type EstimatorUseCase interface {
	Estimate(ctx context.Context, pos model.Position) (Estimate, error)
}

var _ EstimatorUseCase = (*estimatorUC)(nil)

type estimatorUC struct {
	plots repository.PlotRepository
	txs   repository.TransactionRepository
	cfg   pricing.Config
	log   *zerolog.Logger
}

func NewEstimatorUseCase(plots repository.PlotRepository, txs repository.TransactionRepository, cfg pricing.Config, logger *zerolog.Logger) *estimatorUC {
	return &estimatorUC{plots: plots, txs: txs, cfg: cfg, log: logger}
}

// Estimate derives the location multiplier from the distance bands and the
// demand multiplier from nearby occupancy plus recent purchase activity,
// capped at the configured maximum.
func (e *estimatorUC) Estimate(ctx context.Context, pos model.Position) (Estimate, error) {
	est := Estimate{
		LocationMultiplier: e.cfg.LocationMultiplier(pos),
		DemandMultiplier:   1.0,
	}

	w := e.cfg.Demand

	nearby, err := e.plots.CountWithinRadius(ctx, repository.NoTX, pos, w.Radius)
	if err != nil {
		return Estimate{}, err
	}
	if w.NeighborhoodCapacity > 0 {
		ratio := float64(nearby) / float64(w.NeighborhoodCapacity)
		switch {
		case ratio >= w.OccupancyHigh:
			est.DemandMultiplier += w.OccupancyHighBump
		case ratio >= w.OccupancyMedium:
			est.DemandMultiplier += w.OccupancyMediumBump
		}
	}

	since := time.Now().Add(-time.Duration(w.WindowDays) * 24 * time.Hour)
	recent, err := e.txs.CountCompletedNear(ctx, repository.NoTX, pos, w.Radius, since)
	if err != nil {
		return Estimate{}, err
	}
	switch {
	case recent >= w.ActivityHigh:
		est.DemandMultiplier += w.ActivityHighBump
	case recent >= w.ActivityMedium:
		est.DemandMultiplier += w.ActivityMediumBump
	}

	if est.DemandMultiplier > w.Cap {
		est.DemandMultiplier = w.Cap
	}

	e.log.Debug().
		Float64("x", pos.X).Float64("z", pos.Z).
		Int("nearby_plots", nearby).Int("recent_purchases", recent).
		Float64("location_mult", est.LocationMultiplier).
		Float64("demand_mult", est.DemandMultiplier).
		Msg("estimated spatial multipliers")

	return est, nil
}
