package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
	"city-plot-engine/internal/domain/pricing"
)

// QuoteRequest is one pricing question. UserID may be empty: an anonymous
// quote prices as a brand-new free-tier account (full default allowance),
// which is exactly what the account would look like after lazy creation.
type QuoteRequest struct {
	UserID          string
	Position        model.Position
	Size            model.Size
	HasCustomModel  bool
	PremiumFeatures []string
}

// PricingUseCase answers read-only pricing quotes.
type PricingUseCase interface {
	Quote(ctx context.Context, req QuoteRequest) (*pricing.Breakdown, error)
}

var _ PricingUseCase = (*pricingUC)(nil)

type pricingUC struct {
	users     repository.UserRepository
	estimator EstimatorUseCase
	cfg       pricing.Config
	log       *zerolog.Logger
}

func NewPricingUseCase(users repository.UserRepository, estimator EstimatorUseCase, cfg pricing.Config, logger *zerolog.Logger) *pricingUC {
	return &pricingUC{users: users, estimator: estimator, cfg: cfg, log: logger}
}

// Quote never mutates state. Determinism: identical inputs against identical
// plot/transaction state produce identical breakdowns.
func (p *pricingUC) Quote(ctx context.Context, req QuoteRequest) (*pricing.Breakdown, error) {
	if !req.Size.Valid() {
		return nil, domain.ErrInvalidDimension
	}

	tier := model.TierFree
	remaining := model.DefaultFreeSquares + p.cfg.BonusSquares(model.TierFree)
	if req.UserID != "" {
		u, err := p.users.FindByID(ctx, repository.NoTX, req.UserID)
		switch {
		case err == nil:
			tier = u.SubscriptionTier
			remaining = pricing.RemainingFreeSquares(p.cfg, u)
		case errors.Is(err, domain.ErrNotFound):
			// not created yet; quote as a fresh account
		default:
			return nil, err
		}
	}

	est, err := p.estimator.Estimate(ctx, req.Position)
	if err != nil {
		return nil, err
	}

	return pricing.Calculate(p.cfg, pricing.Input{
		Size:                 req.Size,
		Tier:                 tier,
		RemainingFreeSquares: remaining,
		HasCustomModel:       req.HasCustomModel,
		PremiumFeatures:      req.PremiumFeatures,
		LocationMultiplier:   est.LocationMultiplier,
		DemandMultiplier:     est.DemandMultiplier,
	})
}
