package pricing

import (
	"math"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
)

// Input is everything the calculator needs for one quote. Multipliers come
// from the demand/location estimator; RemainingFreeSquares from the quota
// ledger. The calculator itself touches no state.
type Input struct {
	Size                 model.Size
	Tier                 model.SubscriptionTier
	RemainingFreeSquares int
	HasCustomModel       bool
	PremiumFeatures      []string
	LocationMultiplier   float64
	DemandMultiplier     float64
}

// Breakdown is the full quote. TotalCostCents is what the buyer owes after
// the free allowance, fees, multipliers and the tier discount.
type Breakdown struct {
	TotalSquares             int     `json:"totalSquares"`
	FreeSquaresToUse         int     `json:"freeSquares"`
	PaidSquares              int     `json:"paidSquares"`
	PricePerSquareCents      int64   `json:"pricePerSquare"`
	LocationMultiplier       float64 `json:"locationMultiplier"`
	DemandMultiplier         float64 `json:"demandMultiplier"`
	PlotCostCents            int64   `json:"plotCost"`
	CustomModelFeeCents      int64   `json:"customModelFee"`
	PremiumFeaturesCents     int64   `json:"premiumFeaturesPrice"`
	SubscriptionDiscountCents int64  `json:"subscriptionDiscount"`
	TotalCostCents           int64   `json:"totalCost"`
}

// roundHalfUp converts a fractional cent amount to whole cents, rounding
// halves away from zero. Every monetary rounding in the engine goes through
// here so quotes and charges can never disagree by a cent.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// Calculate produces a deterministic quote. Returns ErrInvalidDimension for
// non-positive sizes. Zero multipliers are treated as 1.0 (no adjustment) so
// pure area quotes can skip the estimator.
func Calculate(cfg Config, in Input) (*Breakdown, error) {
	if !in.Size.Valid() {
		return nil, domain.ErrInvalidDimension
	}
	if in.RemainingFreeSquares < 0 {
		return nil, domain.ErrInvalidArgument
	}

	locMult := in.LocationMultiplier
	if locMult <= 0 {
		locMult = 1.0
	}
	demMult := in.DemandMultiplier
	if demMult <= 0 {
		demMult = 1.0
	}

	totalSquares := in.Size.Squares()
	freeToUse := totalSquares
	if in.RemainingFreeSquares < freeToUse {
		freeToUse = in.RemainingFreeSquares
	}
	paidSquares := totalSquares - freeToUse

	// Multipliers apply to the base area price, before fees and discounts.
	basePrice := float64(paidSquares) * float64(cfg.PricePerSquareCents)
	plotCost := roundHalfUp(basePrice * locMult * demMult)

	policy := cfg.Tier(in.Tier)

	var modelFee int64
	if in.HasCustomModel {
		modelFee = policy.CustomModelFeeCents
	}

	var featuresPrice int64
	for _, f := range in.PremiumFeatures {
		featuresPrice += cfg.FeaturePricesCents[f] // unknown keys price at 0
	}

	discount := roundHalfUp(float64(plotCost+modelFee+featuresPrice) * policy.DiscountRate)

	total := plotCost + modelFee + featuresPrice - discount
	if total < 0 {
		total = 0
	}

	return &Breakdown{
		TotalSquares:              totalSquares,
		FreeSquaresToUse:          freeToUse,
		PaidSquares:               paidSquares,
		PricePerSquareCents:       cfg.PricePerSquareCents,
		LocationMultiplier:        locMult,
		DemandMultiplier:          demMult,
		PlotCostCents:             plotCost,
		CustomModelFeeCents:       modelFee,
		PremiumFeaturesCents:      featuresPrice,
		SubscriptionDiscountCents: discount,
		TotalCostCents:            total,
	}, nil
}

// RemainingFreeSquares derives a user's unconsumed allowance from the tier
// table. Never negative.
func RemainingFreeSquares(cfg Config, u *model.User) int {
	if u == nil {
		return 0
	}
	rem := u.FreeSquaresLimit + cfg.BonusSquares(u.SubscriptionTier) - u.FreeSquaresUsed
	if rem < 0 {
		return 0
	}
	return rem
}
