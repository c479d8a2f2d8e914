// Package pricing holds the pure plot-pricing math: no I/O, no clocks, every
// input injected. The surrounding use cases feed it user quota state and the
// demand/location multipliers computed elsewhere.
package pricing

import "city-plot-engine/internal/domain/model"

// TierPolicy is the per-tier pricing knobs. One table serves both the
// calculator and the free-quota ledger; call sites never carry their own copy.
type TierPolicy struct {
	BonusSquares        int     `yaml:"bonus_squares"`
	DiscountRate        float64 `yaml:"discount_rate"` // 0..1
	CustomModelFeeCents int64   `yaml:"custom_model_fee_cents"`
}

// LocationBand maps a maximum distance from the map origin to a price
// multiplier. Bands are evaluated in order; the first one whose MaxDistance
// covers the plot wins.
type LocationBand struct {
	MaxDistance float64 `yaml:"max_distance"`
	Multiplier  float64 `yaml:"multiplier"`
}

// DemandWeights tunes the demand multiplier. Occupancy is nearby plot count
// over NeighborhoodCapacity; activity is purchase count inside the radius over
// the trailing window.
type DemandWeights struct {
	Radius               float64 `yaml:"radius"`
	WindowDays           int     `yaml:"window_days"`
	NeighborhoodCapacity int     `yaml:"neighborhood_capacity"`
	OccupancyHigh        float64 `yaml:"occupancy_high"`
	OccupancyMedium      float64 `yaml:"occupancy_medium"`
	OccupancyHighBump    float64 `yaml:"occupancy_high_bump"`
	OccupancyMediumBump  float64 `yaml:"occupancy_medium_bump"`
	ActivityHigh         int     `yaml:"activity_high"`
	ActivityMedium       int     `yaml:"activity_medium"`
	ActivityHighBump     float64 `yaml:"activity_high_bump"`
	ActivityMediumBump   float64 `yaml:"activity_medium_bump"`
	Cap                  float64 `yaml:"cap"`
}

// Config is the single injected pricing configuration.
type Config struct {
	PricePerSquareCents int64                                `yaml:"price_per_square_cents"`
	TierTable           map[model.SubscriptionTier]TierPolicy `yaml:"tier_table"`
	FeaturePricesCents  map[string]int64                     `yaml:"feature_prices_cents"`
	LocationBands       []LocationBand                       `yaml:"location_bands"`
	FallbackMultiplier  float64                              `yaml:"fallback_multiplier"` // beyond the last band
	Demand              DemandWeights                        `yaml:"demand"`
}

// DefaultConfig returns the production table. The tier rows are the unified
// mapping adopted after the old map UI and billing panel disagreed; premium
// and enterprise keep the 40% discount with the custom-model fee waived.
func DefaultConfig() Config {
	return Config{
		PricePerSquareCents: 100,
		TierTable: map[model.SubscriptionTier]TierPolicy{
			model.TierFree:       {BonusSquares: 0, DiscountRate: 0, CustomModelFeeCents: 2000},
			model.TierBasic:      {BonusSquares: 10, DiscountRate: 0.10, CustomModelFeeCents: 1500},
			model.TierStartup:    {BonusSquares: 15, DiscountRate: 0.10, CustomModelFeeCents: 1500},
			model.TierBusiness:   {BonusSquares: 30, DiscountRate: 0.20, CustomModelFeeCents: 1000},
			model.TierCorporate:  {BonusSquares: 50, DiscountRate: 0.30, CustomModelFeeCents: 500},
			model.TierPremium:    {BonusSquares: 25, DiscountRate: 0.40, CustomModelFeeCents: 0},
			model.TierEnterprise: {BonusSquares: 100, DiscountRate: 0.40, CustomModelFeeCents: 0},
		},
		FeaturePricesCents: map[string]int64{
			"billboard": 1000,
			"neon_sign": 500,
			"garden":    300,
			"fountain":  800,
			"helipad":   1500,
		},
		LocationBands: []LocationBand{
			{MaxDistance: 10, Multiplier: 2.0},
			{MaxDistance: 25, Multiplier: 1.5},
			{MaxDistance: 50, Multiplier: 1.0},
		},
		FallbackMultiplier: 0.8,
		Demand: DemandWeights{
			Radius:               20,
			WindowDays:           7,
			NeighborhoodCapacity: 50,
			OccupancyHigh:        0.6,
			OccupancyMedium:      0.3,
			OccupancyHighBump:    0.3,
			OccupancyMediumBump:  0.1,
			ActivityHigh:         10,
			ActivityMedium:       3,
			ActivityHighBump:     0.2,
			ActivityMediumBump:   0.1,
			Cap:                  2.0,
		},
	}
}

// Tier returns the policy row for a tier, degrading to the free row for
// anything unknown so a bad tier name can never grant benefits.
func (c Config) Tier(t model.SubscriptionTier) TierPolicy {
	if p, ok := c.TierTable[t]; ok {
		return p
	}
	return c.TierTable[model.TierFree]
}

// BonusSquares is the extra free-square allowance for a tier.
func (c Config) BonusSquares(t model.SubscriptionTier) int {
	return c.Tier(t).BonusSquares
}

// LocationMultiplier is the step function of distance from the origin.
func (c Config) LocationMultiplier(pos model.Position) float64 {
	d := pos.DistanceFromOrigin()
	for _, band := range c.LocationBands {
		if d <= band.MaxDistance {
			return band.Multiplier
		}
	}
	return c.FallbackMultiplier
}
