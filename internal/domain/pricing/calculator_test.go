//go:build !integration

package pricing

import (
	"errors"
	"testing"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
)

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{1.49, 1},
		{1.5, 2},
		{2.5, 3},
		{37.5, 38},
		{100.0, 100},
	}
	for _, c := range cases {
		if got := roundHalfUp(c.in); got != c.want {
			t.Errorf("roundHalfUp(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCalculate_FreeAllowanceCoversEverything(t *testing.T) {
	cfg := DefaultConfig()

	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 5, Depth: 5},
		Tier:                 model.TierFree,
		RemainingFreeSquares: 25,
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if bd.TotalSquares != 25 {
		t.Errorf("expected 25 total squares, got %d", bd.TotalSquares)
	}
	if bd.FreeSquaresToUse != 25 {
		t.Errorf("expected all 25 squares free, got %d", bd.FreeSquaresToUse)
	}
	if bd.PaidSquares != 0 {
		t.Errorf("expected 0 paid squares, got %d", bd.PaidSquares)
	}
	if bd.TotalCostCents != 0 {
		t.Errorf("expected zero cost, got %d", bd.TotalCostCents)
	}
}

func TestCalculate_PartialAllowanceWithTierDiscount(t *testing.T) {
	cfg := DefaultConfig()

	// 25 squares, 10 still free: 15 paid at 100c, then the basic 10% discount.
	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 5, Depth: 5},
		Tier:                 model.TierBasic,
		RemainingFreeSquares: 10,
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if bd.FreeSquaresToUse != 10 || bd.PaidSquares != 15 {
		t.Fatalf("expected 10 free / 15 paid, got %d / %d", bd.FreeSquaresToUse, bd.PaidSquares)
	}
	if bd.PlotCostCents != 1500 {
		t.Errorf("expected plot cost 1500, got %d", bd.PlotCostCents)
	}
	if bd.SubscriptionDiscountCents != 150 {
		t.Errorf("expected discount 150, got %d", bd.SubscriptionDiscountCents)
	}
	if bd.TotalCostCents != 1350 {
		t.Errorf("expected total 1350, got %d", bd.TotalCostCents)
	}
}

func TestCalculate_PremiumWaivesModelFeeAndDiscountsFeatures(t *testing.T) {
	cfg := DefaultConfig()

	// Premium: 40% discount, custom model fee waived. 16 paid squares plus
	// billboard and neon_sign.
	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 4, Depth: 4},
		Tier:                 model.TierPremium,
		RemainingFreeSquares: 0,
		HasCustomModel:       true,
		PremiumFeatures:      []string{"billboard", "neon_sign"},
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if bd.CustomModelFeeCents != 0 {
		t.Errorf("expected waived model fee, got %d", bd.CustomModelFeeCents)
	}
	if bd.PremiumFeaturesCents != 1500 {
		t.Errorf("expected features price 1500, got %d", bd.PremiumFeaturesCents)
	}
	if bd.PlotCostCents != 1600 {
		t.Errorf("expected plot cost 1600, got %d", bd.PlotCostCents)
	}
	// 40% of (1600 + 0 + 1500) = 1240
	if bd.SubscriptionDiscountCents != 1240 {
		t.Errorf("expected discount 1240, got %d", bd.SubscriptionDiscountCents)
	}
	if bd.TotalCostCents != 1860 {
		t.Errorf("expected total 1860, got %d", bd.TotalCostCents)
	}
}

func TestCalculate_FreeTierPaysModelFee(t *testing.T) {
	cfg := DefaultConfig()

	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 2, Depth: 2},
		Tier:                 model.TierFree,
		RemainingFreeSquares: 25,
		HasCustomModel:       true,
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if bd.CustomModelFeeCents != 2000 {
		t.Errorf("expected model fee 2000, got %d", bd.CustomModelFeeCents)
	}
	if bd.TotalCostCents != 2000 {
		t.Errorf("expected total 2000 (fee only), got %d", bd.TotalCostCents)
	}
}

func TestCalculate_MultipliersApplyToBasePriceOnly(t *testing.T) {
	cfg := DefaultConfig()

	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 5, Depth: 2},
		Tier:                 model.TierFree,
		RemainingFreeSquares: 0,
		PremiumFeatures:      []string{"garden"},
		LocationMultiplier:   2.0,
		DemandMultiplier:     1.3,
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	// 10 * 100 * 2.0 * 1.3 = 2600; the garden (300) is not multiplied.
	if bd.PlotCostCents != 2600 {
		t.Errorf("expected plot cost 2600, got %d", bd.PlotCostCents)
	}
	if bd.TotalCostCents != 2900 {
		t.Errorf("expected total 2900, got %d", bd.TotalCostCents)
	}
}

func TestCalculate_ZeroMultipliersDefaultToOne(t *testing.T) {
	cfg := DefaultConfig()

	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 3, Depth: 3},
		Tier:                 model.TierFree,
		RemainingFreeSquares: 0,
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if bd.LocationMultiplier != 1.0 || bd.DemandMultiplier != 1.0 {
		t.Errorf("expected multipliers to default to 1.0, got %v / %v", bd.LocationMultiplier, bd.DemandMultiplier)
	}
	if bd.TotalCostCents != 900 {
		t.Errorf("expected total 900, got %d", bd.TotalCostCents)
	}
}

func TestCalculate_HalfCentAmountsRoundUp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PricePerSquareCents = 25

	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 1, Depth: 1},
		Tier:                 model.TierFree,
		RemainingFreeSquares: 0,
		LocationMultiplier:   1.5,
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	// 1 * 25 * 1.5 = 37.5 rounds to 38.
	if bd.PlotCostCents != 38 {
		t.Errorf("expected plot cost 38, got %d", bd.PlotCostCents)
	}
}

func TestCalculate_SquareConservation(t *testing.T) {
	cfg := DefaultConfig()
	for _, remaining := range []int{0, 1, 7, 24, 25, 26, 1000} {
		bd, err := Calculate(cfg, Input{
			Size:                 model.Size{Width: 5, Depth: 5},
			Tier:                 model.TierBasic,
			RemainingFreeSquares: remaining,
		})
		if err != nil {
			t.Fatalf("remaining=%d: unexpected error: %v", remaining, err)
		}
		if bd.FreeSquaresToUse+bd.PaidSquares != bd.TotalSquares {
			t.Errorf("remaining=%d: %d free + %d paid != %d total",
				remaining, bd.FreeSquaresToUse, bd.PaidSquares, bd.TotalSquares)
		}
		if bd.FreeSquaresToUse > remaining {
			t.Errorf("remaining=%d: consumed %d free squares", remaining, bd.FreeSquaresToUse)
		}
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	in := Input{
		Size:                 model.Size{Width: 7, Depth: 3},
		Tier:                 model.TierBusiness,
		RemainingFreeSquares: 4,
		HasCustomModel:       true,
		PremiumFeatures:      []string{"fountain", "helipad"},
		LocationMultiplier:   1.5,
		DemandMultiplier:     1.2,
	}
	first, err := Calculate(cfg, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Calculate(cfg, in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *again != *first {
			t.Fatalf("breakdown changed between identical calls: %+v vs %+v", again, first)
		}
	}
}

func TestCalculate_InvalidInputs(t *testing.T) {
	cfg := DefaultConfig()

	if _, err := Calculate(cfg, Input{Size: model.Size{Width: 0, Depth: 5}}); !errors.Is(err, domain.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension for zero width, got %v", err)
	}
	if _, err := Calculate(cfg, Input{Size: model.Size{Width: 3, Depth: -1}}); !errors.Is(err, domain.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension for negative depth, got %v", err)
	}
	if _, err := Calculate(cfg, Input{Size: model.Size{Width: 2, Depth: 2}, RemainingFreeSquares: -1}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for negative allowance, got %v", err)
	}
}

func TestCalculate_UnknownFeaturesPriceAtZero(t *testing.T) {
	cfg := DefaultConfig()

	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 1, Depth: 1},
		Tier:                 model.TierFree,
		RemainingFreeSquares: 1,
		PremiumFeatures:      []string{"moat", "drawbridge"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bd.PremiumFeaturesCents != 0 {
		t.Errorf("expected unknown features to cost 0, got %d", bd.PremiumFeaturesCents)
	}
}

func TestCalculate_UnknownTierDegradesToFree(t *testing.T) {
	cfg := DefaultConfig()

	bd, err := Calculate(cfg, Input{
		Size:                 model.Size{Width: 2, Depth: 2},
		Tier:                 model.SubscriptionTier("galactic"),
		RemainingFreeSquares: 0,
		HasCustomModel:       true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	free := cfg.Tier(model.TierFree)
	if bd.CustomModelFeeCents != free.CustomModelFeeCents {
		t.Errorf("expected free-tier model fee %d, got %d", free.CustomModelFeeCents, bd.CustomModelFeeCents)
	}
	if bd.SubscriptionDiscountCents != 0 {
		t.Errorf("expected no discount for unknown tier, got %d", bd.SubscriptionDiscountCents)
	}
}

func TestRemainingFreeSquares(t *testing.T) {
	cfg := DefaultConfig()

	u, _ := model.NewUser("u1", model.TierBusiness)
	// 25 base + 30 business bonus.
	if got := RemainingFreeSquares(cfg, u); got != 55 {
		t.Errorf("expected 55 remaining, got %d", got)
	}

	u.FreeSquaresUsed = 50
	if got := RemainingFreeSquares(cfg, u); got != 5 {
		t.Errorf("expected 5 remaining, got %d", got)
	}

	u.FreeSquaresUsed = 80
	if got := RemainingFreeSquares(cfg, u); got != 0 {
		t.Errorf("expected remaining to floor at 0, got %d", got)
	}

	if got := RemainingFreeSquares(cfg, nil); got != 0 {
		t.Errorf("expected 0 for nil user, got %d", got)
	}
}

func TestLocationMultiplierBands(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		pos  model.Position
		want float64
	}{
		{model.Position{X: 0, Z: 0}, 2.0},
		{model.Position{X: 6, Z: 8}, 2.0},   // distance 10, inclusive edge
		{model.Position{X: 15, Z: 0}, 1.5},
		{model.Position{X: 30, Z: 40}, 1.0}, // distance 50
		{model.Position{X: 100, Z: 0}, 0.8},
	}
	for _, c := range cases {
		if got := cfg.LocationMultiplier(c.pos); got != c.want {
			t.Errorf("LocationMultiplier(%v) = %v, want %v", c.pos, got, c.want)
		}
	}
}
