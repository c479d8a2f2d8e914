//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
	"city-plot-engine/internal/domain/pricing"
	"city-plot-engine/internal/usecase"
)

func newPricingUC(users *MockUserRepo, plots *MockPlotRepo, txs *MockTransactionRepo) usecase.PricingUseCase {
	cfg := pricing.DefaultConfig()
	logger := newTestLogger()
	est := usecase.NewEstimatorUseCase(plots, txs, cfg, logger)
	return usecase.NewPricingUseCase(users, est, cfg, logger)
}

func TestPricing_QuoteForKnownUser(t *testing.T) {
	ctx := context.Background()
	users := NewMockUserRepo()
	uc := newPricingUC(users, NewMockPlotRepo(), NewMockTransactionRepo())

	u, _ := model.NewUser("user-1", model.TierBasic)
	u.FreeSquaresUsed = 30 // 25 base + 10 bonus - 30 = 5 remaining
	_ = users.Save(ctx, repository.NoTX, u)

	bd, err := uc.Quote(ctx, usecase.QuoteRequest{
		UserID:   "user-1",
		Position: model.Position{X: 40, Z: 0},
		Size:     model.Size{Width: 3, Depth: 3},
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if bd.FreeSquaresToUse != 5 || bd.PaidSquares != 4 {
		t.Errorf("expected 5 free / 4 paid, got %d / %d", bd.FreeSquaresToUse, bd.PaidSquares)
	}
	// 4 * 100, then the basic 10% discount.
	if bd.TotalCostCents != 360 {
		t.Errorf("expected total 360, got %d", bd.TotalCostCents)
	}
}

func TestPricing_QuoteForUnknownUserUsesFreshAccount(t *testing.T) {
	ctx := context.Background()
	uc := newPricingUC(NewMockUserRepo(), NewMockPlotRepo(), NewMockTransactionRepo())

	for _, userID := range []string{"", "never-seen"} {
		bd, err := uc.Quote(ctx, usecase.QuoteRequest{
			UserID:   userID,
			Position: model.Position{X: 40, Z: 0},
			Size:     model.Size{Width: 5, Depth: 5},
		})
		if err != nil {
			t.Fatalf("userID=%q: expected no error, but got: %v", userID, err)
		}
		if bd.TotalCostCents != 0 {
			t.Errorf("userID=%q: a fresh free-tier account covers 25 squares, got cost %d", userID, bd.TotalCostCents)
		}
	}
}

func TestPricing_QuoteAppliesSpatialMultipliers(t *testing.T) {
	ctx := context.Background()
	users := NewMockUserRepo()
	uc := newPricingUC(users, NewMockPlotRepo(), NewMockTransactionRepo())

	u, _ := model.NewUser("user-1", model.TierFree)
	u.FreeSquaresUsed = u.FreeSquaresLimit
	_ = users.Save(ctx, repository.NoTX, u)

	// Center position: 2.0 location band, no nearby activity.
	bd, err := uc.Quote(ctx, usecase.QuoteRequest{
		UserID:   "user-1",
		Position: model.Position{X: 0, Z: 0},
		Size:     model.Size{Width: 2, Depth: 2},
	})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if bd.LocationMultiplier != 2.0 {
		t.Errorf("expected location multiplier 2.0, got %v", bd.LocationMultiplier)
	}
	if bd.TotalCostCents != 800 {
		t.Errorf("expected total 800, got %d", bd.TotalCostCents)
	}
}

func TestPricing_QuoteNeverMutates(t *testing.T) {
	ctx := context.Background()
	users := NewMockUserRepo()
	users.SaveFunc = func(ctx context.Context, tx repository.Tx, u *model.User) error {
		t.Fatal("Quote must never persist anything")
		return nil
	}
	uc := newPricingUC(users, NewMockPlotRepo(), NewMockTransactionRepo())

	u, _ := model.NewUser("user-1", model.TierFree)
	users.store["user-1"] = u

	if _, err := uc.Quote(ctx, usecase.QuoteRequest{
		UserID: "user-1",
		Size:   model.Size{Width: 5, Depth: 5},
	}); err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
}

func TestPricing_QuoteInvalidSize(t *testing.T) {
	ctx := context.Background()
	uc := newPricingUC(NewMockUserRepo(), NewMockPlotRepo(), NewMockTransactionRepo())

	if _, err := uc.Quote(ctx, usecase.QuoteRequest{Size: model.Size{}}); !errors.Is(err, domain.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
}
