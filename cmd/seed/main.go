package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/google/uuid"

	"city-plot-engine/internal/config"
	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
	pg "city-plot-engine/internal/infra/db/postgres"
)

// Dev bootstrap: applies the schema and seeds a handful of demo accounts and
// already-allocated plots near the city center so quotes show non-trivial
// demand and location multipliers out of the box.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.ApplySchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema applied")

	userRepo := pg.NewPostgresUserRepo(pool)
	plotRepo := pg.NewPostgresPlotRepo(pool)

	n, err := userRepo.CountUsers(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("count users: %v", err)
	}
	if n > 0 {
		fmt.Printf("%d users already present. No changes.\n", n)
		return
	}

	seedUsers := []struct {
		ID   string
		Tier model.SubscriptionTier
	}{
		{"demo-free", model.TierFree},
		{"demo-basic", model.TierBasic},
		{"demo-business", model.TierBusiness},
		{"demo-premium", model.TierPremium},
	}
	for _, s := range seedUsers {
		u, err := model.NewUser(s.ID, s.Tier)
		if err != nil {
			log.Fatalf("new user %q: %v", s.ID, err)
		}
		if err := userRepo.Save(ctx, repository.NoTX, u); err != nil {
			log.Fatalf("save user %q: %v", s.ID, err)
		}
		fmt.Printf("seeded user: %s (tier=%s, free_squares=%d)\n",
			u.ID, u.SubscriptionTier, u.FreeSquaresLimit+cfg.Pricing.BonusSquares(s.Tier))
	}

	// A cluster of occupied plots near the origin to light up the demand
	// estimator for nearby quotes.
	seedPlots := []struct {
		Owner string
		X, Z  float64
	}{
		{"demo-basic", 4, 4},
		{"demo-basic", 8, -6},
		{"demo-business", -10, 2},
		{"demo-premium", 14, 14},
	}
	for _, s := range seedPlots {
		p, err := model.NewPlot(uuid.NewString(), s.Owner, model.Position{X: s.X, Z: s.Z}, model.Size{Width: 4, Depth: 4})
		if err != nil {
			log.Fatalf("new plot: %v", err)
		}
		p.PaymentStatus = model.PlotStatusFree
		if err := plotRepo.Insert(ctx, repository.NoTX, p); err != nil {
			if errors.Is(err, domain.ErrPositionOccupied) {
				continue
			}
			log.Fatalf("insert plot: %v", err)
		}
		fmt.Printf("seeded plot: %s at (%g,%g)\n", p.ID, s.X, s.Z)
	}

	fmt.Println("seeding complete")
}
