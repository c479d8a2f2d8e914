// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"city-plot-engine/internal/config"
	"city-plot-engine/internal/infra/api"
	"city-plot-engine/internal/infra/api/apiv1"
	pg "city-plot-engine/internal/infra/db/postgres"
	"city-plot-engine/internal/infra/logging"
	"city-plot-engine/internal/infra/metrics"
	payinfra "city-plot-engine/internal/infra/payment"
	red "city-plot-engine/internal/infra/redis"
	"city-plot-engine/internal/infra/sched"
	"city-plot-engine/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed auth)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	locker := red.NewLocker(redisClient)
	idemStore := red.NewIdempotencyStore(redisClient, cfg.Redis.IdempotencyTTL)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	plotRepo := pg.NewPostgresPlotRepo(pool)
	txRepo := pg.NewPostgresTransactionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	quota := usecase.NewQuotaLedger(userRepo, cfg.Pricing)
	estimator := usecase.NewEstimatorUseCase(plotRepo, txRepo, cfg.Pricing, logger)
	pricingUC := usecase.NewPricingUseCase(userRepo, estimator, cfg.Pricing, logger)
	allocUC := usecase.NewAllocationUseCase(userRepo, plotRepo, txRepo, quota, estimator, idemStore, txManager, cfg.Pricing, logger)

	gateway := payinfra.NewMockGateway(logger)
	payUC := usecase.NewPaymentUseCase(txRepo, userRepo, plotRepo, quota, gateway, txManager, cfg.Pricing, logger)

	// ---- HTTP ----
	v1 := apiv1.NewServer(pricingUC, allocUC, payUC, locker, cfg.Redis.LockTTL, logger)

	r := chi.NewRouter()
	r.Use(api.TraceID(), api.Recover(logger), api.RequestLog(logger))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		if !cfg.Runtime.Dev {
			r.Use(api.Auth(cfg.Server.JWTSecret))
		}
		r.Mount("/", v1.Routes())
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Intent reconciler ----
	reconciler := sched.NewPaymentReconciler(payUC, txRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
