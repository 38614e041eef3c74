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

	"github.com/joho/godotenv"

	"sheets-access-control/internal/config"
	"sheets-access-control/internal/infra/db/postgres"
	"sheets-access-control/internal/infra/drive"
	"sheets-access-control/internal/infra/logging"
	"sheets-access-control/internal/infra/metrics"
	red "sheets-access-control/internal/infra/redis"
	"sheets-access-control/internal/infra/web"
	"sheets-access-control/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no PII redaction)")
	flag.Parse()

	// .env is optional; deployment environments set real env vars.
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
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	ledgerRepo := postgres.NewLedgerRepo(pool)

	// ---- Redis (optional; the service degrades to ledger-only idempotency) ----
	var processedCache usecase.ProcessedCache
	var limiter web.Limiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		processedCache = red.NewProcessedCache(redisClient, cfg.Redis.TTL)
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; running without replay cache and rate limiter")
	}

	// ---- Drive permission gateway ----
	gateway, err := drive.NewGateway(cfg.Drive.ServiceAccountFile, cfg.Drive.Timeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("drive gateway")
	}

	// ---- Tier table ----
	tiers := make([]usecase.Tier, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		tiers = append(tiers, usecase.Tier{Number: t.Tier, Price: t.Price, Resources: t.Resources})
	}
	tierTable := usecase.NewTierTable(tiers)

	// ---- Use cases ----
	payUC := usecase.NewPaymentUseCase(ledgerRepo, gateway, tierTable, processedCache, logger, cfg.Runtime.Dev)

	// ---- HTTP ----
	srv := web.NewServer(payUC, cfg.Razorpay.WebhookSecret, limiter, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
