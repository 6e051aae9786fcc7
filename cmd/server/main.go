package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/garrettladley/settle/internal/cancel"
	"github.com/garrettladley/settle/internal/config"
	"github.com/garrettladley/settle/internal/currency"
	"github.com/garrettladley/settle/internal/diag"
	"github.com/garrettladley/settle/internal/ledger"
	"github.com/garrettladley/settle/internal/migrations/postgres"
	"github.com/garrettladley/settle/internal/pricing"
	"github.com/garrettladley/settle/internal/provider"
	xredis "github.com/garrettladley/settle/internal/redis"
	"github.com/garrettladley/settle/internal/server/handler"
	"github.com/garrettladley/settle/internal/settle"
	"github.com/garrettladley/settle/internal/webhook"
	"github.com/garrettladley/settle/internal/xhttp/middleware"
	"github.com/garrettladley/settle/internal/xslog"
)

const keyPort = "port"

func main() {
	_ = godotenv.Load()

	logger := xslog.NewLoggerFromEnv(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", xslog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Read()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	pool, err := initPostgres(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize postgres: %w", err)
	}
	defer pool.Close()

	store := ledger.NewPostgresStore(pool)

	prices := pricing.Source(store)
	if cfg.Redis.URL != "" {
		redisClient, err := xredis.New(ctx, xredis.Config{URL: cfg.Redis.URL})
		if err != nil {
			return fmt.Errorf("failed to initialize redis client: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.ErrorContext(ctx, "failed to close redis client", xslog.Error(err))
			}
		}()
		prices = pricing.NewCache(store, redisClient, cfg.PriceCacheTTL)
	} else {
		logger.InfoContext(ctx, "redis not configured, price lookups go straight to postgres")
	}

	api, err := provider.New(provider.Config{
		SecretKey:         cfg.Stripe.SecretKey,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
		Telemetry:         cfg.Stripe.Telemetry,
		CABundlePath:      cfg.Stripe.CABundle,
		TLSMinVersion:     cfg.Stripe.TLSMinVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize provider client: %w", err)
	}

	verifier, err := webhook.NewVerifier(cfg.Stripe.WebhookSecret, cfg.SignatureTolerance)
	if err != nil {
		return fmt.Errorf("failed to initialize webhook verifier: %w", err)
	}

	engine, err := settle.NewEngine(verifier, api, store, prices, currency.DefaultRules())
	if err != nil {
		return fmt.Errorf("failed to initialize settlement engine: %w", err)
	}

	if cfg.Stripe.WebhookEndpointID != "" {
		reportEndpointHealth(ctx, api, cfg, logger)
	}

	canceler := cancel.New(api, store)

	webhookHandler := handler.NewWebhook(engine, canceler)
	redirectHandler := handler.NewRedirect(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/stripe", webhookHandler.HandleWebhook)
	mux.HandleFunc("GET /payments/return", redirectHandler.HandleReturn)
	mux.HandleFunc("GET /health", handler.HandleHealth)

	wrapped := middleware.Chain(mux,
		middleware.Recovery,
		middleware.Logging,
		middleware.Logger(logger),
		middleware.RequestID(),
		middleware.SecurityHeaders,
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.InfoContext(ctx, "starting server",
			xslog.Version(),
			slog.String(keyPort, cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "server error", xslog.Error(err))
		}
	}()

	<-done
	logger.InfoContext(ctx, "shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.InfoContext(ctx, "server stopped")
	return nil
}

func initPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.InfoContext(ctx, "initializing PostgreSQL")

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := postgres.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return pool, nil
}

// reportEndpointHealth runs the webhook endpoint self-test at startup.
// Drift is logged, never fatal: the service can still settle whatever the
// provider delivers.
func reportEndpointHealth(ctx context.Context, api *provider.Client, cfg config.Config, logger *slog.Logger) {
	checkCtx, cancelCheck := context.WithTimeout(ctx, 10*time.Second)
	defer cancelCheck()

	report, err := diag.Check(checkCtx, api, cfg.Stripe.WebhookEndpointID, cfg.SiteURL)
	if err != nil {
		logger.WarnContext(ctx, "webhook endpoint self-test failed", xslog.Error(err))
		return
	}
	if report.Healthy() {
		logger.InfoContext(ctx, "webhook endpoint self-test passed")
		return
	}
	logger.WarnContext(ctx, "webhook endpoint configuration drift",
		slog.String("endpoint_url", report.EndpointURL),
		slog.String("expected_url", report.ExpectedURL),
		slog.String("endpoint_status", report.Status),
		xslog.Count(len(report.MissingEvents)))
}
