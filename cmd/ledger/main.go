package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/wager-ledger-go/internal/config"
	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/handler"
	"github.com/boddenberg/wager-ledger-go/internal/infra/cache"
	"github.com/boddenberg/wager-ledger-go/internal/infra/client"
	"github.com/boddenberg/wager-ledger-go/internal/infra/memory"
	"github.com/boddenberg/wager-ledger-go/internal/infra/observability"
	"github.com/boddenberg/wager-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/wager-ledger-go/internal/port"
	"github.com/boddenberg/wager-ledger-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	rules := domain.WagerRules{
		MinBet:           cfg.MinBet,
		MaxBet:           cfg.MaxBet,
		PayoutMultiplier: cfg.PayoutMultiplier,
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Int64("deposit_amount", cfg.DepositAmount),
		zap.Int64("min_bet", rules.MinBet),
		zap.Int64("max_bet", rules.MaxBet),
		zap.Int64("payout_multiplier", rules.PayoutMultiplier),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("idempotency_ttl", cfg.IdempotencyTTL),
		zap.Bool("remote_entropy", cfg.EntropyAPIURL != ""),
	)

	if rules.MinBet < 1 || rules.MaxBet < rules.MinBet || rules.PayoutMultiplier < 1 || cfg.DepositAmount < 1 {
		logger.Fatal("invalid ledger rules",
			zap.Int64("min_bet", rules.MinBet),
			zap.Int64("max_bet", rules.MaxBet),
			zap.Int64("payout_multiplier", rules.PayoutMultiplier),
			zap.Int64("deposit_amount", cfg.DepositAmount),
		)
	}

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "wager-ledger")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Outcome generator ---
	var generator port.OutcomeGenerator = service.NewUniformGenerator()
	if cfg.EntropyAPIURL != "" {
		logger.Info("using remote entropy service", zap.String("entropy_api_url", cfg.EntropyAPIURL))
		entropy := client.NewEntropyClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.EntropyAPIURL,
			resilience.NewCircuitBreaker("entropy", logger),
			resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff},
		)
		generator = service.NewRemoteOutcomeGenerator(entropy, generator, metrics, logger)
	}

	// --- Services ---
	store := memory.NewAccountStore(logger)
	engine := service.NewWagerEngine(store, generator, rules, logger)
	ledger := service.NewLedger(store, engine, cfg.DepositAmount, metrics, logger)

	// --- Router ---
	idempotency := cache.New[*handler.CachedResponse](cfg.IdempotencyTTL)
	defer idempotency.Close()
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)
	router := handler.NewRouter(ledger, idempotency, bulkhead, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}

	logger.Info("server stopped")
}
