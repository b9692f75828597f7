package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/config"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/deeplink"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/handler"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/kvstore"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/observability"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("db_path", cfg.DBPath),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("pin_check_delay", cfg.PINCheckDelay),
		zap.Duration("settlement_delay", cfg.SettlementDelay),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), "upi-wallet-bfa", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Classifier ---
	rules, err := deeplink.LoadRules(cfg.RulesFile)
	if err != nil {
		logger.Fatal("failed to load merchant rules", zap.Error(err))
	}
	classifier := deeplink.NewClassifier(rules)

	// --- Store ---
	db, err := kvstore.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open wallet database", zap.Error(err))
	}
	defer db.Close()

	store := resilience.NewStore(db, resilience.NewCircuitBreaker("kvstore"), resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	})

	// --- Services ---
	wallet := service.NewWallet(store, classifier, metrics, logger)
	if err := wallet.Load(context.Background()); err != nil {
		logger.Fatal("failed to load wallet", zap.Error(err))
	}

	verifier, err := service.NewBcryptPIN(cfg.PIN, cfg.PINHash)
	if err != nil {
		logger.Fatal("invalid PIN configuration", zap.Error(err))
	}

	timings := service.SessionTimings{
		PINCheckDelay:      cfg.PINCheckDelay,
		PINErrorResetDelay: cfg.PINErrorResetDelay,
		SettlementDelay:    cfg.SettlementDelay,
	}
	sessions := service.NewSessionManager(wallet, verifier, timings, cfg.SessionSecret, cfg.SessionTTL, metrics, logger)
	defer sessions.Shutdown()

	// --- Router ---
	router := handler.NewRouter(wallet, sessions, db, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
