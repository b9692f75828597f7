package cli

import (
	"context"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/deeplink"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/kvstore"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/observability"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"go.uber.org/zap"
)

// walletEnv is a loaded wallet plus the resources behind it.
type walletEnv struct {
	wallet  *service.Wallet
	metrics *observability.Metrics
	logger  *zap.Logger
	close   func() error
}

// openWallet builds the wallet for one command invocation.
func openWallet(ctx context.Context, opts *RootOptions) (*walletEnv, error) {
	cfg := opts.cfg
	logger := observability.NewCLILogger(opts.Verbose)
	metrics := observability.NewMetrics()

	rules, err := deeplink.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load merchant rules", err)
	}
	classifier := deeplink.NewClassifier(rules)

	closeFn := func() error { return nil }
	var store port.KVStore
	switch {
	case opts.store != nil:
		store = opts.store
	case opts.Ephemeral:
		store = kvstore.NewMemory()
	default:
		db, err := kvstore.OpenSQLite(opts.DBPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open wallet database", err)
		}
		store = db
		closeFn = db.Close
		logger.Debug("wallet database opened", zap.String("path", opts.DBPath))
	}

	store = resilience.NewStore(store, resilience.NewCircuitBreaker("kvstore"), resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	})

	wallet := service.NewWallet(store, classifier, metrics, logger)
	if err := wallet.Load(ctx); err != nil {
		closeFn()
		return nil, WrapExitError(ExitCommandError, "load wallet", err)
	}

	return &walletEnv{
		wallet:  wallet,
		metrics: metrics,
		logger:  logger,
		close: func() error {
			logger.Sync()
			return closeFn()
		},
	}, nil
}

// withWallet opens the wallet, runs fn and releases it.
func withWallet(ctx context.Context, opts *RootOptions, fn func(env *walletEnv) error) error {
	env, err := openWallet(ctx, opts)
	if err != nil {
		return err
	}
	defer env.close()
	return fn(env)
}
