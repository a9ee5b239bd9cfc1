package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/api/middleware"
	"github.com/feral-file/ff-asset-syncer/internal/api/server"
	"github.com/feral-file/ff-asset-syncer/internal/config"
	"github.com/feral-file/ff-asset-syncer/internal/gateway"
	"github.com/feral-file/ff-asset-syncer/internal/handlers"
	"github.com/feral-file/ff-asset-syncer/internal/holders"
	"github.com/feral-file/ff-asset-syncer/internal/keyqueue"
	"github.com/feral-file/ff-asset-syncer/internal/ledger"
	"github.com/feral-file/ff-asset-syncer/internal/listener"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/providers/ethereum"
	"github.com/feral-file/ff-asset-syncer/internal/ratelimit"
	"github.com/feral-file/ff-asset-syncer/internal/reconcile"
	"github.com/feral-file/ff-asset-syncer/internal/recovery"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSyncerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "asset-syncer",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Asset Syncer", zap.String("chain_id", string(cfg.Ethereum.ChainID)))

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	err = store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Database.ConnMaxIdleTime,
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()

	// Initialize the RPC rate limiter, shared across replicas through Redis when configured
	var limiter ratelimit.Proxy
	if cfg.RateLimiter.Enabled {
		var redisClient adapter.RedisClient
		if cfg.RateLimiter.Redis.Addr != "" {
			redisClient = adapter.NewRedisClient(cfg.RateLimiter.Redis.Addr, cfg.RateLimiter.Redis.Password, cfg.RateLimiter.Redis.DB)
		}
		limiter, err = ratelimit.NewProxy(cfg.RateLimiter, string(cfg.Ethereum.ChainID), redisClient, clockAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
		}
		defer func() {
			if err := limiter.Close(); err != nil {
				logger.Error(err, zap.String("component", "rate_limiter"))
			}
		}()
	}

	// Initialize chain gateway
	chainGateway, err := gateway.New(cfg.Ethereum.Endpoints, cfg.Gateway, adapter.NewEthClientDialer(), clockAdapter, limiter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create chain gateway", zap.Error(err))
	}
	defer chainGateway.Close()

	// Initialize contract reader
	ethereumClient, err := ethereum.NewClient(ethereum.Config{
		ChainID:            cfg.Ethereum.ChainID,
		AssetContract:      cfg.Ethereum.AssetContract,
		FactoryContract:    cfg.Ethereum.FactoryContract,
		DeployBlock:        cfg.Ethereum.DeployBlock,
		SearchChunkSize:    cfg.Holders.SearchChunkSize,
		MaxLookbackBlocks:  cfg.Holders.MaxLookbackBlocks,
		BlockTimeCacheSize: cfg.Listener.BlockTimeCacheSize,
	}, chainGateway)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create contract reader", zap.Error(err))
	}

	// Initialize idempotency ledger
	eventLedger, err := ledger.New(dataStore, cfg.Ledger.CacheSize)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create event ledger", zap.Error(err))
	}

	// Per-asset serialization shared by handlers, recovery, repair and revenue sync
	assetQueue := keyqueue.New(ctx, cfg.Worker.WorkerPoolSize, cfg.Worker.WorkerQueueSize)

	rebuilder := holders.NewRebuilder(ethereumClient, dataStore, clockAdapter, cfg.Holders.Concurrency)

	// Seed the watchlist with every token already cached
	fractionalized, err := dataStore.ListFractionalizedAssets(ctx)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to list fractionalized assets", zap.Error(err))
	}
	tokens := make([]string, 0, len(fractionalized))
	for _, asset := range fractionalized {
		tokens = append(tokens, asset.TokenAddressValue())
	}
	watchlist := listener.NewWatchlist(tokens...)

	registry, err := handlers.New(handlers.Deps{
		Client:    ethereumClient,
		Store:     dataStore,
		Ledger:    eventLedger,
		Rebuilder: rebuilder,
		Watcher:   watchlist,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create event handlers", zap.Error(err))
	}

	eventListener, err := listener.New(listener.Config{
		ChainID:              cfg.Ethereum.ChainID,
		AssetContract:        cfg.Ethereum.AssetContract,
		FactoryContract:      cfg.Ethereum.FactoryContract,
		StartBlock:           cfg.Ethereum.StartBlock,
		CursorSaveFreq:       cfg.Listener.CursorSaveFreq,
		CursorSaveDelay:      cfg.Listener.CursorSaveDelay,
		DispatchRetryTimeout: cfg.Listener.DispatchRetryTimeout,
	}, chainGateway, ethereumClient, dataStore, assetQueue, registry, watchlist, clockAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create event listener", zap.Error(err))
	}

	coldStart := recovery.New(
		recovery.Config{ItemDelay: cfg.Recovery.ItemDelay},
		ethereumClient,
		dataStore,
		rebuilder,
		watchlist,
		assetQueue,
		clockAdapter,
	)

	engine := reconcile.New(reconcile.Config{
		Tolerance:      decimal.NewFromFloat(cfg.Reconcile.Tolerance),
		NearZeroSupply: decimal.NewFromFloat(cfg.Reconcile.NearZeroSupply),
		Concurrency:    cfg.Holders.Concurrency,
	}, ethereumClient, dataStore, assetQueue)

	revenueSyncer := sweeper.NewRevenueSyncer(&sweeper.RevenueSyncConfig{
		Interval:       cfg.Reconcile.SyncInterval,
		WorkerPoolSize: cfg.Holders.Concurrency,
	}, ethereumClient, dataStore, assetQueue, clockAdapter)

	apiServer := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}, engine, chainGateway)

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)

	// API server
	g.Go(func() error {
		return apiServer.Start()
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	// Revenue sync
	if cfg.Reconcile.RevenueSyncEnabled {
		g.Go(func() error {
			return revenueSyncer.Start(gCtx)
		})
		g.Go(func() error {
			<-gCtx.Done()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			return revenueSyncer.Stop(stopCtx)
		})
	}

	// Cold-start recovery, then the listener from the block recovery finished at
	g.Go(func() error {
		var fromBlock uint64
		if cfg.Recovery.Enabled {
			result, err := coldStart.Run(gCtx)
			if err != nil {
				if gCtx.Err() != nil {
					return nil
				}
				logger.ErrorCtx(gCtx, fmt.Errorf("cold-start recovery failed: %w", err))
			} else {
				fromBlock = result.FinishedAtBlock
			}
		}
		return runListener(gCtx, eventListener, fromBlock, cfg.Gateway.MaxBackoff)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorCtx(ctx, err)
	}

	// Drain handler work already queued before closing connections
	assetQueue.StopAndWait()

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("Asset Syncer stopped")
}

// runListener restarts the listener with backoff until ctx is canceled.
// Restarts resume from the persisted cursor.
func runListener(ctx context.Context, l listener.Listener, fromBlock uint64, maxInterval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	if maxInterval > 0 {
		b.MaxInterval = maxInterval
	}
	b.MaxElapsedTime = 0

	operation := func() error {
		err := l.Run(ctx, fromBlock)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		fromBlock = 0
		if err == nil {
			return errors.New("listener stopped unexpectedly")
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Event listener failed, restarting",
			zap.Error(err),
			zap.Duration("next_retry_in", next),
		)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
