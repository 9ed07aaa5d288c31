package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/investtrack-backend/internal/adapter/cache"
	grpcadapter "github.com/simaogato/investtrack-backend/internal/adapter/grpc"
	"github.com/simaogato/investtrack-backend/internal/adapter/repository/memory"
	"github.com/simaogato/investtrack-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/investtrack-backend/internal/config"
	"github.com/simaogato/investtrack-backend/internal/domain"
	"github.com/simaogato/investtrack-backend/internal/logger"
	"github.com/simaogato/investtrack-backend/internal/scheduler"
	"github.com/simaogato/investtrack-backend/internal/usecase/allocator"
	"github.com/simaogato/investtrack-backend/internal/usecase/asset"
	"github.com/simaogato/investtrack-backend/internal/usecase/currency"
	"github.com/simaogato/investtrack-backend/internal/usecase/history"
	"github.com/simaogato/investtrack-backend/internal/usecase/portfolio"
	"github.com/simaogato/investtrack-backend/internal/usecase/position"
	"github.com/simaogato/investtrack-backend/internal/usecase/pricing"
	"github.com/simaogato/investtrack-backend/internal/usecase/valuation"
)

const (
	cacheSweepSchedule = "@every 10m"
	dbConnectAttempts  = 5
	dbRetryDelay       = 2 * time.Second
)

// repositories groups the storage backends used by the services
type repositories struct {
	lots   domain.AcquisitionRepository
	assets domain.AssetRepository
	prices domain.PriceSnapshotRepository
	close  func() error
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.toml", "config.local.toml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	log.Info().
		Str("environment", cfg.Environment).
		Str("base_currency", cfg.BaseCurrency).
		Str("storage", cfg.Database.Driver).
		Msg("Starting InvestTrack server")

	// 2. Setup storage
	repos, err := openRepositories(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.close()

	// 3. Initialize Services (Use Cases)
	viewCache := cache.NewMemory()
	converter := currency.NewConverter(log)

	assetService := asset.NewService(repos.assets, viewCache, cfg.Cache.GetReferenceTTL(), log)
	pricingService := pricing.NewService(
		repos.prices,
		repos.assets,
		repos.lots,
		converter,
		pricing.NewSimulatedSource(repos.prices, uint64(time.Now().UnixNano())),
		viewCache,
		cfg.Cache.GetPriceTTL(),
		cfg.Pricing.GetDefaultPrice(),
		cfg.Pricing.RequestsPerSecond,
		log,
	)

	aggregator := position.NewAggregator(repos.lots)
	valuationEngine := valuation.NewEngine(aggregator, pricingService, repos.prices, assetService, converter, cfg.BaseCurrency, log)
	historySynthesizer := history.NewSynthesizer(aggregator, pricingService, cfg.BaseCurrency, log)
	allocatorService := allocator.NewService(aggregator, pricingService, assetService, cfg.BaseCurrency, log)

	portfolioService := portfolio.NewService(
		assetService,
		repos.lots,
		valuationEngine,
		historySynthesizer,
		allocatorService,
		viewCache,
		cfg.Cache.GetAnalyticsTTL(),
		log,
	)

	// 4. Start background jobs
	jobs := scheduler.New(log)
	if err := jobs.AddJob(cfg.Pricing.RefreshSchedule, scheduler.NewPriceRefreshJob(pricingService, 4*time.Minute, log)); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Pricing.RefreshSchedule).Msg("Failed to schedule price refresh")
	}
	if err := jobs.AddJob(cacheSweepSchedule, scheduler.NewCacheSweepJob(viewCache, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache sweep")
	}
	jobs.Start()

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.Auth.APIToken)),
	)

	grpcAdapter := grpcadapter.NewServer(portfolioService, pricingService, assetService, converter, log)
	grpcadapter.RegisterPortfolioServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	addr := cfg.Server.Address()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("address", addr).Msg("Failed to listen")
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("address", addr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, jobs, log)
}

// openRepositories connects the configured storage backend
func openRepositories(cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		return &repositories{
			lots:   memory.NewAcquisitionRepository(),
			assets: memory.NewAssetRepository(),
			prices: memory.NewPriceSnapshotRepository(),
			close:  func() error { return nil },
		}, nil
	}

	// Postgres may still be starting (docker compose), so retry the first connection
	var db *postgres.DB
	var err error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		db, err = postgres.NewDB(cfg.DatabaseConnString())
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Database not ready")
		time.Sleep(dbRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &repositories{
		lots:   postgres.NewAcquisitionRepository(db),
		assets: postgres.NewAssetRepository(db),
		prices: postgres.NewPriceSnapshotRepository(db),
		close:  db.Close,
	}, nil
}

// waitForShutdown waits for SIGTERM or SIGINT, stops the scheduler and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, jobs *scheduler.Scheduler, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	jobs.Stop()
	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")
}
