// Package main provides the main entry point for the PlateWise nutrition API
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	analysisapp "github.com/platewise/v1/internal/application/analysis"
	"github.com/platewise/v1/internal/application/learning"
	mealapp "github.com/platewise/v1/internal/application/meal"
	"github.com/platewise/v1/internal/application/suggest"
	"github.com/platewise/v1/internal/domain/library"
	"github.com/platewise/v1/internal/domain/measure"
	"github.com/platewise/v1/internal/domain/naming"
	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/infrastructure/ai/vision"
	"github.com/platewise/v1/internal/infrastructure/cache"
	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/internal/infrastructure/geo"
	"github.com/platewise/v1/internal/infrastructure/http/server"
	"github.com/platewise/v1/internal/infrastructure/monitoring"
	gormrepo "github.com/platewise/v1/internal/infrastructure/persistence/gorm"
	"github.com/platewise/v1/internal/infrastructure/persistence/migrations"
	"github.com/platewise/v1/internal/infrastructure/persistence/postgres"
	"github.com/platewise/v1/internal/ports/outbound"
	"github.com/platewise/v1/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := monitoring.NewLogger(monitoring.LogConfig{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
		Version:     cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync() // nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Database
	conn, err := postgres.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := migrations.New(conn.SQLDB(), logger)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			return err
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	checkers := map[string]server.HealthChecker{
		"database": conn,
	}

	// Geocoder with redis read-through cache, both optional.
	var geocoder outbound.ReverseGeocoder
	if cfg.Geocoder.Enabled && cfg.Geocoder.BaseURL != "" {
		geocoder = geo.NewClient(geo.Config{
			BaseURL: cfg.Geocoder.BaseURL,
			Timeout: cfg.Geocoder.Timeout,
		}, logger)

		if cfg.Redis.Enabled {
			redisClient, err := cache.NewRedisClient(cfg, logger)
			if err != nil {
				return err
			}
			defer redisClient.Close()
			checkers["redis"] = redisClient
			geocoder = geo.NewCachedGeocoder(geocoder, redisClient, cfg.Geocoder.CacheTTL, logger)
		}
	}

	// Repositories
	db := conn.DB()
	transactor := gormrepo.NewTransactor(db)
	mealRepo := gormrepo.NewMealRepository(db)
	libraryRepo := gormrepo.NewLibraryRepository(db)
	correctionRepo := gormrepo.NewCorrectionLogRepository(db)
	patternRepo := gormrepo.NewPatternRepository(db)
	payloadRepo := gormrepo.NewAnalysisPayloadRepository(db)

	// Domain components; config overlays extend the built-in tables.
	aliases := naming.DefaultAliases()
	for k, v := range cfg.Matching.Aliases {
		aliases[k] = v
	}
	normalizer := naming.NewNormalizer(aliases)

	grams := measure.DefaultGramTable()
	for k, v := range cfg.Matching.UnitGrams {
		grams[k] = v
	}
	converter := measure.NewConverter(grams)

	validator := nutrition.NewValidator(nutrition.Config{
		AtwaterWarnPct:     cfg.Nutrition.AtwaterWarnPct,
		AtwaterErrorPct:    cfg.Nutrition.AtwaterErrorPct,
		CalorieSoftCeiling: cfg.Nutrition.CalorieSoftCeiling,
	})

	// Analysis pipeline
	visionClient := vision.NewClient(vision.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	}, logger)

	pipeline := analysisapp.NewPipeline(visionClient, analysisapp.Config{
		Retries:        cfg.Analysis.Retries,
		BackoffBase:    cfg.Analysis.BackoffBase,
		AttemptTimeout: cfg.Analysis.AttemptTimeout,
		PerUserRPS:     cfg.Analysis.PerUserRPS,
		PerUserBurst:   cfg.Analysis.PerUserBurst,
		MaxConcurrent:  cfg.Analysis.MaxConcurrent,
		Breaker: resilience.Config{
			WindowSize:     cfg.Analysis.BreakerWindow,
			FailureRatePct: cfg.Analysis.BreakerThresholdPct,
			MinCalls:       cfg.Analysis.BreakerMinCalls,
			Cooldown:       cfg.Analysis.BreakerCooldown,
		},
	}, logger, metrics)

	// Application services
	learner := learning.NewService(libraryRepo, normalizer, converter, library.ConfidenceParams{
		SampleDecayK: cfg.Learning.WelfordDecayK,
		EWMAWeight:   cfg.Learning.TypicalQuantityEWMAWeight,
	}, logger, metrics)

	mealService := mealapp.NewService(
		mealRepo, payloadRepo, correctionRepo, patternRepo, transactor,
		pipeline, validator, learner, geocoder, normalizer,
		mealapp.Config{
			GeocodeTimeout:       cfg.Geocoder.Timeout,
			PrunePatternFraction: cfg.Learning.PrunePatternFraction,
		},
		logger, metrics,
	)

	suggestService := suggest.NewService(
		libraryRepo, mealRepo, patternRepo, correctionRepo,
		normalizer, converter,
		suggest.Config{
			MaxEditDistance: cfg.Matching.MaxEditDistance,
			MaxPageSize:     cfg.Matching.MaxPageSize,
		},
		logger,
	)

	// HTTP server
	srv := server.NewServer(cfg, logger, mealService, suggestService, registry, checkers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
