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

	"github.com/TWankio2/lipaworld-orca/internal/application/usecase"
	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
	"github.com/TWankio2/lipaworld-orca/internal/domain/service"
	"github.com/TWankio2/lipaworld-orca/internal/infrastructure/config"
	"github.com/TWankio2/lipaworld-orca/internal/infrastructure/kafka"
	"github.com/TWankio2/lipaworld-orca/internal/infrastructure/memory"
	enginemetrics "github.com/TWankio2/lipaworld-orca/internal/infrastructure/metrics"
	"github.com/TWankio2/lipaworld-orca/internal/infrastructure/postgres"
	"github.com/TWankio2/lipaworld-orca/internal/infrastructure/provider"
	grpcpresentation "github.com/TWankio2/lipaworld-orca/internal/presentation/grpc"
	"github.com/TWankio2/lipaworld-orca/internal/presentation/rest"
	"github.com/TWankio2/lipaworld-orca/pkg/auth"
	pkgkafka "github.com/TWankio2/lipaworld-orca/pkg/kafka"
	"github.com/TWankio2/lipaworld-orca/pkg/observability"
	pgutil "github.com/TWankio2/lipaworld-orca/pkg/postgres"
)

const serviceName = "orca"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.Server.LogLevel,
		Format:  "json",
		Service: serviceName,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("orca exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting orca",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"environment", cfg.Server.Environment,
	)

	// Tracing is best effort.
	if cfg.Telemetry.TracingEnabled {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: serviceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			SampleRatio: cfg.Telemetry.SampleRatio,
			Insecure:    true,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Warn("tracer shutdown error", "error", err)
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: serviceName})
	if err != nil {
		return err
	}
	defer func() { _ = metrics.Provider.Shutdown(context.Background()) }()

	// Database connection.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	pool, err := pgutil.NewPool(dbCtx, pgutil.Config{URL: cfg.Database.URL})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	if cfg.Database.RunMigrations {
		if err := pgutil.RunMigrationsFS(cfg.Database.URL, postgres.Migrations, postgres.MigrationsDir); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	// Wire infrastructure adapters.
	limitsStore := newLimitsStore(ctx, cfg, pool, logger)
	decisionRepo := postgres.NewDecisionRepository(pool)

	breaker := provider.NewBreaker(cfg.Provider.BreakerThreshold, cfg.Provider.BreakerCooldown, metrics.Registry)
	providerClient := provider.NewHTTPClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, breaker)

	producer, err := pkgkafka.NewProducer(cfg.KafkaClient())
	if err != nil {
		return err
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("kafka producer close error", "error", err)
		}
	}()
	publisher := kafka.NewPublisher(producer, cfg.Kafka.DecisionsTopic, logger)

	recorder, err := enginemetrics.NewRecorder(metrics.Provider)
	if err != nil {
		return err
	}

	// Wire domain services.
	tracker := service.NewLimitsTracker(limitsStore, cfg.LimitsPolicy(), logger)
	services := usecase.EvaluationServices{
		Rules:      service.NewRuleEvaluator(cfg.RulePolicy()),
		Limits:     tracker,
		Normalizer: service.NewNormalizer(cfg.NormalizerPolicy()),
		Combiner:   service.NewDecisionCombiner(),
	}

	// Wire use cases.
	evaluateUC := usecase.NewEvaluateTransaction(
		services, providerClient, decisionRepo, publisher, recorder, cfg.EngineSettings(), logger,
	)
	recordCompletedUC := usecase.NewRecordCompleted(tracker, publisher, logger)
	getDecisionUC := usecase.NewGetDecision(decisionRepo)

	// gRPC server.
	jwtService, err := newJWTService(cfg)
	if err != nil {
		return err
	}

	grpcHandler := grpcpresentation.NewRiskServiceHandler(evaluateUC, recordCompletedUC, getDecisionUC, logger)
	grpcServer, err := grpcpresentation.NewServer(grpcHandler, cfg.GRPCAddress(), grpcpresentation.ServerOptions{
		JWT:         jwtService,
		TLSCertFile: cfg.Server.TLSCertFile,
		TLSKeyFile:  cfg.Server.TLSKeyFile,
		Reflection:  cfg.Server.Reflection,
	}, logger)
	if err != nil {
		return err
	}

	// HTTP server (health checks and metrics).
	healthHandler := rest.NewHealthHandler(logger, map[string]rest.ReadinessCheck{
		"database": rest.DatabaseCheck(pool),
		// An open breaker degrades decisions but does not take the service out of rotation.
		"provider": func(context.Context) (string, error) {
			return breaker.State().String(), nil
		},
	}, metrics.Handler)
	httpMux := http.NewServeMux()
	healthHandler.RegisterRoutes(httpMux)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      httpMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start servers.
	errCh := make(chan error, 3)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var consumer *pkgkafka.Consumer
	if cfg.Kafka.ConsumerEnabled {
		consumer, err = pkgkafka.NewConsumer(
			cfg.KafkaClient(),
			cfg.Kafka.CompletedTopic,
			kafka.NewCompletedHandler(recordCompletedUC, logger),
			logger,
			pkgkafka.WithRetry(3, 500*time.Millisecond),
		)
		if err != nil {
			return err
		}
		go func() {
			if err := consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer error: %w", err)
			}
		}()
	}

	logger.Info("orca started",
		"grpc_address", cfg.GRPCAddress(),
		"http_address", cfg.HTTPAddress(),
		"limits_store", cfg.Limits.Store,
		"auth_enabled", jwtService != nil,
	)

	// Wait for shutdown signal.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server error", "error", runErr)
	}
	cancel()

	// Graceful shutdown.
	logger.Info("shutting down orca")

	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka consumer close error", "error", err)
		}
	}

	logger.Info("orca stopped")
	return runErr
}

// limitsPruner is implemented by both limits backends.
type limitsPruner interface {
	port.LimitsStore
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// newLimitsStore selects the limits backend and prunes it in the background.
func newLimitsStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) port.LimitsStore {
	var store limitsPruner
	if cfg.Limits.Store == config.LimitsStoreMemory {
		logger.Warn("using in-memory limits store, usage is lost on restart and not shared between instances")
		store = memory.NewLimitsStore(cfg.Limits.Retention)
	} else {
		store = postgres.NewLimitsStore(pool)
	}

	go pruneLimits(ctx, store, cfg.Limits.Retention, cfg.Limits.PruneInterval, logger)
	return store
}

func pruneLimits(ctx context.Context, store limitsPruner, retention, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := store.Prune(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Warn("failed to prune limit entries", "error", err)
				continue
			}
			if pruned > 0 {
				logger.Debug("pruned limit entries", "count", pruned)
			}
		}
	}
}

// newJWTService returns nil when authentication is not configured, which
// Validate only permits in development.
func newJWTService(cfg *config.Config) (*auth.JWTService, error) {
	if !cfg.AuthEnabled() {
		return nil, nil
	}

	jwtCfg := auth.JWTConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
	}
	if cfg.Auth.JWTPublicKeyFile != "" {
		pem, err := auth.LoadKeyFromFile(cfg.Auth.JWTPublicKeyFile)
		if err != nil {
			return nil, err
		}
		jwtCfg.PublicKeyPEM = string(pem)
	}
	return auth.NewJWTService(jwtCfg)
}
