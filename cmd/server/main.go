package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vigil/internal/platform/config"
	"vigil/internal/platform/httpserver"
	"vigil/internal/platform/logger"
	platformmetrics "vigil/internal/platform/metrics"
	platformredis "vigil/internal/platform/redis"
	"vigil/internal/screening/backend"
	"vigil/internal/screening/batch"
	"vigil/internal/screening/cache"
	"vigil/internal/screening/dataset"
	"vigil/internal/screening/handler"
	"vigil/internal/screening/merge"
	screenmetrics "vigil/internal/screening/metrics"
	"vigil/internal/screening/normalize"
	"vigil/internal/screening/orchestrator"
	"vigil/internal/screening/service"
	"vigil/internal/screening/similarity"
	httptransport "vigil/internal/transport/http"
	"vigil/pkg/platform/audit"
	"vigil/pkg/platform/audit/publisher"
	auditkafka "vigil/pkg/platform/audit/store/kafka"
	auditmemory "vigil/pkg/platform/audit/store/memory"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appMetrics := platformmetrics.New()
	pipelineMetrics := screenmetrics.New()

	// Optional infrastructure: each empty config value selects the
	// in-process fallback instead.
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	var candidateCache cache.Store
	if redisClient != nil {
		defer redisClient.Close()
		candidateCache = cache.NewRedis(redisClient.Client, cfg.Screening.CacheTTL, log)
		log.Info("candidate cache: redis")
	} else {
		candidateCache = cache.NewMemory(cfg.Screening.CacheTTL)
		log.Info("candidate cache: in-memory")
	}

	normalizer := normalize.New(normalize.Config{})

	var localDataset dataset.Store
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres setup failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		localDataset = dataset.NewPostgresStore(pool)
		log.Info("local dataset: postgres")
	}

	var trail audit.Store
	if len(cfg.AuditBroker) > 0 {
		kafkaStore, err := auditkafka.New(cfg.AuditBroker, cfg.AuditTopic)
		if err != nil {
			log.Error("audit kafka setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		trail = kafkaStore
		log.Info("audit trail: kafka", "topic", cfg.AuditTopic)
	} else {
		trail = auditmemory.NewInMemoryStore()
		log.Info("audit trail: in-memory")
	}
	auditPublisher := publisher.NewPublisher(trail,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(1024),
	)
	defer auditPublisher.Close()

	backendClient := backend.NewHTTPClient(backend.HTTPConfig{
		BaseURL: cfg.Screening.BackendURL,
		APIKey:  cfg.Screening.BackendAPIKey,
		RPS:     cfg.Screening.BackendRPS,
	})

	orch, err := orchestrator.New(backendClient, orchestrator.Config{
		CallTimeout:  cfg.Screening.CallTimeout,
		RetryCount:   cfg.Screening.RetryCount,
		RetryBackoff: cfg.Screening.RetryBackoff,
		DefaultLimit: cfg.Screening.DefaultLimit,
	},
		orchestrator.WithCache(candidateCache),
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(pipelineMetrics),
	)
	if err != nil {
		log.Error("orchestrator setup failed", "error", err)
		os.Exit(1)
	}

	scorer := similarity.New(similarity.Config{
		Weights:        similarity.DefaultWeights(),
		FuzzyThreshold: cfg.Screening.FuzzyThreshold,
	})
	merger := merge.New(normalizer, scorer, merge.Config{
		SanctionFloor: cfg.Screening.FuzzyThreshold,
	})

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(pipelineMetrics),
		service.WithAudit(auditPublisher),
	}
	if localDataset != nil {
		opts = append(opts, service.WithDataset(localDataset))
	}
	svc, err := service.New(normalizer, orch, merger, batch.NewMemoryStore(), service.Config{
		FuzzyThreshold: cfg.Screening.FuzzyThreshold,
		DefaultLimit:   cfg.Screening.DefaultLimit,
		Batch:          batch.Config{WorkerWidth: cfg.Screening.WorkerWidth},
	}, opts...)
	if err != nil {
		log.Error("service setup failed", "error", err)
		os.Exit(1)
	}

	var health []httptransport.HealthChecker
	if redisClient != nil {
		health = append(health, redisClient)
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Screening: handler.New(svc, log),
		Health:    health,
		Observe:   httptransport.Observability(log, appMetrics),
	})

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting vigil", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
