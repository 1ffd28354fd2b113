// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"finquery-workers/internal/common/cache"
	"finquery-workers/internal/common/camunda"
	"finquery-workers/internal/common/config"
	"finquery-workers/internal/common/database"
	"finquery-workers/internal/common/errors"
	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/common/observability"
	"finquery-workers/internal/datasource"
	"finquery-workers/internal/engine/aggregate"
	"finquery-workers/internal/engine/conversation"
	"finquery-workers/internal/engine/query"
	"finquery-workers/internal/models"

	afq "finquery-workers/internal/workers/ai-conversation/answer-financial-query"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})
	log.Info("Starting worker manager...", nil)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("otel prometheus exporter unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown()

	ctx := context.Background()
	deps := make(map[string]database.Pinger)

	// --- Ledger store ---
	var pg *database.PostgresClient
	if cfg.Dataset.Source == config.DatasetSourcePostgres {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		deps["postgres"] = pg
		log.Info("PostgreSQL connected successfully", nil)
	}

	// --- Artifact index ---
	var esClient *database.ElasticsearchClient
	if cfg.Artifacts.Source == config.ArtifactSourceElasticsearch {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		deps["elasticsearch"] = esClient
		log.Info("Elasticsearch connected successfully", nil)
	}

	// --- Response cache ---
	var engineOpts []query.Option
	engineOpts = append(engineOpts, query.WithObservability(obs))
	if cfg.Cache.Enabled {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		deps["redis"] = rc
		engineOpts = append(engineOpts, query.WithCache(
			cache.NewResponseCache(rc.Client, cfg.Cache.KeyPrefix, config.GetDuration(cfg.Cache.TTL)),
		))
		log.Info("Redis response cache enabled", nil)
	}

	// --- Dataset ---
	dataset := loadDataset(ctx, cfg, pg, esClient, log)

	engine := query.NewEngine(dataset, query.Config{
		ConfidenceThreshold: cfg.Engine.ConfidenceThreshold,
		FollowUpMaxWords:    cfg.Engine.FollowUpMaxWords,
		Aggregate: aggregate.Options{
			TopN:             cfg.Engine.TopN,
			FlatThresholdPct: cfg.Engine.FlatThresholdPct,
			MaxDrivers:       cfg.Engine.MaxDrivers,
		},
		ExtraAliases: cfg.Engine.Aliases,
	}, log, engineOpts...)

	sessions := conversation.NewStore(
		config.GetDuration(cfg.Sessions.IdleTTL),
		config.GetDuration(cfg.Sessions.CleanupInterval),
		log,
	)

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, cfg.Camunda, camunda.DefaultRetryConfig, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	deps["zeebe"] = zeebe
	log.Info("Zeebe client connected successfully", nil)

	wcfg := config.GetWorkerConfig(cfg, afq.TaskType)
	handler := afq.NewHandler(
		&afq.Config{
			Timeout: config.GetDuration(wcfg.Timeout),
			Clock:   time.Now,
		},
		engine, sessions, obs, &answerFinancialQueryLoggerAdapter{log},
	)
	zeebe.StartWorker(afq.TaskType, wcfg, camunda.LoggedHandler(afq.TaskType, log, handler.Handle))

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newMux(deps, engine, sessions),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, stopping workers...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Worker manager stopped gracefully", nil)
}

// loadDataset reads the ledger and artifacts once at startup; sessions answer against this snapshot.
func loadDataset(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, es *database.ElasticsearchClient, log logger.Logger) *models.Dataset {
	var db *sql.DB
	if pg != nil {
		db = pg.DB
	}
	records, err := datasource.NewRecordSource(cfg.Dataset, db, log)
	if err != nil {
		log.Error("invalid dataset source", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	var esc *elasticsearch.Client
	if es != nil {
		esc = es.Client
	}
	artifacts, err := datasource.NewArtifactSource(cfg.Artifacts, esc, log)
	if err != nil {
		log.Error("invalid artifact source", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	var dataset *models.Dataset
	err = retryWithBackoff(func() error {
		var err error
		dataset, err = datasource.Load(ctx, records, artifacts, cfg.Dataset.Version, log)
		if stdErr, ok := errors.AsStandardError(err); ok && !stdErr.Retryable {
			// schema violations will not fix themselves
			log.Error("dataset rejected", map[string]interface{}{"code": stdErr.Code, "details": stdErr.Details})
			os.Exit(1)
		}
		return err
	}, 5, 2*time.Second, log, "Dataset load")
	if err != nil {
		log.Error("dataset load failed after retries", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	return dataset
}

func newMux(deps map[string]database.Pinger, engine *query.Engine, sessions *conversation.Store) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		results := database.CheckAll(r.Context(), deps, 5*time.Second)
		status, code := "ready", http.StatusOK
		if !database.Healthy(results) {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"status":         status,
			"datasetVersion": engine.DatasetVersion(),
			"sessions":       sessions.Count(),
			"checks":         results,
			"time":           time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// answerFinancialQueryLoggerAdapter narrows logger.Logger to the worker's Logger interface.
type answerFinancialQueryLoggerAdapter struct {
	logger.Logger
}

func (a *answerFinancialQueryLoggerAdapter) With(fields map[string]interface{}) afq.Logger {
	return &answerFinancialQueryLoggerAdapter{a.Logger.With(fields)}
}
