// Command pipeline runs the news-article warehouse batch job.
//
// It extracts articles from a NewsAPI-compatible endpoint for the incremental
// window, assembles the star schema with cross-run dimension deduplication,
// and loads the result into PostgreSQL. With -once it performs a single run
// and exits; otherwise it ticks at the configured interval until SIGINT or
// SIGTERM. Run exactly one instance per warehouse: dimension resolution is
// check-then-act and relies on a single writer.
//
// Usage:
//
//	go run ./cmd/pipeline [-config configs/development.yaml] [-once]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newswire-data/warehouse-pipeline/internal/newsapi"
	"github.com/newswire-data/warehouse-pipeline/internal/pipeline"
	"github.com/newswire-data/warehouse-pipeline/internal/warehouse"
	"github.com/newswire-data/warehouse-pipeline/pkg/config"
	"github.com/newswire-data/warehouse-pipeline/pkg/health"
	"github.com/newswire-data/warehouse-pipeline/pkg/kafka"
	"github.com/newswire-data/warehouse-pipeline/pkg/logger"
	"github.com/newswire-data/warehouse-pipeline/pkg/metrics"
	"github.com/newswire-data/warehouse-pipeline/pkg/postgres"
	"github.com/newswire-data/warehouse-pipeline/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single batch and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting warehouse pipeline", "schema", cfg.Postgres.Schema, "once", *once)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("connecting to warehouse", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := warehouse.NewStore(db)

	var cache *pipeline.KeyCache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		cache = pipeline.NewKeyCache(redisClient, cfg.Redis.CacheTTL)
		slog.Info("dimension-key cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var reporter pipeline.ReportPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.ReportTopic)
		defer producer.Close()
		reporter = producer
		slog.Info("run reports enabled", "topic", cfg.Kafka.ReportTopic)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled && !*once {
		m = metrics.New()
		checker := health.NewChecker()
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.DB.PingContext(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		if redisClient != nil {
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					// The cache is optional; a dead Redis degrades, not downs.
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
		}
		shutdown := metrics.StartServer(cfg.Metrics.Port, checker)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	source := newsapi.NewClient(cfg.NewsAPI)
	p := pipeline.New(cfg, source, store, cache, reporter, m)

	if *once {
		if _, err := p.Run(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	// First run immediately, then on every tick. The loop is strictly
	// sequential: a run always finishes (or fails) before the next starts.
	ticker := time.NewTicker(cfg.Pipeline.Interval)
	defer ticker.Stop()
	for {
		if _, err := p.Run(ctx); err != nil {
			slog.Error("run failed, waiting for next tick", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			slog.Info("shutdown signal received")
			return
		}
	}
}
