// main is the entry point of the alumni match API.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Connect to the profile store (Mongo or SQLite)
//  4. Build the résumé fetcher, with an optional Redis text cache
//  5. Build the embedding provider and the match services
//  6. Register routes and middleware, start the HTTP server
//  7. Block until SIGINT/SIGTERM, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/alumni-match-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/alumni-match-api
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
	"github.com/aanand-mishra/alumni-match-api/internal/embedding"
	"github.com/aanand-mishra/alumni-match-api/internal/http/handlers/ats"
	"github.com/aanand-mishra/alumni-match-api/internal/http/handlers/health"
	"github.com/aanand-mishra/alumni-match-api/internal/http/handlers/recommend"
	"github.com/aanand-mishra/alumni-match-api/internal/http/middleware"
	"github.com/aanand-mishra/alumni-match-api/internal/match"
	"github.com/aanand-mishra/alumni-match-api/internal/resume"
	"github.com/aanand-mishra/alumni-match-api/internal/storage"
	"github.com/aanand-mishra/alumni-match-api/internal/storage/mongo"
	"github.com/aanand-mishra/alumni-match-api/internal/storage/sqlite"
)

const readyTimeout = 5 * time.Second

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// Installed as the default so packages can log through slog.Info etc.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting alumni-match-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	ctx := context.Background()

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	log.Info("storage initialised", slog.String("driver", cfg.Storage.Driver))

	checks := map[string]health.Check{"storage": store.Ping}

	// ── 4. Résumé Fetcher ─────────────────────────────────────────────────
	var cache resume.Cache
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		defer rdb.Close()

		redisCache := resume.NewRedisCache(rdb, cfg.Cache.TTL)
		if err := redisCache.Ping(ctx); err != nil {
			// The cache is optional: a miss on every lookup is still correct.
			log.Warn("redis unreachable, résumé cache will miss until it recovers",
				slog.String("addr", cfg.Cache.RedisAddr),
				slog.String("error", err.Error()))
		}
		cache = redisCache
		checks["cache"] = redisCache.Ping

		log.Info("résumé cache enabled",
			slog.String("addr", cfg.Cache.RedisAddr),
			slog.Duration("ttl", cfg.Cache.TTL))
	}
	fetcher := resume.NewFetcher(cfg.Resume, cache)

	// ── 5. Embedding Provider and Services ────────────────────────────────
	embedder, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		log.Error("failed to initialise embedder", slog.String("error", err.Error()))
		os.Exit(1)
	}
	checks["embedder"] = func(ctx context.Context) error {
		_, err := embedder.Embed(ctx, []string{"ready"})
		return err
	}

	log.Info("embedder initialised", slog.String("provider", embedder.Name()))

	atsSvc := match.NewATS(store, fetcher, embedder, cfg.Resume.Concurrency)
	recommender := match.NewRecommender(store, cfg.Recommend)

	// ── 6. Register HTTP Routes ───────────────────────────────────────────
	// Route table:
	//   POST /ats_match_all       → rank every student against a job
	//   POST /ats_match_student   → score one student against a job
	//   GET  /recommend           → alumni recommendations for a student
	//   GET  /health              → liveness
	//   GET  /ready               → readiness of storage, cache, embedder
	//   GET  /metrics             → Prometheus exposition
	router := http.NewServeMux()

	router.HandleFunc("POST /ats_match_all", ats.MatchAll(atsSvc))
	router.HandleFunc("POST /ats_match_student", ats.MatchStudent(atsSvc))
	router.HandleFunc("GET /recommend", recommend.Get(recommender))
	router.HandleFunc("GET /health", health.Live())
	router.HandleFunc("GET /ready", health.Ready(checks, readyTimeout))
	router.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.Chain(router,
		middleware.Metrics,
		middleware.Logger,
		middleware.RequestID,
		middleware.CORS(cfg.HTTPServer.CORSOrigins),
		middleware.Recover,
	)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// newStorage opens the configured profile store. SQLite is seeded from
// cfg.SQLite.SeedFile when one is set.
func newStorage(ctx context.Context, cfg config.Storage) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		s, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverSQLite:
		db, err := sqlite.New(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		if cfg.SQLite.SeedFile != "" {
			added, err := db.SeedFile(ctx, cfg.SQLite.SeedFile)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			slog.Info("sqlite seeded",
				slog.String("file", cfg.SQLite.SeedFile),
				slog.Int("added", added))
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Staging: JSON at DEBUG level.
// Production (prod): JSON at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
}
