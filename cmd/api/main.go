package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/gotube/internal/api/handler"
	"github.com/hszk-dev/gotube/internal/api/middleware"
	"github.com/hszk-dev/gotube/internal/config"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/encoder"
	"github.com/hszk-dev/gotube/internal/infrastructure/cache"
	"github.com/hszk-dev/gotube/internal/infrastructure/postgres"
	"github.com/hszk-dev/gotube/internal/infrastructure/queue"
	"github.com/hszk-dev/gotube/internal/infrastructure/storage"
	"github.com/hszk-dev/gotube/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type handlers struct {
	health       *handler.HealthHandler
	videos       *handler.VideoHandler
	categories   *handler.CategoryHandler
	interactions *handler.InteractionHandler
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if cfg.Database.AutoMigrate {
		if err := postgres.MigrateUp(cfg.Database.DSN()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	pgCfg := postgres.DefaultClientConfig(cfg.Database.DSN())
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgClient, err := postgres.NewClient(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("connected to object storage",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("bucket", cfg.Storage.Bucket),
	)

	checks := map[string]handler.CheckFunc{
		"postgres": pgClient.Ping,
		"storage":  store.Ping,
	}

	// Both are optional; interface values stay nil when disabled.
	var videoCache cache.VideoCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis")

		videoCache = cache.NewRedisVideoCache(redisClient)
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	var cleanupQueue repository.MessageQueue
	if cfg.RabbitMQ.Enabled {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		logger.Info("connected to RabbitMQ")

		cleanupQueue = queueClient
	}

	enc := encoder.NewFFmpegEncoder(encoder.FFmpegConfig{
		FFmpegPath:  cfg.Encoder.FFmpegPath,
		FFprobePath: cfg.Encoder.FFprobePath,
		Timeout:     cfg.Encoder.Timeout,
	})

	videoRepo := postgres.NewVideoRepository(pgClient.Pool())
	categoryRepo := postgres.NewCategoryRepository(pgClient.Pool())
	interactionRepo := postgres.NewInteractionRepository(pgClient.Pool())

	videoSvc := usecase.NewVideoService(videoRepo, usecase.DefaultVideoServiceConfig())
	if videoCache != nil {
		videoSvc = usecase.NewCachedVideoService(videoSvc, videoCache, usecase.CachedVideoServiceConfig{
			CacheTTL: cfg.Redis.CacheTTL,
		})
	}
	pipeline := usecase.NewAssetPipeline(videoRepo, store, enc, cleanupQueue, videoCache, usecase.AssetPipelineConfig{
		TempDir:            cfg.Encoder.TempDir,
		PlaceholderBaseURL: cfg.Encoder.PlaceholderBaseURL,
	})
	categorySvc := usecase.NewCategoryService(categoryRepo)
	interactionSvc := usecase.NewInteractionService(videoRepo, interactionRepo, videoCache)

	h := handlers{
		health: handler.NewHealthHandler(checks, func() any {
			return pgClient.Stats()
		}),
		videos:       handler.NewVideoHandler(videoSvc, pipeline, cfg.Server.MaxUploadBytes),
		categories:   handler.NewCategoryHandler(categorySvc),
		interactions: handler.NewInteractionHandler(interactionSvc),
	}

	r := setupRouter(logger, h, []byte(cfg.Auth.JWTSecret))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, h handlers, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", h.health.Health)
	r.Handle("/metrics", promhttp.Handler())

	auth := middleware.Auth(jwtSecret)

	r.Route("/api", func(r chi.Router) {
		r.Route("/videos", func(r chi.Router) {
			r.Get("/", h.videos.List)
			r.Get("/search/videos", h.videos.Search)
			r.Get("/related/{id}", h.videos.Related)
			r.Get("/{id}", h.videos.Get)
			r.Post("/{id}/view", h.videos.View)
			r.Post("/{id}/like", h.videos.Like)

			r.Group(func(r chi.Router) {
				r.Use(auth)

				r.Post("/", h.videos.Upload)
				r.Post("/upload", h.videos.Upload)
				r.Put("/{id}", h.videos.Update)
				r.Delete("/{id}", h.videos.Delete)
				r.Post("/generate-thumbnails/{id}", h.videos.GenerateThumbnails)

				r.Get("/{id}/interaction", h.interactions.Get)
				r.Post("/{id}/interaction/{flag}", h.interactions.Toggle)
				r.Post("/{id}/watch", h.interactions.Watch)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.categories.List)
			r.With(auth, middleware.RequireAdmin).Post("/", h.categories.Create)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth)
			r.Use(middleware.RequireAdmin)

			r.Get("/videos", h.videos.AdminList)
		})
	})

	return r
}
