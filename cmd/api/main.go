package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"storyboard-backend/internal/adapter/repo"
	"storyboard-backend/internal/domain"
	"storyboard-backend/internal/http/handlers"
	"storyboard-backend/internal/http/httpapi"
	"storyboard-backend/internal/imagegen"
	"storyboard-backend/internal/infra"
	"storyboard-backend/internal/infra/credentials"
	"storyboard-backend/internal/media"
	"storyboard-backend/internal/orchestrator"
	"storyboard-backend/internal/queue"
	"storyboard-backend/internal/script"
	"storyboard-backend/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	var (
		jobs    domain.JobRepository
		files   domain.FileRepository
		credsDB credentials.RowQuerier
		closeDB func()
	)
	switch cfg.StoreDriver {
	case "sqlite":
		store, err := repo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open sqlite store")
		}
		jobs, files = store, store.Files()
		closeDB = func() { _ = store.Close() }
	default:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		jobs = repo.NewJobRepository(pool)
		files = repo.NewFileRepository(pool)
		credsDB = pool
		closeDB = pool.Close
	}
	defer closeDB()

	storagePath := cfg.StoragePath
	if abs, err := filepath.Abs(storagePath); err == nil {
		storagePath = abs
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	mediaTool := media.NewTool(media.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Timeout:     cfg.ToolTimeout,
		Logger:      &logger,
	})

	orch := orchestrator.New(orchestrator.Options{
		Jobs:        jobs,
		Files:       files,
		Media:       mediaTool,
		Credentials: credentials.NewStore(credsDB),
		NewGenerator: func(apiKey string) orchestrator.ImageGenerator {
			return imagegen.NewClient(imagegen.Options{
				APIKey:        apiKey,
				BaseURL:       cfg.OpenAIBaseURL,
				PrimaryModel:  cfg.ImageModel,
				FallbackModel: cfg.ImageModelFallback,
				Logger:        &logger,
			})
		},
		Extractor:    script.NewExtractor(),
		OutputDir:    cfg.OutputDir,
		ResultsDir:   cfg.ResultsDir,
		SceneWorkers: cfg.SceneWorkers,
		Logger:       logger,
	})

	var inline *queue.Inline
	switch cfg.QueueDriver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect redis")
		}
		orch.SetEnqueuer(queue.NewDispatcher(queue.NewProcessor(rdb, logger)))
	default:
		inline = queue.NewInline(logger)
		inline.Register(queue.QueueImageGeneration, queue.ImageHandler(orch.RunImageGeneration))
		inline.Register(queue.QueueBRoll, queue.BRollHandler(orch.RunBRoll))
		orch.SetEnqueuer(queue.NewDispatcher(inline))
	}

	app := handlers.NewApp(jobs, files, orch, fileStore, cfg.OutputDir, logger)
	router := httpapi.NewRouter(app, cfg)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if inline != nil {
		// Let in-flight inline jobs write their terminal state.
		inline.Wait()
	}
	logger.Info().Msg("server stopped")
}
