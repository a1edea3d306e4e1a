package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"storyboard-backend/internal/adapter/repo"
	"storyboard-backend/internal/domain"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
			logger.Fatal().Err(err).Msg("worker: failed to open sqlite store")
		}
		jobs, files = store, store.Files()
		closeDB = func() { _ = store.Close() }
	default:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: db connection failed")
		}
		jobs = repo.NewJobRepository(pool)
		files = repo.NewFileRepository(pool)
		credsDB = pool
		closeDB = pool.Close
	}
	defer closeDB()

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

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.CleanupSchedule, func() {
		sweepExpired(cfg, logger)
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.CleanupSchedule).Msg("worker: invalid cleanup schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.QueueDriver != "redis" {
		// Inline mode runs jobs in the API process; this binary only sweeps.
		logger.Info().Msg("worker: queue driver is inline, running retention sweep only")
		<-ctx.Done()
		logger.Info().Msg("worker: stopped")
		return
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("worker: redis connection failed")
	}

	proc := queue.NewProcessor(rdb, logger)
	proc.Register(queue.QueueImageGeneration, queue.ImageHandler(orch.RunImageGeneration))
	proc.Register(queue.QueueBRoll, queue.BRollHandler(orch.RunBRoll))
	proc.Listen(ctx)
	logger.Info().Msg("worker: stopped")
}

// sweepExpired drops generated outputs and assembled results past the
// retention window. Uploaded source files are kept; they are cheap and users
// reuse them across jobs.
func sweepExpired(cfg *infra.Config, logger infra.Logger) {
	for _, dir := range []string{cfg.OutputDir, cfg.ResultsDir} {
		abs := dir
		if a, err := filepath.Abs(dir); err == nil {
			abs = a
		}
		store, err := storage.NewFileStore(abs)
		if err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("worker: sweep store init failed")
			continue
		}
		removed, err := store.RemoveOlderThan("", cfg.RetentionTTL)
		if err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("worker: retention sweep failed")
			continue
		}
		if removed > 0 {
			logger.Info().Int("removed", removed).Str("dir", dir).Msg("worker: retention sweep")
		}
	}
}
