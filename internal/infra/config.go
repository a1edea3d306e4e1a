package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	StoreDriver        string // postgres | sqlite
	SQLitePath         string
	QueueDriver        string // redis | inline
	RedisAddr          string
	StoragePath        string
	OutputDir          string
	ResultsDir         string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	ImageModel         string
	ImageModelFallback string
	FFmpegPath         string
	FFprobePath        string
	ToolTimeout        time.Duration
	SceneWorkers       int
	RetentionTTL       time.Duration
	CleanupSchedule    string
	AllowedOrigins     []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StoreDriver:        getEnv("STORE_DRIVER", "postgres"),
		SQLitePath:         getEnv("SQLITE_PATH", "./storyboard.db"),
		QueueDriver:        getEnv("QUEUE_DRIVER", "inline"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		OutputDir:          getEnv("OUTPUT_DIR", "./outputs"),
		ResultsDir:         getEnv("RESULTS_DIR", "./results"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		ImageModel:         getEnv("IMAGE_MODEL", "gpt-image-1"),
		ImageModelFallback: getEnv("IMAGE_MODEL_FALLBACK", "dall-e-2"),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		ToolTimeout:        time.Second * time.Duration(getEnvInt("TOOL_TIMEOUT_SECONDS", 600)),
		SceneWorkers:       getEnvInt("SCENE_WORKERS", 0),
		RetentionTTL:       time.Hour * time.Duration(getEnvInt("RETENTION_TTL_HOURS", 72)),
		CleanupSchedule:    getEnv("CLEANUP_SCHEDULE", "@hourly"),
		AllowedOrigins:     splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
	}
	if cfg.QueueDriver != "redis" && cfg.QueueDriver != "inline" {
		return nil, fmt.Errorf("QUEUE_DRIVER must be redis or inline, got %q", cfg.QueueDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
