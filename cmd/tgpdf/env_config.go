package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tgpdf/tgpdf/internal/config"
)

// envConfig holds configuration from environment variables.
// Container platforms inject these without a YAML file.
type envConfig struct {
	// Tier 1 - Essential (unprefixed, as hosting platforms set them)
	BotToken   string // BOT_TOKEN: bot API token
	WebhookURL string // WEBHOOK_URL: public base URL
	Port       int    // PORT: HTTP port
	ConfigPath string // TGPDF_CONFIG: config file name or path

	// Tier 2 - Processing
	FontPath    string        // TGPDF_FONT_PATH: Unicode TTF font
	OCRLang     string        // TGPDF_OCR_LANG: tesseract languages, e.g. ukr+eng
	Workers     int           // TGPDF_WORKERS: concurrent tasks
	TaskTimeout time.Duration // TGPDF_TASK_TIMEOUT: per-update deadline
	TempDir     string        // TGPDF_TEMP_DIR: artifact directory

	// Tier 3 - Integration
	WebhookSecret string // TGPDF_WEBHOOK_SECRET: webhook secret token
	RedisAddr     string // TGPDF_REDIS_ADDR: enables de-duplication
	RedisPassword string // TGPDF_REDIS_PASSWORD
	RedisDB       int    // TGPDF_REDIS_DB (-1 = unset)
	LogLevel      string // TGPDF_LOG_LEVEL: debug, info, warn, error
	LogFormat     string // TGPDF_LOG_FORMAT: text, json
}

// knownEnvVars lists valid TGPDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"TGPDF_CONFIG": true,
	// Tier 2 - Processing
	"TGPDF_FONT_PATH":    true,
	"TGPDF_OCR_LANG":     true,
	"TGPDF_WORKERS":      true,
	"TGPDF_TASK_TIMEOUT": true,
	"TGPDF_TEMP_DIR":     true,
	// Tier 3 - Integration
	"TGPDF_WEBHOOK_SECRET": true,
	"TGPDF_REDIS_ADDR":     true,
	"TGPDF_REDIS_PASSWORD": true,
	"TGPDF_REDIS_DB":       true,
	"TGPDF_LOG_LEVEL":      true,
	"TGPDF_LOG_FORMAT":     true,
	// Doctor
	"TGPDF_CONTAINER": true,
}

// loadDotEnv loads KEY=VALUE pairs from path into the environment.
// Variables already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: loading %s: %v", ErrInvalidEnv, path, err)
	}
	return nil
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are errors, not silently ignored.
func loadEnvConfig() (*envConfig, error) {
	cfg := &envConfig{
		// Tier 1
		BotToken:   strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		WebhookURL: os.Getenv("WEBHOOK_URL"),
		ConfigPath: os.Getenv("TGPDF_CONFIG"),
		// Tier 2
		FontPath: os.Getenv("TGPDF_FONT_PATH"),
		OCRLang:  os.Getenv("TGPDF_OCR_LANG"),
		TempDir:  os.Getenv("TGPDF_TEMP_DIR"),
		// Tier 3
		WebhookSecret: os.Getenv("TGPDF_WEBHOOK_SECRET"),
		RedisAddr:     os.Getenv("TGPDF_REDIS_ADDR"),
		RedisPassword: os.Getenv("TGPDF_REDIS_PASSWORD"),
		RedisDB:       -1,
		LogLevel:      os.Getenv("TGPDF_LOG_LEVEL"),
		LogFormat:     os.Getenv("TGPDF_LOG_FORMAT"),
	}

	var err error
	if cfg.Port, err = envInt("PORT", 1); err != nil {
		return nil, err
	}
	if cfg.Workers, err = envInt("TGPDF_WORKERS", 1); err != nil {
		return nil, err
	}
	if v := os.Getenv("TGPDF_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("%w: TGPDF_REDIS_DB=%q", ErrInvalidEnv, v)
		}
		cfg.RedisDB = db
	}
	if v := os.Getenv("TGPDF_TASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: TGPDF_TASK_TIMEOUT=%q (want a positive duration like 90s)", ErrInvalidEnv, v)
		}
		cfg.TaskTimeout = d
	}

	return cfg, nil
}

// envInt parses name as an integer >= min. Unset returns 0.
func envInt(name string, min int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, name, v)
	}
	return n, nil
}

// warnUnknownEnvVars logs warnings for unrecognized TGPDF_* variables.
// Helps catch typos like TGPDF_WORKER instead of TGPDF_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "TGPDF_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overlays set environment variables onto cfg.
// This gives: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via applyFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	// Tier 1
	if env.BotToken != "" {
		cfg.Bot.Token = env.BotToken
	}
	if env.WebhookURL != "" {
		cfg.Webhook.URL = env.WebhookURL
	}
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}

	// Tier 2
	if env.FontPath != "" {
		cfg.Font.Path = env.FontPath
	}
	if env.OCRLang != "" {
		cfg.OCR.Language = env.OCRLang
	}
	if env.Workers != 0 {
		cfg.Pool.Workers = env.Workers
	}
	if env.TaskTimeout != 0 {
		cfg.Pool.TaskTimeout = env.TaskTimeout.String()
	}
	if env.TempDir != "" {
		cfg.Storage.TempDir = env.TempDir
	}

	// Tier 3
	if env.WebhookSecret != "" {
		cfg.Webhook.Secret = env.WebhookSecret
	}
	if env.RedisAddr != "" {
		cfg.Redis.Addr = env.RedisAddr
	}
	if env.RedisPassword != "" {
		cfg.Redis.Password = env.RedisPassword
	}
	if env.RedisDB >= 0 {
		cfg.Redis.DB = env.RedisDB
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
}
