package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tgpdf/tgpdf"
	"github.com/tgpdf/tgpdf/internal/fileutil"
	"github.com/tgpdf/tgpdf/internal/yamlutil"
)

// Field length limits for validation.
const (
	MaxTokenLength  = 256
	MaxSecretLength = 256
	MaxURLLength    = 2048
	MaxPathLength   = 4096
	MaxLangLength   = 64
)

// DefaultPort is the HTTP port when neither the file nor PORT sets one.
const DefaultPort = 5000

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
	ErrMissingToken    = errors.New("bot token not configured")
)

// Accepted log levels and formats.
var (
	logLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats = map[string]bool{"text": true, "json": true}
)

// Webhook secrets are limited by the platform to this alphabet.
var secretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config holds the service settings loaded from a YAML file.
// Durations are Go duration strings ("90s", "2m").
type Config struct {
	Bot     BotConfig     `yaml:"bot"`
	Webhook WebhookConfig `yaml:"webhook"`
	Server  ServerConfig  `yaml:"server"`
	Font    FontConfig    `yaml:"font"`
	OCR     OCRConfig     `yaml:"ocr"`
	Pool    PoolConfig    `yaml:"pool"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
}

// BotConfig holds the Bot API credentials.
type BotConfig struct {
	Token        string `yaml:"token"`
	APIEndpoint  string `yaml:"apiEndpoint"`  // local Bot API server, "<base>/bot%s/%s"
	FileEndpoint string `yaml:"fileEndpoint"` // "<base>/file/bot%s/%s"
}

// WebhookConfig holds the public URL and shared secret for webhook delivery.
type WebhookConfig struct {
	URL          string `yaml:"url"`
	Secret       string `yaml:"secret"`
	AutoRegister bool   `yaml:"autoRegister"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int   `yaml:"port"`
	MaxBodySize int64 `yaml:"maxBodySize"`
}

// FontConfig overrides the Unicode font search.
type FontConfig struct {
	Path string `yaml:"path"`
}

// OCRConfig holds recognition settings.
type OCRConfig struct {
	Language     string `yaml:"language"`
	MaxImageSize int    `yaml:"maxImageSize"`
}

// PoolConfig holds task pool settings. Workers 0 sizes from the CPU count.
type PoolConfig struct {
	Workers     int    `yaml:"workers"`
	TaskTimeout string `yaml:"taskTimeout"`
}

// StorageConfig holds temporary artifact settings.
type StorageConfig struct {
	TempDir       string `yaml:"tempDir"`
	OrphanTTL     string `yaml:"orphanTTL"`
	SweepInterval string `yaml:"sweepInterval"`
}

// RedisConfig enables update de-duplication when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Webhook: WebhookConfig{AutoRegister: true},
		Server:  ServerConfig{Port: DefaultPort},
		OCR: OCRConfig{
			Language:     tgpdf.DefaultOCRLanguage,
			MaxImageSize: tgpdf.DefaultMaxImageSize,
		},
		Pool: PoolConfig{
			TaskTimeout: tgpdf.DefaultTaskTimeout.String(),
		},
		Storage: StorageConfig{
			OrphanTTL:     tgpdf.DefaultOrphanTTL.String(),
			SweepInterval: "10m0s",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads a config from a file path or a config name.
// If nameOrPath contains a path separator or ends with .yaml/.yml, it is
// treated as a file path. Otherwise it is resolved as a config name in the
// working directory, then in the user config directory.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(configPath) // #nosec G304 -- user-provided config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := yamlutil.DecodeStrict(f, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field lengths and value ranges. The bot token may still
// be empty here; RequireToken checks it once every source has been applied.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"bot.token", c.Bot.Token, MaxTokenLength},
		{"bot.apiEndpoint", c.Bot.APIEndpoint, MaxURLLength},
		{"bot.fileEndpoint", c.Bot.FileEndpoint, MaxURLLength},
		{"webhook.url", c.Webhook.URL, MaxURLLength},
		{"webhook.secret", c.Webhook.Secret, MaxSecretLength},
		{"font.path", c.Font.Path, MaxPathLength},
		{"ocr.language", c.OCR.Language, MaxLangLength},
		{"storage.tempDir", c.Storage.TempDir, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if c.Webhook.URL != "" {
		if err := validateURL("webhook.url", c.Webhook.URL); err != nil {
			return err
		}
	}
	if err := validateEndpoint("bot.apiEndpoint", c.Bot.APIEndpoint); err != nil {
		return err
	}
	if err := validateEndpoint("bot.fileEndpoint", c.Bot.FileEndpoint); err != nil {
		return err
	}
	if c.Webhook.Secret != "" && !secretPattern.MatchString(c.Webhook.Secret) {
		return fmt.Errorf("%w: webhook.secret may only contain A-Z, a-z, 0-9, _ and -", ErrInvalidValue)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidValue, c.Server.Port)
	}
	if c.Server.MaxBodySize < 0 {
		return fmt.Errorf("%w: server.maxBodySize must not be negative", ErrInvalidValue)
	}
	if c.OCR.MaxImageSize < 0 {
		return fmt.Errorf("%w: ocr.maxImageSize must not be negative", ErrInvalidValue)
	}
	if c.Pool.Workers < 0 {
		return fmt.Errorf("%w: pool.workers must not be negative", ErrInvalidValue)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("%w: redis.db must not be negative", ErrInvalidValue)
	}
	if c.Log.Level != "" && !logLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("%w: log.level %q (want debug, info, warn or error)", ErrInvalidValue, c.Log.Level)
	}
	if c.Log.Format != "" && !logFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalidValue, c.Log.Format)
	}

	durations := []struct{ name, value string }{
		{"pool.taskTimeout", c.Pool.TaskTimeout},
		{"storage.orphanTTL", c.Storage.OrphanTTL},
		{"storage.sweepInterval", c.Storage.SweepInterval},
		{"redis.ttl", c.Redis.TTL},
	}
	for _, d := range durations {
		if _, err := parseDuration(d.name, d.value); err != nil {
			return err
		}
	}

	return nil
}

// RequireToken fails when no bot token was configured by any source.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

// TaskTimeout returns pool.taskTimeout, or the pool default when unset.
func (c *Config) TaskTimeout() time.Duration {
	return durationOr(c.Pool.TaskTimeout, tgpdf.DefaultTaskTimeout)
}

// OrphanTTL returns storage.orphanTTL, or the default when unset.
func (c *Config) OrphanTTL() time.Duration {
	return durationOr(c.Storage.OrphanTTL, tgpdf.DefaultOrphanTTL)
}

// SweepInterval returns storage.sweepInterval, or ten minutes when unset.
func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.Storage.SweepInterval, 10*time.Minute)
}

// DedupTTL returns redis.ttl. Zero lets the deduplicator pick its default.
func (c *Config) DedupTTL() time.Duration {
	return durationOr(c.Redis.TTL, 0)
}

// ListenAddr returns the HTTP listen address for server.port.
func (c *Config) ListenAddr() string {
	port := c.Server.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf(":%d", port)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidValue, field)
	}
	return d, nil
}

func durationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute http(s) URL", ErrInvalidValue, field)
	}
	return nil
}

// validateEndpoint checks a "<base>/bot%s/%s" style format string.
func validateEndpoint(field, format string) error {
	if format == "" {
		return nil
	}
	if strings.Count(format, "%s") != 2 || !fileutil.IsURL(format) {
		return fmt.Errorf("%w: %s must be an http(s) URL with two %%s verbs (token, method)", ErrInvalidValue, field)
	}
	return nil
}

// validateFieldLength returns an error if value exceeds maxLen.
func validateFieldLength(field, value string, maxLen int) error {
	if len(value) > maxLen {
		return fmt.Errorf("%w: %s is %d characters (max %d)", ErrFieldTooLong, field, len(value), maxLen)
	}
	return nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return fileutil.IsFilePath(s) || strings.HasSuffix(s, ".yaml") || strings.HasSuffix(s, ".yml")
}

// resolveConfigPath looks for name.yaml or name.yml in the working
// directory, then in the user config directory under tgpdf/.
func resolveConfigPath(name string) (string, error) {
	candidates := []string{name + ".yaml", name + ".yml"}

	for _, c := range candidates {
		if fileutil.FileExists(c) {
			return c, nil
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		for _, c := range candidates {
			p := filepath.Join(dir, "tgpdf", c)
			if fileutil.FileExists(p) {
				return p, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %q (searched: %s)", ErrConfigNotFound, name, strings.Join(SearchedPaths(name), ", "))
}

// SearchedPaths lists the locations a config name resolves against, in order.
func SearchedPaths(name string) []string {
	paths := []string{name + ".yaml", name + ".yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "tgpdf", name+".yaml"),
			filepath.Join(dir, "tgpdf", name+".yml"))
	}
	return paths
}
