package main

import (
	"errors"
	"os"

	"github.com/tgpdf/tgpdf/internal/config"
	"github.com/tgpdf/tgpdf/internal/telegram"
)

// Exit codes for the tgpdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0 // Clean shutdown or successful command
	ExitGeneral     = 1 // General/unexpected error
	ExitUsage       = 2 // Invalid flags, config, env or validation
	ExitIO          = 3 // File not found, permission denied, unusable temp dir
	ExitUnavailable = 4 // Bot API, Redis, OCR or listener unavailable
)

// Sentinel errors for CLI operations.
var (
	ErrUsage            = errors.New("invalid usage")
	ErrInvalidEnv       = errors.New("invalid environment variable")
	ErrTempDir          = errors.New("temp directory not usable")
	ErrListen           = errors.New("cannot listen")
	ErrBotAPI           = errors.New("bot API request failed")
	ErrRedisUnavailable = errors.New("redis unavailable")
	ErrOCRUnavailable   = errors.New("OCR engine unavailable")
	ErrDoctorFailed     = errors.New("environment not ready")
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidEnv) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrMissingToken) ||
		errors.Is(err, telegram.ErrEmptyToken) ||
		errors.Is(err, telegram.ErrNoWebhookURL) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, ErrTempDir) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	// Dependency errors (exit 4)
	if errors.Is(err, ErrBotAPI) ||
		errors.Is(err, ErrRedisUnavailable) ||
		errors.Is(err, ErrOCRUnavailable) ||
		errors.Is(err, ErrListen) {
		return ExitUnavailable
	}

	return ExitGeneral
}
