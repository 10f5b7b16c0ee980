// Package hints provides actionable error hints for common startup failures.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/tgpdf/tgpdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForMissingToken returns a hint for a missing bot token.
func ForMissingToken() string {
	return format("set BOT_TOKEN or bot.token in the config file")
}

// ForWebhookURL returns a hint for webhook registration without a base URL.
func ForWebhookURL() string {
	return format("set WEBHOOK_URL to the public https base URL of this service")
}

// ForTesseract returns hints for a missing OCR engine or language data.
// Inside a container it names the distribution packages.
func ForTesseract(lang string) string {
	var hints []string

	if IsInContainer() {
		pkgs := []string{"tesseract-ocr"}
		for _, l := range strings.Split(lang, "+") {
			if l != "" {
				pkgs = append(pkgs, "tesseract-ocr-"+l)
			}
		}
		hints = append(hints, "add "+strings.Join(pkgs, " ")+" to the image")
	} else {
		hints = append(hints, "install tesseract with language data for "+lang)
	}

	if prefix := os.Getenv("TESSDATA_PREFIX"); prefix != "" {
		hints = append(hints, "TESSDATA_PREFIX="+prefix+" must contain the .traineddata files")
	}

	return formatHints(hints)
}

// ForFontNotFound returns hints for a missing Unicode font.
func ForFontNotFound(searched []string) string {
	var hints []string
	if len(searched) > 0 {
		hints = append(hints, "place DejaVuSans.ttf at "+searched[0])
	}
	hints = append(hints, "or set TGPDF_FONT_PATH")
	if IsInContainer() {
		hints = append(hints, "fonts-dejavu-core provides it on Debian images")
	}
	return formatHints(hints)
}

// ForRedis returns a hint for an unreachable de-duplication store.
func ForRedis(addr string) string {
	return format("check TGPDF_REDIS_ADDR (" + addr + ") or unset it to run without de-duplication")
}

// ForTimeout returns a hint about raising the per-task timeout.
func ForTimeout() string {
	return format("for large images, raise TGPDF_TASK_TIMEOUT or pool.taskTimeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/tgpdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/tgpdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForTempDir returns hints for an unusable artifact directory.
func ForTempDir() string {
	return format("check the directory exists and is writable, or set TGPDF_TEMP_DIR")
}

// ForListen returns a hint for a port that cannot be bound.
func ForListen() string {
	return format("another process may hold the port; set PORT to a free one")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
