package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tgpdf/tgpdf"
	"github.com/tgpdf/tgpdf/internal/config"
	"github.com/tgpdf/tgpdf/internal/dedup"
	"github.com/tgpdf/tgpdf/internal/hints"
	"github.com/tgpdf/tgpdf/internal/telegram"
)

// doctorSample exercises both Cyrillic and Latin glyphs.
const doctorSample = "Привіт, світ! Hello, world! №5"

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Bot      botInfo    `json:"bot"`
	OCR      ocrInfo    `json:"ocr"`
	Font     fontInfo   `json:"font"`
	Render   renderInfo `json:"render"`
	Redis    redisInfo  `json:"redis"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// botInfo holds token and API reachability results.
type botInfo struct {
	TokenSet   bool   `json:"token_set"`
	Checked    bool   `json:"checked"`
	Username   string `json:"username,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// ocrInfo holds OCR engine detection results.
type ocrInfo struct {
	Ready    bool   `json:"ready"`
	Version  string `json:"version,omitempty"`
	Language string `json:"language"`
}

// fontInfo holds font resolution results.
type fontInfo struct {
	Family string `json:"family"`
	Path   string `json:"path,omitempty"`
}

// renderInfo holds the self-test render result.
type renderInfo struct {
	OK    bool `json:"ok"`
	Pages int  `json:"pages"`
	Bytes int  `json:"bytes"`
}

// redisInfo holds de-duplication store results.
type redisInfo struct {
	Enabled   bool   `json:"enabled"`
	Addr      string `json:"addr,omitempty"`
	Reachable bool   `json:"reachable"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempDir      string `json:"temp_dir"`
	TempWritable bool   `json:"temp_writable"`
}

func newDoctorCmd(deps *Dependencies, common *commonFlags) *cobra.Command {
	var jsonOutput, offline bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that this host can run the bot",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd, deps, common)
			if err != nil {
				return err
			}

			result := runDoctor(cmd.Context(), cfg, deps, offline)

			if jsonOutput {
				enc := json.NewEncoder(deps.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(result)
			} else {
				printDoctorResult(deps.Stdout, result)
			}

			if result.Status == "errors" {
				return ErrDoctorFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip checks that call the bot API")
	return cmd
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *config.Config, deps *Dependencies, offline bool) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	checkBot(ctx, result, cfg, deps, offline)
	checkOCR(result, cfg, deps)
	font := checkFont(result, cfg)
	checkRender(ctx, result, font)
	checkRedis(ctx, result, cfg)
	checkEnvironment(result)
	checkSystem(result, cfg)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkBot verifies the token and, unless offline, that the API accepts it.
func checkBot(ctx context.Context, result *doctorResult, cfg *config.Config, deps *Dependencies, offline bool) {
	if cfg.Webhook.URL != "" {
		link, err := telegram.WebhookURL(cfg.Webhook.URL)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("WEBHOOK_URL invalid: %v", err))
		} else {
			result.Bot.WebhookURL = link
		}
	} else {
		result.Warnings = append(result.Warnings,
			"WEBHOOK_URL not set; register the webhook manually with `tgpdf webhook set --url`")
	}

	if cfg.RequireToken() != nil {
		result.Errors = append(result.Errors, "Bot token not set. Set BOT_TOKEN or bot.token")
		return
	}
	result.Bot.TokenSet = true
	if offline {
		return
	}

	client, err := newBotClient(cfg, deps)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Bot client: %v", err))
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()
	me, err := client.Me(callCtx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Bot API rejected the token or is unreachable: %v", err))
		return
	}
	result.Bot.Checked = true
	result.Bot.Username = me.UserName
}

// checkOCR verifies the engine and its language data.
func checkOCR(result *doctorResult, cfg *config.Config, deps *Dependencies) {
	lang := ocrLanguage(cfg)
	result.OCR.Language = lang

	version, err := deps.NewOCR().Check(lang)
	result.OCR.Version = version
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("OCR not ready: %v%s", err, hints.ForTesseract(lang)))
		return
	}
	result.OCR.Ready = true
}

// checkFont resolves the font a render would use.
func checkFont(result *doctorResult, cfg *config.Config) tgpdf.FontChoice {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	font := newFontResolver(cfg, quiet).Resolve()
	result.Font.Family = font.Family.String()
	result.Font.Path = font.Path
	if font.Family != tgpdf.PreferredUnicode {
		result.Warnings = append(result.Warnings,
			"No Unicode font found; Cyrillic text will be transliterated"+hints.ForFontNotFound(fontPaths(cfg)))
	}
	return font
}

// checkRender renders a sample and reads it back.
func checkRender(ctx context.Context, result *doctorResult, font tgpdf.FontChoice) {
	doc, err := tgpdf.NewRenderer().Render(ctx, tgpdf.RenderRequest{Content: doctorSample}, font)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Sample render failed: %v", err))
		return
	}

	r, err := pdf.NewReader(bytes.NewReader(doc.PDF), int64(len(doc.PDF)))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Sample PDF unreadable: %v", err))
		return
	}
	if n := r.NumPage(); n != doc.Pages || n < 1 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Sample PDF has %d pages, renderer reported %d", n, doc.Pages))
		return
	}

	result.Render = renderInfo{OK: true, Pages: doc.Pages, Bytes: len(doc.PDF)}
}

// checkRedis pings the de-duplication store when one is configured.
func checkRedis(ctx context.Context, result *doctorResult, cfg *config.Config) {
	if cfg.Redis.Addr == "" {
		return
	}
	result.Redis.Enabled = true
	result.Redis.Addr = cfg.Redis.Addr

	d := dedup.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.DedupTTL())
	defer d.Close()

	pingCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()
	if err := d.Ping(pingCtx); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Redis unreachable (%v); duplicates will not be filtered%s", err, hints.ForRedis(cfg.Redis.Addr)))
		return
	}
	result.Redis.Reachable = true
}

// checkEnvironment detects container environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	// Explicit override (highest priority)
	if os.Getenv("TGPDF_CONTAINER") == "1" {
		return true, "TGPDF_CONTAINER=1"
	}
	// Docker
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the artifact directory.
func checkSystem(result *doctorResult, cfg *config.Config) {
	dir := cfg.Storage.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	result.System.TempDir = dir

	if err := checkTempDir(dir); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %v", err))
		return
	}
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "tgpdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Bot")
	switch {
	case !r.Bot.TokenSet:
		fmt.Fprintln(w, "  [ERROR] Token: not set")
	case r.Bot.Checked:
		fmt.Fprintf(w, "  [OK] Token: accepted (@%s)\n", r.Bot.Username)
	default:
		fmt.Fprintln(w, "  [OK] Token: set (not verified)")
	}
	if r.Bot.WebhookURL != "" {
		fmt.Fprintf(w, "  [OK] Webhook: %s\n", r.Bot.WebhookURL)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OCR")
	if r.OCR.Ready {
		fmt.Fprintf(w, "  [OK] Tesseract %s, languages %s\n", r.OCR.Version, r.OCR.Language)
	} else {
		fmt.Fprintf(w, "  [ERROR] Not ready for %s\n", r.OCR.Language)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PDF")
	if r.Font.Path != "" {
		fmt.Fprintf(w, "  [OK] Font: %s (%s)\n", r.Font.Family, r.Font.Path)
	} else {
		fmt.Fprintf(w, "  [WARN] Font: %s\n", r.Font.Family)
	}
	if r.Render.OK {
		fmt.Fprintf(w, "  [OK] Sample render: %d page(s), %d bytes\n", r.Render.Pages, r.Render.Bytes)
	} else {
		fmt.Fprintln(w, "  [ERROR] Sample render failed")
	}
	fmt.Fprintln(w)

	if r.Redis.Enabled {
		fmt.Fprintln(w, "Redis")
		if r.Redis.Reachable {
			fmt.Fprintf(w, "  [OK] %s reachable\n", r.Redis.Addr)
		} else {
			fmt.Fprintf(w, "  [WARN] %s unreachable\n", r.Redis.Addr)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.System.TempWritable {
		fmt.Fprintf(w, "  [OK] Temp directory: %s writable\n", r.System.TempDir)
	} else {
		fmt.Fprintf(w, "  [ERROR] Temp directory: %s not writable\n", r.System.TempDir)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to serve")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
