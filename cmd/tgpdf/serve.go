package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/tgpdf/tgpdf"
	"github.com/tgpdf/tgpdf/internal/config"
	"github.com/tgpdf/tgpdf/internal/dedup"
	"github.com/tgpdf/tgpdf/internal/fileutil"
	"github.com/tgpdf/tgpdf/internal/hints"
	"github.com/tgpdf/tgpdf/internal/server"
	"github.com/tgpdf/tgpdf/internal/telegram"
)

// shutdownGrace bounds the drain of HTTP requests and running tasks.
const shutdownGrace = 30 * time.Second

// startupCheckTimeout bounds startup probes such as the redis ping.
const startupCheckTimeout = 5 * time.Second

func newServeCmd(deps *Dependencies, common *commonFlags, serve *serveFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive webhook updates and answer them with PDFs (default)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveCommand(cmd, deps, common, serve)
		},
	}
	addServeFlags(cmd.Flags(), serve)
	return cmd
}

func serveCommand(cmd *cobra.Command, deps *Dependencies, common *commonFlags, serve *serveFlags) error {
	cfg, err := loadSettings(cmd, deps, common)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd.Flags(), serve, cfg); err != nil {
		return err
	}
	log, err := newLogger(cfg.Log, deps.Stderr)
	if err != nil {
		return err
	}
	return runServe(cmd.Context(), cfg, deps, log)
}

// runServe wires the service and blocks until ctx ends or the listener
// fails. On the way out it stops accepting requests, then drains the pool.
func runServe(ctx context.Context, cfg *config.Config, deps *Dependencies, log *logrus.Logger) error {
	if err := cfg.RequireToken(); err != nil {
		return fmt.Errorf("%w%s", err, hints.ForMissingToken())
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if undo, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err == nil {
		defer undo()
	}
	routeBotLogs(log)

	client, err := newBotClient(cfg, deps)
	if err != nil {
		return err
	}

	tempDir := cfg.Storage.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := checkTempDir(tempDir); err != nil {
		return fmt.Errorf("%w%s", err, hints.ForTempDir())
	}

	engine := deps.NewOCR()
	lang := ocrLanguage(cfg)
	if version, err := engine.Check(lang); err != nil {
		log.WithError(err).WithField("hint", hints.ForTesseract(lang)).
			Warn("OCR not ready; image messages will fail until it is installed")
	} else {
		log.WithFields(logrus.Fields{"tesseract": version, "lang": lang}).Info("OCR ready")
	}

	fonts := newFontResolver(cfg, log)
	if font := fonts.Resolve(); font.Family == tgpdf.PreferredUnicode {
		log.WithField("path", font.Path).Info("unicode font loaded")
	} else {
		log.WithField("hint", hints.ForFontNotFound(fontPaths(cfg))).
			Warn("no unicode font found; PDFs will be transliterated")
	}

	extractor := tgpdf.NewExtractor(engine, extractorOptions(cfg)...)
	dispatcher := tgpdf.NewDispatcher(client, extractor,
		tgpdf.WithFontSource(fonts),
		tgpdf.WithTempDir(tempDir),
		tgpdf.WithLogger(log),
	)

	workers := tgpdf.ResolvePoolSize(cfg.Pool.Workers)
	pool := tgpdf.NewTaskPool(workers,
		tgpdf.WithTaskTimeout(cfg.TaskTimeout()),
		tgpdf.WithPoolLogger(log),
	)

	registrar := telegram.NewRegistrar(client)
	opts := []server.Option{
		server.WithRegistrar(registrar),
		server.WithWebhookBaseURL(cfg.Webhook.URL),
		server.WithSecret(cfg.Webhook.Secret),
		server.WithVersion(Version),
		server.WithLogger(log),
	}
	if cfg.Server.MaxBodySize > 0 {
		opts = append(opts, server.WithMaxBodySize(cfg.Server.MaxBodySize))
	}

	if cfg.Redis.Addr != "" {
		d := dedup.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.DedupTTL())
		defer d.Close()
		pingCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
		if err := d.Ping(pingCtx); err != nil {
			log.WithError(err).WithField("hint", hints.ForRedis(cfg.Redis.Addr)).
				Warn("redis unreachable; duplicates will be processed until it recovers")
		}
		cancel()
		opts = append(opts, server.WithDeduplicator(d))
	}

	srv := server.New(dispatcher, pool, opts...)

	ln, err := deps.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		_ = pool.Shutdown(ctx)
		return fmt.Errorf("%w: %v%s", ErrListen, err, hints.ForListen())
	}
	httpSrv := server.NewHTTPServer(ln.Addr().String(), srv.Routes())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tgpdf.RunSweeper(ctx, tempDir, cfg.OrphanTTL(), cfg.SweepInterval(), log)
	}()

	if cfg.Webhook.URL != "" && cfg.Webhook.AutoRegister {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registerWebhook(ctx, registrar, cfg, log)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpSrv.Serve(ln)
	}()
	log.WithFields(logrus.Fields{
		"addr":    ln.Addr().String(),
		"workers": workers,
		"version": Version,
	}).Info("listening")

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("%w: %v", ErrListen, err)
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownGrace)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("running tasks cancelled at shutdown")
	}
	wg.Wait()

	return runErr
}

// registerWebhook points the bot at this service. A failure is logged, not
// fatal: the admin endpoint or `tgpdf webhook set` can retry.
func registerWebhook(ctx context.Context, r *telegram.Registrar, cfg *config.Config, log logrus.FieldLogger) {
	link, err := r.Set(ctx, cfg.Webhook.URL, cfg.Webhook.Secret)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("webhook registration failed")
		}
		return
	}
	log.WithField("url", link).Info("webhook registered")
}

// newBotClient builds the bot API client from the bot section.
func newBotClient(cfg *config.Config, deps *Dependencies) (*telegram.Client, error) {
	var opts []telegram.Option
	if cfg.Bot.APIEndpoint != "" {
		opts = append(opts, telegram.WithAPIEndpoint(cfg.Bot.APIEndpoint))
	}
	if cfg.Bot.FileEndpoint != "" {
		opts = append(opts, telegram.WithFileEndpoint(cfg.Bot.FileEndpoint))
	}
	if deps.HTTPClient != nil {
		opts = append(opts, telegram.WithHTTPClient(deps.HTTPClient))
	}
	return telegram.New(cfg.Bot.Token, opts...)
}

// newFontResolver honors font.path, falling back to the default locations.
func newFontResolver(cfg *config.Config, log logrus.FieldLogger) *tgpdf.FontResolver {
	return tgpdf.NewFontResolver(
		tgpdf.WithFontPaths(fontPaths(cfg)...),
		tgpdf.WithFontLogger(log),
	)
}

func fontPaths(cfg *config.Config) []string {
	if cfg.Font.Path != "" {
		return append([]string{cfg.Font.Path}, tgpdf.DefaultFontPaths...)
	}
	return tgpdf.DefaultFontPaths
}

func ocrLanguage(cfg *config.Config) string {
	if cfg.OCR.Language == "" {
		return tgpdf.DefaultOCRLanguage
	}
	return cfg.OCR.Language
}

func extractorOptions(cfg *config.Config) []tgpdf.ExtractorOption {
	opts := []tgpdf.ExtractorOption{tgpdf.WithLanguage(ocrLanguage(cfg))}
	if cfg.OCR.MaxImageSize > 0 {
		opts = append(opts, tgpdf.WithMaxImageSize(cfg.OCR.MaxImageSize))
	}
	return opts
}

// checkTempDir verifies that artifacts can be created in dir.
func checkTempDir(dir string) error {
	_, cleanup, err := fileutil.WriteTempFile(dir, "tgpdf-probe-", "tmp", []byte("ok"))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTempDir, dir, err)
	}
	cleanup()
	return nil
}
