package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/tgpdf/tgpdf/internal/config"
	"github.com/tgpdf/tgpdf/internal/hints"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	envFile   string
	logLevel  string
	logFormat string
}

// serveFlags holds flags that override service settings.
type serveFlags struct {
	port     int
	workers  int
	fontPath string
	lang     string
	tempDir  string
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
}

func addServeFlags(fs *flag.FlagSet, f *serveFlags) {
	fs.IntVarP(&f.port, "port", "p", 0, "HTTP port (default 5000)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent tasks (0 = auto)")
	fs.StringVar(&f.fontPath, "font", "", "Unicode TTF font path")
	fs.StringVar(&f.lang, "lang", "", "OCR languages, e.g. ukr+eng")
	fs.StringVar(&f.tempDir, "temp-dir", "", "directory for temporary artifacts")
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, deps *Dependencies) int {
	ctx, stop := notifyContext(context.Background())
	defer stop()

	root := newRootCmd(deps)
	root.SetArgs(args)
	root.SetOut(deps.Stdout)
	root.SetErr(deps.Stderr)

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrDoctorFailed) {
		fmt.Fprintln(deps.Stderr, "error:", err)
	}
	return exitCodeFor(err)
}

// newRootCmd builds the command tree. Running tgpdf without a subcommand serves.
func newRootCmd(deps *Dependencies) *cobra.Command {
	common := &commonFlags{}
	serve := &serveFlags{}

	root := &cobra.Command{
		Use:           "tgpdf",
		Short:         "Telegram bot that turns photos, image files and text into PDF",
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveCommand(cmd, deps, common, serve)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})
	addCommonFlags(root.PersistentFlags(), common)
	addServeFlags(root.Flags(), serve)

	root.AddCommand(
		newServeCmd(deps, common, serve),
		newWebhookCmd(deps, common),
		newDoctorCmd(deps, common),
		newConfigCmd(deps, common),
		newVersionCmd(deps),
	)
	return root
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return nil
	}
}

// loadSettings merges defaults, config file, environment and flags, in
// increasing order of precedence, and validates the result.
func loadSettings(cmd *cobra.Command, deps *Dependencies, common *commonFlags) (*config.Config, error) {
	if err := loadDotEnv(common.envFile); err != nil {
		return nil, err
	}
	warnUnknownEnvVars(deps.Stderr)

	env, err := loadEnvConfig()
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	path := common.config
	if path == "" {
		path = env.ConfigPath
	}
	if path != "" {
		cfg, err = config.LoadConfig(path)
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(config.SearchedPaths(path)))
		}
		if err != nil {
			return nil, err
		}
	}

	applyEnvConfig(env, cfg)

	fs := cmd.Flags()
	if fs.Changed("log-level") {
		cfg.Log.Level = common.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = common.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyServeFlags overlays explicitly set serve flags onto cfg.
func applyServeFlags(fs *flag.FlagSet, f *serveFlags, cfg *config.Config) error {
	if fs.Changed("port") {
		cfg.Server.Port = f.port
	}
	if fs.Changed("workers") {
		cfg.Pool.Workers = f.workers
	}
	if fs.Changed("font") {
		cfg.Font.Path = f.fontPath
	}
	if fs.Changed("lang") {
		cfg.OCR.Language = f.lang
	}
	if fs.Changed("temp-dir") {
		cfg.Storage.TempDir = f.tempDir
	}
	return cfg.Validate()
}
