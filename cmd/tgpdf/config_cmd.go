package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tgpdf/tgpdf/internal/yamlutil"
)

// redacted replaces secret values in `config show` output.
const redacted = "********"

func newConfigCmd(deps *Dependencies, common *commonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML, secrets redacted",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd, deps, common)
			if err != nil {
				return err
			}

			masked := *cfg
			if masked.Bot.Token != "" {
				masked.Bot.Token = redacted
			}
			if masked.Webhook.Secret != "" {
				masked.Webhook.Secret = redacted
			}
			if masked.Redis.Password != "" {
				masked.Redis.Password = redacted
			}

			out, err := yamlutil.Marshal(&masked)
			if err != nil {
				return err
			}
			_, err = deps.Stdout.Write(out)
			return err
		},
	}

	cmd.AddCommand(show)
	return cmd
}

func newVersionCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(deps.Stdout, "tgpdf %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
