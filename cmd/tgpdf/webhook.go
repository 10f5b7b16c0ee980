package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgpdf/tgpdf/internal/config"
	"github.com/tgpdf/tgpdf/internal/hints"
	"github.com/tgpdf/tgpdf/internal/telegram"
)

// webhookInfo is the subset of the registration reported by `webhook info`.
type webhookInfo struct {
	URL              string `json:"url"`
	PendingUpdates   int    `json:"pending_update_count"`
	MaxConnections   int    `json:"max_connections,omitempty"`
	LastErrorAt      string `json:"last_error_at,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

func newWebhookCmd(deps *Dependencies, common *commonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the bot webhook registration",
		Args:  usageArgs(cobra.NoArgs),
	}

	var baseURL, secret string
	set := &cobra.Command{
		Use:   "set",
		Short: "Point the bot at WEBHOOK_URL/webhook",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, registrar, err := webhookSetup(cmd, deps, common)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("url") {
				cfg.Webhook.URL = baseURL
			}
			if cmd.Flags().Changed("secret") {
				cfg.Webhook.Secret = secret
			}
			if cfg.Webhook.URL == "" {
				return fmt.Errorf("%w%s", telegram.ErrNoWebhookURL, hints.ForWebhookURL())
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			link, err := registrar.Set(cmd.Context(), cfg.Webhook.URL, cfg.Webhook.Secret)
			if err != nil {
				return botAPIError(err)
			}
			fmt.Fprintf(deps.Stdout, "webhook registered: %s\n", link)
			return nil
		},
	}
	set.Flags().StringVar(&baseURL, "url", "", "public base URL (overrides WEBHOOK_URL)")
	set.Flags().StringVar(&secret, "secret", "", "secret token echoed in every webhook call")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, registrar, err := webhookSetup(cmd, deps, common)
			if err != nil {
				return err
			}
			if err := registrar.Delete(cmd.Context()); err != nil {
				return botAPIError(err)
			}
			fmt.Fprintln(deps.Stdout, "webhook deleted")
			return nil
		},
	}

	var jsonOutput bool
	info := &cobra.Command{
		Use:   "info",
		Short: "Show the current webhook registration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, registrar, err := webhookSetup(cmd, deps, common)
			if err != nil {
				return err
			}
			raw, err := registrar.Info(cmd.Context())
			if err != nil {
				return botAPIError(err)
			}

			wi := webhookInfo{
				URL:              raw.URL,
				PendingUpdates:   raw.PendingUpdateCount,
				MaxConnections:   raw.MaxConnections,
				LastErrorMessage: raw.LastErrorMessage,
			}
			if raw.LastErrorDate > 0 {
				wi.LastErrorAt = time.Unix(int64(raw.LastErrorDate), 0).UTC().Format(time.RFC3339)
			}

			if jsonOutput {
				enc := json.NewEncoder(deps.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(wi)
			}
			printWebhookInfo(deps.Stdout, wi)
			return nil
		},
	}
	info.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")

	cmd.AddCommand(set, del, info)
	return cmd
}

// webhookSetup loads settings and builds a registrar.
func webhookSetup(cmd *cobra.Command, deps *Dependencies, common *commonFlags) (*config.Config, *telegram.Registrar, error) {
	cfg, err := loadSettings(cmd, deps, common)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireToken(); err != nil {
		return nil, nil, fmt.Errorf("%w%s", err, hints.ForMissingToken())
	}
	client, err := newBotClient(cfg, deps)
	if err != nil {
		return nil, nil, err
	}
	return cfg, telegram.NewRegistrar(client), nil
}

// botAPIError tags platform failures; URL validation errors pass through.
func botAPIError(err error) error {
	if errors.Is(err, telegram.ErrNoWebhookURL) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBotAPI, err)
}

func printWebhookInfo(w io.Writer, wi webhookInfo) {
	if wi.URL == "" {
		fmt.Fprintln(w, "webhook: not set")
	} else {
		fmt.Fprintf(w, "webhook: %s\n", wi.URL)
	}
	fmt.Fprintf(w, "pending updates: %d\n", wi.PendingUpdates)
	if wi.MaxConnections > 0 {
		fmt.Fprintf(w, "max connections: %d\n", wi.MaxConnections)
	}
	if wi.LastErrorMessage != "" {
		fmt.Fprintf(w, "last error: %s (%s)\n", wi.LastErrorMessage, wi.LastErrorAt)
	}
}
