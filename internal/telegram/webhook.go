package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookPath is where the service receives updates.
const WebhookPath = "/webhook"

// ErrNoWebhookURL is returned when registration is asked for without a base URL.
var ErrNoWebhookURL = errors.New("WEBHOOK_URL not configured")

// Registrar sets and removes the bot webhook. Calls are serialized so
// concurrent admin requests cannot interleave; they never touch task state.
type Registrar struct {
	client *Client
	mu     sync.Mutex
}

// NewRegistrar creates a Registrar for c.
func NewRegistrar(c *Client) *Registrar {
	return &Registrar{client: c}
}

// WebhookURL joins a public base URL with WebhookPath.
func WebhookURL(base string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", ErrNoWebhookURL
	}
	u, err := url.Parse(base + WebhookPath)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid webhook base URL %q", base)
	}
	return u.String(), nil
}

// Set points the bot at base+WebhookPath and returns the registered URL.
// A non-empty secret is sent back by the platform in every webhook call.
func (r *Registrar) Set(ctx context.Context, base, secret string) (string, error) {
	link, err := WebhookURL(base)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := make(tgbotapi.Params)
	params["url"] = link
	params.AddNonEmpty("secret_token", secret)
	if err := params.AddInterface("allowed_updates", []string{"message"}); err != nil {
		return "", err
	}

	resp, err := r.client.bot.MakeRequest("setWebhook", params)
	if err != nil {
		return "", fmt.Errorf("setWebhook: %w", err)
	}
	if !resp.Ok {
		return "", fmt.Errorf("setWebhook: %s", resp.Description)
	}
	return link, nil
}

// Delete removes the webhook registration.
func (r *Registrar) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.client.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}

// Info reports the current registration.
func (r *Registrar) Info(ctx context.Context) (tgbotapi.WebhookInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return tgbotapi.WebhookInfo{}, err
	}
	info, err := r.client.bot.GetWebhookInfo()
	if err != nil {
		return info, fmt.Errorf("getWebhookInfo: %w", err)
	}
	return info, nil
}
