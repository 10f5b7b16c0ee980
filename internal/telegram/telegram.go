// Package telegram adapts the Telegram Bot API to the tgpdf Messenger
// interface and converts platform updates into tgpdf.Update values.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tgpdf/tgpdf"
)

// Endpoint formats: token first, then method or file path.
const (
	DefaultAPIEndpoint  = tgbotapi.APIEndpoint
	DefaultFileEndpoint = tgbotapi.FileEndpoint
)

// DefaultTimeout is the ceiling for dialing, TLS, response headers and idle
// connections on bot API calls.
const DefaultTimeout = 30 * time.Second

// Sentinel errors for bot API operations.
var (
	ErrEmptyToken   = errors.New("bot token is empty")
	ErrFileDownload = errors.New("file download failed")
)

var _ tgpdf.Messenger = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithAPIEndpoint overrides the bot API URL format (for local Bot API servers and tests).
func WithAPIEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.apiEndpoint = endpoint
	}
}

// WithFileEndpoint overrides the file download URL format.
func WithFileEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.fileEndpoint = endpoint
	}
}

// WithHTTPClient replaces the HTTP client used for all calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to one bot. It is created once and shared by all tasks.
type Client struct {
	bot          *tgbotapi.BotAPI
	http         *http.Client
	token        string
	apiEndpoint  string
	fileEndpoint string
}

// New creates a Client for token. Unlike tgbotapi.NewBotAPI it makes no
// network call, so a service can start while the platform is unreachable.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	c := &Client{
		token:        token,
		apiEndpoint:  DefaultAPIEndpoint,
		fileEndpoint: DefaultFileEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(DefaultTimeout)
	}

	c.bot = &tgbotapi.BotAPI{
		Token:  token,
		Buffer: 100,
		Client: c.http,
	}
	c.bot.SetAPIEndpoint(c.apiEndpoint)
	return c, nil
}

// NewHTTPClient returns a client whose connection phases are each bounded by
// timeout. The whole exchange, uploads included, is bounded by twice that.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: timeout,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       timeout,
		MaxIdleConnsPerHost:   10,
	}
	return &http.Client{Transport: transport, Timeout: 2 * timeout}
}

// SendText sends a plain message and returns its id.
// Bot API calls cannot be cancelled once started; ctx is checked beforehand.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("sendMessage: %w", err)
	}
	return msg.MessageID, nil
}

// EditText replaces the text of a message sent earlier.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return fmt.Errorf("editMessageText: %w", err)
	}
	return nil
}

// Delete removes a message sent earlier.
func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("deleteMessage: %w", err)
	}
	return nil
}

// SendDocument uploads r as a file named filename.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename, caption string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: filename, Reader: r})
	doc.Caption = caption
	if _, err := c.bot.Send(doc); err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}
	return nil
}

// Download resolves fileID and streams the file into w.
func (c *Client) Download(ctx context.Context, fileID string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("getFile: %w", err)
	}
	if file.FilePath == "" {
		return fmt.Errorf("%w: no path for file %s", ErrFileDownload, fileID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.fileEndpoint, c.token, file.FilePath), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileDownload, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrFileDownload, resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%w: %w", ErrFileDownload, err)
	}
	return nil
}

// Me returns the bot account the token belongs to.
func (c *Client) Me(ctx context.Context) (tgbotapi.User, error) {
	if err := ctx.Err(); err != nil {
		return tgbotapi.User{}, err
	}
	return c.bot.GetMe()
}
