// Package server is the HTTP front end: it accepts webhook updates, hands
// them to the task pool and exposes health and webhook admin endpoints.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tgpdf/tgpdf"
	"github.com/tgpdf/tgpdf/internal/telegram"
)

// ServiceName is reported by the health endpoints.
const ServiceName = "telegram-pdf-bot"

// DefaultMaxBodySize caps one webhook payload.
const DefaultMaxBodySize = 1 << 20

// SecretHeader carries the webhook secret set at registration.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Handler processes one update to completion.
type Handler interface {
	Handle(ctx context.Context, u tgpdf.Update) tgpdf.Outcome
}

// Submitter runs tasks without blocking the caller.
type Submitter interface {
	Submit(name string, task tgpdf.Task) error
}

// Deduplicator filters redelivered updates.
type Deduplicator interface {
	FirstSeen(ctx context.Context, id int) (bool, error)
	Forget(ctx context.Context, id int) error
}

// Registrar manages the webhook registration.
type Registrar interface {
	Set(ctx context.Context, base, secret string) (string, error)
	Delete(ctx context.Context) error
}

// Compile-time interface implementation checks.
var (
	_ Handler   = (*tgpdf.Dispatcher)(nil)
	_ Submitter = (*tgpdf.TaskPool)(nil)
	_ Registrar = (*telegram.Registrar)(nil)
)

// Option configures a Server.
type Option func(*Server)

// WithDeduplicator drops updates whose id was already accepted.
func WithDeduplicator(d Deduplicator) Option {
	return func(s *Server) {
		s.dedup = d
	}
}

// WithRegistrar enables the webhook admin endpoints.
func WithRegistrar(r Registrar) Option {
	return func(s *Server) {
		s.registrar = r
	}
}

// WithWebhookBaseURL sets the public base URL used by /set_webhook.
func WithWebhookBaseURL(base string) Option {
	return func(s *Server) {
		s.baseURL = base
	}
}

// WithSecret requires webhook calls to carry this secret token.
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithVersion sets the version reported by health endpoints.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the server logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMaxBodySize caps webhook payloads.
// Panics if n <= 0 (programmer error).
func WithMaxBodySize(n int64) Option {
	if n <= 0 {
		panic("server: WithMaxBodySize must be positive")
	}
	return func(s *Server) {
		s.maxBody = n
	}
}

// Server routes HTTP requests. It holds no per-request state.
type Server struct {
	handler   Handler
	pool      Submitter
	dedup     Deduplicator
	registrar Registrar
	baseURL   string
	secret    string
	version   string
	maxBody   int64
	logger    logrus.FieldLogger
}

// New creates a Server dispatching updates to h through pool.
func New(h Handler, pool Submitter, opts ...Option) *Server {
	s := &Server{
		handler: h,
		pool:    pool,
		version: "dev",
		maxBody: DefaultMaxBodySize,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes registers every endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.Health)
	mux.HandleFunc("GET /health", s.Health)
	mux.HandleFunc("POST "+telegram.WebhookPath, s.Webhook)
	mux.HandleFunc("POST /set_webhook", s.SetWebhook)
	mux.HandleFunc("POST /delete_webhook", s.DeleteWebhook)
}

// Routes returns a mux with every endpoint, wrapped in request logging and
// panic recovery.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.recoverer(s.logRequests(mux))
}

// Health handles GET / and GET /health.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": s.version,
	})
}

// Webhook handles POST /webhook: it validates the update, queues it and
// answers at once. Processing happens on the pool.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(s.secret)) != 1 {
		Error(w, http.StatusUnauthorized, "invalid secret token")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		Error(w, http.StatusBadRequest, "could not read body")
		return
	}

	raw, err := telegram.DecodeUpdate(body)
	switch {
	case errors.Is(err, telegram.ErrEmptyUpdate):
		Error(w, http.StatusBadRequest, "No data received")
		return
	case err != nil:
		s.logger.WithError(err).Warn("rejected webhook payload")
		Error(w, http.StatusBadRequest, "invalid update payload")
		return
	}
	update := telegram.ConvertUpdate(raw)
	log := s.logger.WithField("update_id", update.UpdateID)

	if s.dedup != nil {
		first, err := s.dedup.FirstSeen(r.Context(), update.UpdateID)
		switch {
		case err != nil:
			log.WithError(err).Warn("dedup unavailable, processing anyway")
		case !first:
			log.Debug("duplicate update dropped")
			JSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
	}

	err = s.pool.Submit(fmt.Sprintf("update-%d", update.UpdateID), func(ctx context.Context) {
		s.handler.Handle(ctx, update)
	})
	if err != nil {
		log.WithError(err).Warn("update refused")
		s.forget(r.Context(), update.UpdateID)
		Error(w, http.StatusServiceUnavailable, "busy, retry later")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// forget lets a refused update through when the platform redelivers it.
func (s *Server) forget(ctx context.Context, id int) {
	if s.dedup == nil {
		return
	}
	if err := s.dedup.Forget(ctx, id); err != nil {
		s.logger.WithField("update_id", id).WithError(err).Warn("dedup entry not removed")
	}
}

// SetWebhook handles POST /set_webhook.
func (s *Server) SetWebhook(w http.ResponseWriter, r *http.Request) {
	if s.baseURL == "" {
		Error(w, http.StatusBadRequest, telegram.ErrNoWebhookURL.Error())
		return
	}
	if s.registrar == nil {
		Error(w, http.StatusInternalServerError, "webhook registration unavailable")
		return
	}

	link, err := s.registrar.Set(r.Context(), s.baseURL, s.secret)
	if err != nil {
		s.logger.WithError(err).Error("webhook registration failed")
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.WithField("url", link).Info("webhook registered")
	JSON(w, http.StatusOK, map[string]string{"status": "success", "webhook_url": link})
}

// DeleteWebhook handles POST /delete_webhook.
func (s *Server) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	if s.registrar == nil {
		Error(w, http.StatusInternalServerError, "webhook registration unavailable")
		return
	}
	if err := s.registrar.Delete(r.Context()); err != nil {
		s.logger.WithError(err).Error("webhook removal failed")
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("webhook deleted")
	JSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Webhook deleted"})
}

// NewHTTPServer wraps h with connection timeouts suited to small JSON payloads.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"status":"error","message":msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"status": "error", "message": msg})
}
