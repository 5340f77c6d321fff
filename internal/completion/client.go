// Package completion asks a hosted language model for an answer when the
// knowledge base has none. Complete never fails: every error becomes a
// user-facing message.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/edgard/askbot/internal/config"
	"github.com/edgard/askbot/internal/metrics"
)

// Outcome labels used in logs and metrics.
const (
	OutcomeSuccess    = "success"
	OutcomeStatus     = "status"
	OutcomeConnection = "connection"
	OutcomeUnexpected = "unexpected"
)

// Backend produces a completion for a prompt.
type Backend interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Client wraps a Backend with timeout, error classification and fallback messages.
type Client struct {
	backend  Backend
	cfg      config.CompletionConfig
	messages config.MessagesConfig
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewClient builds the backend selected by cfg.Provider.
func NewClient(
	ctx context.Context,
	cfg config.CompletionConfig,
	messages config.MessagesConfig,
	m *metrics.Metrics,
	log *slog.Logger,
) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var backend Backend
	switch cfg.Provider {
	case "", "openrouter":
		backend = &openRouterBackend{
			url:     cfg.URL,
			apiKey:  cfg.APIKey,
			siteURL: cfg.SiteURL,
			appName: cfg.AppName,
			client:  httpClient,
		}
	case "gemini":
		gb, err := newGeminiBackend(ctx, cfg.APIKey, httpClient)
		if err != nil {
			return nil, err
		}
		backend = gb
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}

	logger := log.With("component", "completion", "provider", cfg.Provider)
	logger.Info("Completion client initialized", "model", cfg.Model)
	return NewWithBackend(backend, cfg, messages, m, logger), nil
}

// NewWithBackend wraps an existing Backend.
func NewWithBackend(
	backend Backend,
	cfg config.CompletionConfig,
	messages config.MessagesConfig,
	m *metrics.Metrics,
	log *slog.Logger,
) *Client {
	return &Client{backend: backend, cfg: cfg, messages: messages, metrics: m, log: log}
}

// Complete returns the model's answer to query, or a fallback message
// describing why none could be obtained.
func (c *Client) Complete(ctx context.Context, query string) (answer string) {
	start := time.Now()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorContext(ctx, "Completion backend panicked", "panic", r)
			c.metrics.ObserveCompletion(OutcomeUnexpected, time.Since(start))
			answer = c.messages.CompletionUnexpected
		}
	}()

	text, err := c.backend.Generate(ctx, Prompt{
		System:      c.cfg.SystemInstruction,
		User:        query,
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	elapsed := time.Since(start)

	if err == nil {
		c.metrics.ObserveCompletion(OutcomeSuccess, elapsed)
		c.log.DebugContext(ctx, "Completion succeeded", "duration", elapsed, "answer_len", len(text))
		return text
	}

	outcome := Classify(err)
	c.metrics.ObserveCompletion(outcome, elapsed)
	c.log.ErrorContext(ctx, "Completion failed", "outcome", outcome, "duration", elapsed, "error", err)

	switch outcome {
	case OutcomeStatus:
		var se *StatusError
		errors.As(err, &se)
		return fmt.Sprintf(c.messages.CompletionStatusFmt, se.Code)
	case OutcomeConnection:
		return c.messages.CompletionConnection
	default:
		return c.messages.CompletionUnexpected
	}
}

// Classify maps a backend error to an outcome label. Only transport failures
// count as connection errors; a *url.Error is judged by the error it wraps.
func Classify(err error) string {
	var (
		se     *StatusError
		urlErr *url.Error
		netErr net.Error
	)
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &se):
		return OutcomeStatus
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return OutcomeConnection
	default:
		return OutcomeUnexpected
	}
}
