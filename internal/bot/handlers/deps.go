package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/askbot/internal/broadcast"
	"github.com/edgard/askbot/internal/config"
	"github.com/edgard/askbot/internal/database"
	"github.com/edgard/askbot/internal/metrics"
	"github.com/edgard/askbot/internal/qa"
)

// Answerer answers a user question. It never fails.
type Answerer interface {
	Answer(ctx context.Context, query string) qa.Answer
}

// HandlerDeps provides dependencies for Telegram command and message handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Answerer Answerer
	Sessions *broadcast.Sessions
	Metrics  *metrics.Metrics
	Pending  *Pending

	// Now defaults to time.Now.
	Now func() time.Time
}

func (d HandlerDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
