// Package bot manages the bot's lifecycle: Telegram polling, the task
// scheduler and the optional metrics endpoint.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/askbot/internal/bot/handlers"
	"github.com/edgard/askbot/internal/config"
	"github.com/edgard/askbot/internal/database"
	"github.com/edgard/askbot/internal/metrics"
)

// Poller is the long-polling loop. *tgbot.Bot implements it.
type Poller interface {
	Start(ctx context.Context)
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	poller    Poller
	scheduler *Scheduler
	metrics   *metrics.Metrics
	pending   *handlers.Pending
}

// NewBot creates a new Bot. metrics may be nil when no endpoint is configured.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
	m *metrics.Metrics,
	pending *handlers.Pending,
) *Bot {
	return newBot(logger, cfg, store, tgBot, scheduler, m, pending)
}

func newBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	poller Poller,
	scheduler *Scheduler,
	m *metrics.Metrics,
	pending *handlers.Pending,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		store:     store,
		poller:    poller,
		scheduler: scheduler,
		metrics:   m,
		pending:   pending,
	}
}

// Run starts all components and blocks until ctx is cancelled or one of them fails.
// On return every in-flight answer has been delivered and the store is closed.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")
		b.poller.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	if b.metrics != nil && b.cfg.Metrics.Listen != "" {
		g.Go(func() error {
			return b.metrics.Serve(gCtx, b.cfg.Metrics.Listen, b.logger)
		})
	}

	err := g.Wait()

	b.logger.Info("Waiting for in-flight answers...")
	b.pending.Wait()

	if closeErr := b.store.Close(); closeErr != nil {
		b.logger.Error("Error closing store", "error", closeErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
