// Package tasks implements the bot's scheduled tasks and their registration.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/askbot/internal/config"
	"github.com/edgard/askbot/internal/database"
)

// Notifier sends a Telegram message. *bot.Bot implements it.
type Notifier interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Notifier Notifier
	Config   *config.Config

	// Now defaults to time.Now.
	Now func() time.Time
}
