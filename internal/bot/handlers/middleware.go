// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that lets only the configured administrator through.
// Anyone else gets the denial message and processing stops.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if !allowAdmin(ctx, deps, b, update) {
				return
			}
			next(ctx, b, update)
		}
	}
}

func allowAdmin(ctx context.Context, deps HandlerDeps, m Messenger, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}

	userID := update.Message.From.ID
	if deps.Config.IsAdmin(userID) {
		return true
	}

	chatID := update.Message.Chat.ID
	log := deps.Logger.With("middleware", "AdminOnly")
	log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID, "text", update.Message.Text)
	reply(ctx, m, log, chatID, deps.Config.Messages.NotAuthorized)
	return false
}

// TrackUser records or refreshes the sender of every message before it is handled.
// A store failure is logged and does not block the update.
func TrackUser(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			trackUser(ctx, deps, update)
			next(ctx, b, update)
		}
	}
}

func trackUser(ctx context.Context, deps HandlerDeps, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	from := update.Message.From
	if err := deps.Store.TouchUser(ctx, from.ID, from.Username, from.FirstName); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to record user", "user_id", from.ID, "error", err)
	}
}
