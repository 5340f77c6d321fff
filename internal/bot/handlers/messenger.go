package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Messenger is the subset of the Bot API used by handlers. *bot.Bot implements it.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// reply sends text to chatID and logs a failure.
func reply(ctx context.Context, m Messenger, log *slog.Logger, chatID int64, text string) {
	if _, err := m.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// deliverer adapts a Messenger to broadcast.Sender.
type deliverer struct {
	m Messenger
}

func (d deliverer) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := d.m.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	return err
}

func (d deliverer) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	_, err := d.m.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileString{Data: fileID},
		Caption: caption,
	})
	return err
}

func (d deliverer) SendVideo(ctx context.Context, chatID int64, fileID, caption string) error {
	_, err := d.m.SendVideo(ctx, &bot.SendVideoParams{
		ChatID:  chatID,
		Video:   &models.InputFileString{Data: fileID},
		Caption: caption,
	})
	return err
}
