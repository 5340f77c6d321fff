package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewMessageHandler returns the default handler for messages that match no command.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

// messageHandler routes administrator messages through the broadcast workflow
// and answers every other plain-text message as a question.
type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h messageHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if h.deps.Config.IsAdmin(msg.From.ID) && h.routeBroadcast(ctx, m, msg) {
		return
	}

	if msg.Text == "" || strings.HasPrefix(msg.Text, "/") {
		return
	}
	h.answer(ctx, m, msg)
}

// answer posts a wait notice, then answers in a tracked goroutine so the
// update loop is not blocked by the completion call.
func (h messageHandler) answer(ctx context.Context, m Messenger, msg *models.Message) {
	log := h.deps.Logger.With("handler", "question", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	chatID := msg.Chat.ID
	msgs := h.deps.Config.Messages

	wait, err := m.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: msgs.Waiting})
	if err != nil {
		log.WarnContext(ctx, "Failed to send wait message", "error", err)
		wait = nil
	}

	ctx = context.WithoutCancel(ctx)
	h.deps.Pending.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "Panic while answering question", "panic", r)
				h.deleteWait(ctx, m, log, chatID, wait)
				reply(ctx, m, log, chatID, msgs.GeneralError)
			}
		}()

		ans := h.deps.Answerer.Answer(ctx, msg.Text)
		if err := h.deps.Store.IncrementQuestions(ctx, msg.From.ID); err != nil {
			log.ErrorContext(ctx, "Failed to increment question counters", "error", err)
		}

		h.deleteWait(ctx, m, log, chatID, wait)
		reply(ctx, m, log, chatID, ans.Text)
		log.InfoContext(ctx, "Question answered", "source", ans.Source, "question_preview", shorten(msg.Text, 50))
	})
}

func (h messageHandler) deleteWait(ctx context.Context, m Messenger, log *slog.Logger, chatID int64, wait *models.Message) {
	if wait == nil {
		return
	}
	if _, err := m.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: wait.ID}); err != nil {
		log.WarnContext(ctx, "Failed to delete wait message", "error", err)
	}
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
