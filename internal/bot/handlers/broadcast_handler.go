package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/askbot/internal/broadcast"
)

// Confirmation words accepted while a broadcast awaits confirmation.
const (
	confirmYes = "yes"
	confirmNo  = "no"
)

// NewBroadcastHandler returns a handler for the /broadcast command.
func NewBroadcastHandler(deps HandlerDeps) bot.HandlerFunc {
	return broadcastHandler{deps}.Handle
}

// broadcastHandler starts a broadcast session for the given kind.
type broadcastHandler struct {
	deps HandlerDeps
}

func (h broadcastHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h broadcastHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "broadcast")
	chatID := update.Message.Chat.ID
	adminID := update.Message.From.ID
	msgs := h.deps.Config.Messages

	args := commandArgs(update.Message.Text)
	if args == "" {
		reply(ctx, m, log, chatID, msgs.BroadcastUsage)
		return
	}

	kind, err := broadcast.ParseKind(strings.Fields(args)[0])
	if errors.Is(err, broadcast.ErrUnknownKind) {
		reply(ctx, m, log, chatID, msgs.BroadcastBadKind)
		return
	}

	h.deps.Sessions.Start(adminID, kind)
	log.InfoContext(ctx, "Broadcast session started", "admin_id", adminID, "kind", string(kind))

	prompts := map[broadcast.Kind]string{
		broadcast.KindText:  msgs.BroadcastAskText,
		broadcast.KindPhoto: msgs.BroadcastAskPhoto,
		broadcast.KindVideo: msgs.BroadcastAskVideo,
	}
	reply(ctx, m, log, chatID, prompts[kind])
}

// routeBroadcast feeds an administrator's message to their broadcast session.
// It reports whether the message was consumed.
func (h messageHandler) routeBroadcast(ctx context.Context, m Messenger, msg *models.Message) bool {
	adminID := msg.From.ID
	sess := h.deps.Sessions.Get(adminID)
	log := h.deps.Logger.With("handler", "broadcast_router", "admin_id", adminID, "state", sess.State.String())

	switch sess.State {
	case broadcast.StateAwaitingContent:
		if strings.HasPrefix(msg.Text, "/") {
			return false
		}
		payload, ok := payloadFrom(msg, sess.Kind)
		if !ok || !h.deps.Sessions.Stage(adminID, payload) {
			log.DebugContext(ctx, "Ignoring message that does not match the broadcast kind", "kind", string(sess.Kind))
			return true
		}
		preview := payload.Text
		if payload.Kind != broadcast.KindText {
			preview = payload.Caption
		}
		reply(ctx, m, log, msg.Chat.ID, fmt.Sprintf(h.deps.Config.Messages.BroadcastConfirmFmt, preview))
		return true

	case broadcast.StateAwaitingConfirmation:
		switch strings.ToLower(strings.TrimSpace(msg.Text)) {
		case confirmYes:
			if taken, ok := h.deps.Sessions.Take(adminID); ok {
				h.sendBroadcast(ctx, m, msg.Chat.ID, taken.Payload)
			}
			return true
		case confirmNo:
			h.deps.Sessions.Take(adminID)
			log.InfoContext(ctx, "Broadcast cancelled")
			reply(ctx, m, log, msg.Chat.ID, h.deps.Config.Messages.BroadcastCancelled)
			return true
		}
	}
	return false
}

// sendBroadcast fans the payload out to every known user and reports the counts.
// The fan-out is not cancelled by the update's context.
func (h messageHandler) sendBroadcast(ctx context.Context, m Messenger, chatID int64, p broadcast.Payload) {
	log := h.deps.Logger.With("handler", "broadcast_send")
	msgs := h.deps.Config.Messages
	ctx = context.WithoutCancel(ctx)

	users, err := h.deps.Store.ListUsers(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list broadcast recipients", "error", err)
		reply(ctx, m, log, chatID, msgs.GeneralError)
		return
	}
	recipients := make([]int64, len(users))
	for i, u := range users {
		recipients[i] = u.ID
	}

	reply(ctx, m, log, chatID, msgs.BroadcastSending)
	res := broadcast.Fanout(ctx, deliverer{m}, p, recipients, log)
	h.deps.Metrics.ObserveBroadcast(res.Delivered, res.Failed)

	text := fmt.Sprintf(msgs.BroadcastDoneFmt, res.Delivered, res.Failed)
	if len(res.FailedIDs) > 0 {
		text += msgs.BroadcastFailedIDs + formatFailedIDs(res.FailedIDs)
	}
	reply(ctx, m, log, chatID, text)
}

// payloadFrom extracts content of the given kind from msg.
func payloadFrom(msg *models.Message, kind broadcast.Kind) (broadcast.Payload, bool) {
	switch kind {
	case broadcast.KindText:
		if msg.Text == "" {
			return broadcast.Payload{}, false
		}
		return broadcast.Payload{Kind: kind, Text: msg.Text}, true
	case broadcast.KindPhoto:
		if len(msg.Photo) == 0 {
			return broadcast.Payload{}, false
		}
		// The last size is the largest.
		return broadcast.Payload{Kind: kind, FileID: msg.Photo[len(msg.Photo)-1].FileID, Caption: msg.Caption}, true
	case broadcast.KindVideo:
		if msg.Video == nil {
			return broadcast.Payload{}, false
		}
		return broadcast.Payload{Kind: kind, FileID: msg.Video.FileID, Caption: msg.Caption}, true
	}
	return broadcast.Payload{}, false
}
