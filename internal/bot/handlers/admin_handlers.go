package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/askbot/internal/database"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h statsHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")
	chatID := update.Message.Chat.ID

	summary, err := database.LoadSummary(ctx, h.deps.Store, h.deps.now)
	if err != nil {
		log.ErrorContext(ctx, "Failed to compute statistics", "error", err)
		reply(ctx, m, log, chatID, h.deps.Config.Messages.GeneralError)
		return
	}
	reply(ctx, m, log, chatID, formatSummary(h.deps.Config.Messages, summary))
}

// NewUsersHandler returns a handler for the /users command.
func NewUsersHandler(deps HandlerDeps) bot.HandlerFunc {
	return usersHandler{deps}.Handle
}

type usersHandler struct {
	deps HandlerDeps
}

func (h usersHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h usersHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "users")
	chatID := update.Message.Chat.ID

	users, err := h.deps.Store.ListUsers(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list users", "error", err)
		reply(ctx, m, log, chatID, h.deps.Config.Messages.GeneralError)
		return
	}
	if len(users) == 0 {
		reply(ctx, m, log, chatID, h.deps.Config.Messages.NoUsers)
		return
	}
	reply(ctx, m, log, chatID, formatUsers(h.deps.Config.Messages, users))
}

// NewAddInfoHandler returns a handler for the /add_info command.
func NewAddInfoHandler(deps HandlerDeps) bot.HandlerFunc {
	return addInfoHandler{deps}.Handle
}

type addInfoHandler struct {
	deps HandlerDeps
}

func (h addInfoHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h addInfoHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "add_info")
	chatID := update.Message.Chat.ID
	msgs := h.deps.Config.Messages

	args := commandArgs(update.Message.Text)
	if args == "" {
		reply(ctx, m, log, chatID, msgs.AddInfoUsage)
		return
	}
	question, answer, ok := parseKnowledgeArgs(args)
	if !ok {
		reply(ctx, m, log, chatID, msgs.AddInfoBadFormat)
		return
	}

	err := h.deps.Store.AddKnowledge(ctx, question, answer)
	switch {
	case errors.Is(err, database.ErrEmptyKnowledge):
		reply(ctx, m, log, chatID, msgs.AddInfoBadFormat)
	case err != nil:
		log.ErrorContext(ctx, "Failed to save knowledge entry", "error", err)
		reply(ctx, m, log, chatID, msgs.GeneralError)
	default:
		log.InfoContext(ctx, "Knowledge entry saved", "question", question)
		reply(ctx, m, log, chatID, msgs.AddInfoSaved)
	}
}

// NewViewKnowledgeHandler returns a handler for the /view_knowledge command.
func NewViewKnowledgeHandler(deps HandlerDeps) bot.HandlerFunc {
	return viewKnowledgeHandler{deps}.Handle
}

type viewKnowledgeHandler struct {
	deps HandlerDeps
}

func (h viewKnowledgeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h viewKnowledgeHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "view_knowledge")
	chatID := update.Message.Chat.ID

	entries, err := h.deps.Store.ListKnowledge(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load knowledge base", "error", err)
		reply(ctx, m, log, chatID, h.deps.Config.Messages.GeneralError)
		return
	}
	if len(entries) == 0 {
		reply(ctx, m, log, chatID, h.deps.Config.Messages.KnowledgeEmpty)
		return
	}
	reply(ctx, m, log, chatID, formatKnowledge(h.deps.Config.Messages, entries))
}
