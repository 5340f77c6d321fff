// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/askbot/internal/bot"
	"github.com/edgard/askbot/internal/bot/handlers"
	"github.com/edgard/askbot/internal/bot/tasks"
	"github.com/edgard/askbot/internal/broadcast"
	"github.com/edgard/askbot/internal/completion"
	"github.com/edgard/askbot/internal/config"
	"github.com/edgard/askbot/internal/database"
	"github.com/edgard/askbot/internal/logger"
	"github.com/edgard/askbot/internal/metrics"
	"github.com/edgard/askbot/internal/qa"
	"github.com/edgard/askbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires all components, blocks until shutdown and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to optional configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, problem := range verr.Problems {
				slog.Error("Configuration problem", "problem", problem)
			}
			slog.Error("Configuration is incomplete, refusing to start")
			return 1
		}
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	store, err := database.Open(cfg.Storage, log)
	if err != nil {
		log.Error("Failed to open store", "driver", cfg.Storage.Driver, "error", err)
		return 1
	}

	m := metrics.New()

	completer, err := completion.NewClient(ctx, cfg.Completion, cfg.Messages, m, log)
	if err != nil {
		log.Error("Failed to initialize completion client", "error", err)
		_ = store.Close()
		return 1
	}

	pending := &handlers.Pending{}
	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Answerer: qa.NewService(store, completer, m, log),
		Sessions: broadcast.NewSessions(),
		Metrics:  m,
		Pending:  pending,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log), handlers.TrackUser(hDeps)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		_ = store.Close()
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		_ = store.Close()
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		_ = store.Close()
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Notifier: tg,
		Config:   cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		_ = store.Close()
		return 1
	}

	app := bot.NewBot(log, cfg, store, tg, sched, m, pending)

	log.Info("Starting bot...")
	if runErr := app.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
