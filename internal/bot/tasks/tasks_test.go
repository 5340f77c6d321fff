package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/askbot/internal/config"
	"github.com/edgard/askbot/internal/database"
)

type fakeNotifier struct {
	sent []*bot.SendMessageParams
	err  error
}

func (f *fakeNotifier) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, p)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: len(f.sent)}, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{AdminUserID: 42},
		Messages: config.MessagesConfig{
			DailyReportHeader: "report\n",
			StatsFmt:          "%d/%d/%d",
		},
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	tasks := RegisterAllTasks(TaskDeps{Logger: discard()})
	for _, name := range []string{"sql_maintenance", "daily_report"} {
		if tasks[name] == nil {
			t.Errorf("task %q not registered", name)
		}
	}
}

func TestDailyReportTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := database.NewJSONStore(t.TempDir(), discard())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.TouchUser(ctx, 1, "a", "A")
	_ = store.TouchUser(ctx, 2, "b", "B")
	_ = store.IncrementQuestions(ctx, 1)

	n := &fakeNotifier{}
	task := newDailyReportTask(TaskDeps{Logger: discard(), Store: store, Notifier: n, Config: testConfig(), Now: time.Now})
	if err := task(ctx); err != nil {
		t.Fatalf("daily report error = %v", err)
	}

	if len(n.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(n.sent))
	}
	if got := n.sent[0]; got.ChatID != int64(42) || got.Text != "report\n2/1/2" {
		t.Errorf("sent %+v", got)
	}

	n.err = errors.New("chat not found")
	if err := task(ctx); err == nil {
		t.Error("daily report error = nil on send failure")
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	jsonStore, err := database.NewJSONStore(t.TempDir(), discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := newSQLMaintenanceTask(TaskDeps{Logger: discard(), Store: jsonStore})(ctx); err != nil {
		t.Errorf("maintenance on JSON store error = %v", err)
	}

	sqlStore, err := database.Open(config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "bot.db")}, discard())
	if err != nil {
		t.Fatal(err)
	}
	defer sqlStore.Close()
	if err := newSQLMaintenanceTask(TaskDeps{Logger: discard(), Store: sqlStore})(ctx); err != nil {
		t.Errorf("maintenance on SQLite store error = %v", err)
	}
}
