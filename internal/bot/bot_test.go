package bot

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/askbot/internal/bot/handlers"
	"github.com/edgard/askbot/internal/bot/tasks"
	"github.com/edgard/askbot/internal/config"
	"github.com/edgard/askbot/internal/database"
)

type blockingPoller struct{}

func (blockingPoller) Start(ctx context.Context) { <-ctx.Done() }

type closeCountingStore struct {
	database.Store
	closed atomic.Int32
}

func (s *closeCountingStore) Close() error {
	s.closed.Add(1)
	return nil
}

func TestRun_WaitsForPendingAnswersAndClosesStore(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sched, err := NewScheduler(log, &config.SchedulerConfig{
		Tasks: map[string]config.TaskConfig{
			"noop":     {Enabled: true, Schedule: "0 0 3 * * *"},
			"disabled": {Enabled: false, Schedule: "0 0 3 * * *"},
		},
	}, map[string]tasks.ScheduledTaskFunc{
		"noop": func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}

	store := &closeCountingStore{}
	pending := &handlers.Pending{}
	var answered atomic.Bool
	pending.Go(func() {
		time.Sleep(50 * time.Millisecond)
		answered.Store(true)
	})

	ctx, cancel := context.WithCancel(context.Background())
	b := newBot(log, &config.Config{}, store, blockingPoller{}, sched, nil, pending)

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if !answered.Load() {
		t.Error("Run() returned before pending answers finished")
	}
	if store.closed.Load() != 1 {
		t.Errorf("store closed %d times, want 1", store.closed.Load())
	}
}

type stoppingPoller struct{}

func (stoppingPoller) Start(context.Context) {}

func TestRun_UnexpectedListenerStop(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sched, err := NewScheduler(log, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	b := newBot(log, &config.Config{}, &closeCountingStore{}, stoppingPoller{}, sched, nil, &handlers.Pending{})

	if err := b.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, want error when the listener stops on its own")
	}
}
