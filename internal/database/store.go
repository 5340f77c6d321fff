package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/askbot/internal/config"
)

// ErrEmptyKnowledge is returned when a question or answer is blank after trimming.
var ErrEmptyKnowledge = errors.New("question and answer must not be empty")

// Store defines the persistence operations used by the bot.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// TouchUser creates the user on first contact or refreshes username,
	// first name and last-active time on later contacts.
	TouchUser(ctx context.Context, id int64, username, firstName string) error

	// IncrementQuestions adds one to the user's counter (when the user is known)
	// and to the global total, and records the question time.
	IncrementQuestions(ctx context.Context, id int64) error

	// ListUsers returns every user ordered by join date, then id.
	ListUsers(ctx context.Context) ([]User, error)

	// GetStats returns the global counters.
	GetStats(ctx context.Context) (Stats, error)

	// AddKnowledge stores a trimmed question/answer pair, overwriting the answer
	// of an existing question without changing its position.
	AddKnowledge(ctx context.Context, question, answer string) error

	// ListKnowledge returns all entries in stored order.
	ListKnowledge(ctx context.Context) ([]KnowledgeEntry, error)

	Close() error
}

// Maintainer is implemented by stores that support periodic maintenance.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// Open creates the Store selected by cfg.Driver.
func Open(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch cfg.Driver {
	case "", "json":
		return NewJSONStore(cfg.Dir, logger)
	case "sqlite":
		db, err := NewDB(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// LoadSummary reads users and stats from s and summarizes them.
func LoadSummary(ctx context.Context, s Store, now func() time.Time) (Summary, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list users: %w", err)
	}
	stats, err := s.GetStats(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("get stats: %w", err)
	}
	return Summarize(users, stats, now()), nil
}
