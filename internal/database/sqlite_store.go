package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type userRow struct {
	ID             int64  `db:"id"`
	Username       string `db:"username"`
	FirstName      string `db:"first_name"`
	JoinDate       string `db:"join_date"`
	QuestionsAsked int    `db:"questions_asked"`
	LastActive     string `db:"last_active"`
}

type statsRow struct {
	TotalQuestions   int    `db:"total_questions"`
	LastQuestionTime string `db:"last_question_time"`
}

type knowledgeRow struct {
	Question string `db:"question"`
	Answer   string `db:"answer"`
}

// sqlxStore implements Store on SQLite through sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLStore creates a Store backed by a connected, migrated sqlx.DB.
func NewSQLStore(db *sqlx.DB, logger *slog.Logger) Store {
	return newSQLStore(db, logger, time.Now)
}

func newSQLStore(db *sqlx.DB, logger *slog.Logger, now func() time.Time) *sqlxStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "sql_store"),
		now:    now,
	}
}

func (s *sqlxStore) TouchUser(ctx context.Context, id int64, username, firstName string) error {
	now := FormatTimestamp(s.now())
	query := `
        INSERT INTO users (id, username, first_name, join_date, questions_asked, last_active)
        VALUES (?, ?, ?, ?, 0, ?)
        ON CONFLICT(id) DO UPDATE SET
            username = excluded.username,
            first_name = excluded.first_name,
            last_active = excluded.last_active;
    `
	if _, err := s.db.ExecContext(ctx, query, id, username, firstName, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error touching user", "user_id", id, "error", err)
		return fmt.Errorf("failed to touch user %d: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) IncrementQuestions(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET questions_asked = questions_asked + 1 WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("failed to increment user %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE stats SET total_questions = total_questions + 1, last_question_time = ? WHERE id = 1;`,
		FormatTimestamp(s.now())); err != nil {
		return fmt.Errorf("failed to increment total questions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil
	return nil
}

func (s *sqlxStore) ListUsers(ctx context.Context) ([]User, error) {
	var rows []userRow
	query := `SELECT id, username, first_name, join_date, questions_asked, last_active FROM users;`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]User, 0, len(rows))
	for _, r := range rows {
		joined, _ := ParseTimestamp(r.JoinDate)
		active, _ := ParseTimestamp(r.LastActive)
		users = append(users, User{
			ID:             r.ID,
			Username:       r.Username,
			FirstName:      r.FirstName,
			JoinDate:       joined,
			QuestionsAsked: r.QuestionsAsked,
			LastActive:     active,
		})
	}
	sortUsers(users)
	return users, nil
}

func (s *sqlxStore) GetStats(ctx context.Context) (Stats, error) {
	var row statsRow
	err := s.db.GetContext(ctx, &row, `SELECT total_questions, last_question_time FROM stats WHERE id = 1;`)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	last, _ := ParseTimestamp(row.LastQuestionTime)
	return Stats{TotalQuestions: row.TotalQuestions, LastQuestionTime: last}, nil
}

func (s *sqlxStore) AddKnowledge(ctx context.Context, question, answer string) error {
	question, answer = strings.TrimSpace(question), strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return ErrEmptyKnowledge
	}

	// Upsert keeps the row id, so the entry keeps its position.
	query := `
        INSERT INTO knowledge (question, answer) VALUES (:question, :answer)
        ON CONFLICT(question) DO UPDATE SET answer = excluded.answer;
    `
	if _, err := s.db.NamedExecContext(ctx, query, knowledgeRow{Question: question, Answer: answer}); err != nil {
		s.logger.ErrorContext(ctx, "Error saving knowledge entry", "error", err)
		return fmt.Errorf("failed to save knowledge entry: %w", err)
	}
	return nil
}

func (s *sqlxStore) ListKnowledge(ctx context.Context) ([]KnowledgeEntry, error) {
	var rows []knowledgeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT question, answer FROM knowledge ORDER BY id ASC;`); err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	entries := make([]KnowledgeEntry, len(rows))
	for i, r := range rows {
		entries[i] = KnowledgeEntry(r)
	}
	return entries, nil
}

func (s *sqlxStore) Close() error {
	CloseDB(s.db)
	return nil
}

// RunSQLMaintenance executes VACUUM on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")

	// VACUUM must run outside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	}
	return nil
}
