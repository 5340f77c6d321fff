package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	usersFile     = "users.json"
	statsFile     = "stats.json"
	knowledgeFile = "knowledge_base.json"
)

type userRecord struct {
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	JoinDate       Timestamp `json:"join_date"`
	QuestionsAsked int       `json:"questions_asked"`
	LastActive     Timestamp `json:"last_active"`
}

type statsRecord struct {
	TotalQuestions   int       `json:"total_questions"`
	LastQuestionTime Timestamp `json:"last_question_time"`
}

// jsonStore keeps users, stats and the knowledge base in three JSON files.
// Every read-modify-write of a file holds that file's mutex.
type jsonStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	usersMu     sync.Mutex
	statsMu     sync.Mutex
	knowledgeMu sync.Mutex
}

// NewJSONStore creates dir if needed and returns a Store backed by files in it.
func NewJSONStore(dir string, logger *slog.Logger) (Store, error) {
	s, err := newJSONStore(dir, logger, time.Now)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newJSONStore(dir string, logger *slog.Logger, now func() time.Time) (*jsonStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", dir, err)
	}
	return &jsonStore{
		dir:    dir,
		logger: logger.With("component", "json_store"),
		now:    now,
	}, nil
}

func (s *jsonStore) TouchUser(ctx context.Context, id int64, username, firstName string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users := s.loadUsers(ctx)
	now := s.now()
	key := strconv.FormatInt(id, 10)

	rec, ok := users[key]
	if !ok {
		rec = userRecord{JoinDate: Timestamp{now}}
		s.logger.InfoContext(ctx, "New user registered", "user_id", id)
	}
	rec.Username = username
	rec.FirstName = firstName
	rec.LastActive = Timestamp{now}
	users[key] = rec

	return s.writeJSON(usersFile, users)
}

func (s *jsonStore) IncrementQuestions(ctx context.Context, id int64) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	users := s.loadUsers(ctx)
	key := strconv.FormatInt(id, 10)
	if rec, ok := users[key]; ok {
		rec.QuestionsAsked++
		users[key] = rec
		if err := s.writeJSON(usersFile, users); err != nil {
			return err
		}
	}

	stats := s.loadStats(ctx)
	stats.TotalQuestions++
	stats.LastQuestionTime = Timestamp{s.now()}
	return s.writeJSON(statsFile, stats)
}

func (s *jsonStore) ListUsers(ctx context.Context) ([]User, error) {
	s.usersMu.Lock()
	users := s.loadUsers(ctx)
	s.usersMu.Unlock()

	out := make([]User, 0, len(users))
	for key, rec := range users {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping user with non-numeric id", "key", key)
			continue
		}
		out = append(out, User{
			ID:             id,
			Username:       rec.Username,
			FirstName:      rec.FirstName,
			JoinDate:       rec.JoinDate.Time,
			QuestionsAsked: rec.QuestionsAsked,
			LastActive:     rec.LastActive.Time,
		})
	}
	sortUsers(out)
	return out, nil
}

func (s *jsonStore) GetStats(ctx context.Context) (Stats, error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	rec := s.loadStats(ctx)
	return Stats{TotalQuestions: rec.TotalQuestions, LastQuestionTime: rec.LastQuestionTime.Time}, nil
}

func (s *jsonStore) AddKnowledge(ctx context.Context, question, answer string) error {
	question, answer = strings.TrimSpace(question), strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return ErrEmptyKnowledge
	}

	s.knowledgeMu.Lock()
	defer s.knowledgeMu.Unlock()

	pairs := s.loadKnowledge(ctx)
	pairs.Set(question, answer)
	data, err := encodeKnowledge(pairs)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	return s.writeFile(knowledgeFile, data)
}

func (s *jsonStore) ListKnowledge(ctx context.Context) ([]KnowledgeEntry, error) {
	s.knowledgeMu.Lock()
	defer s.knowledgeMu.Unlock()
	return entriesOf(s.loadKnowledge(ctx)), nil
}

func (s *jsonStore) Close() error { return nil }

func (s *jsonStore) loadUsers(ctx context.Context) map[string]userRecord {
	users := map[string]userRecord{}
	s.readJSON(ctx, usersFile, &users)
	if users == nil {
		users = map[string]userRecord{}
	}
	return users
}

func (s *jsonStore) loadStats(ctx context.Context) statsRecord {
	var stats statsRecord
	s.readJSON(ctx, statsFile, &stats)
	return stats
}

func (s *jsonStore) loadKnowledge(ctx context.Context) *qaPairs {
	data, ok := s.readFile(ctx, knowledgeFile)
	if !ok {
		return newPairs()
	}
	pairs, err := decodeKnowledge(data)
	if err != nil {
		s.logger.WarnContext(ctx, "Knowledge base file is corrupt, treating as empty", "error", err)
		return newPairs()
	}
	return pairs
}

// readJSON decodes name into v. A missing or corrupt file leaves v at its zero value.
func (s *jsonStore) readJSON(ctx context.Context, name string, v any) {
	data, ok := s.readFile(ctx, name)
	if !ok {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.WarnContext(ctx, "Data file is corrupt, treating as empty", "file", name, "error", err)
		// Unmarshal may have partially filled v.
		switch p := v.(type) {
		case *map[string]userRecord:
			*p = map[string]userRecord{}
		case *statsRecord:
			*p = statsRecord{}
		}
	}
}

func (s *jsonStore) readFile(ctx context.Context, name string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "Failed to read data file, treating as empty", "file", name, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (s *jsonStore) writeJSON(name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.writeFile(name, buf.Bytes())
}

// writeFile replaces name atomically via a temp file in the same directory.
func (s *jsonStore) writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	tmpName = ""
	return nil
}

func sortUsers(users []User) {
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].JoinDate.Equal(users[j].JoinDate) {
			return users[i].JoinDate.Before(users[j].JoinDate)
		}
		return users[i].ID < users[j].ID
	})
}
