package database

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestJSONStore(t *testing.T) (*jsonStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)}
	s, err := newJSONStore(t.TempDir(), discardLogger(), clock.now)
	if err != nil {
		t.Fatalf("newJSONStore() error = %v", err)
	}
	return s, clock
}

func TestJSONStore_TouchUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, clock := newTestJSONStore(t)

	joined := clock.t
	if err := s.TouchUser(ctx, 42, "alice", "Alice"); err != nil {
		t.Fatalf("TouchUser() error = %v", err)
	}
	clock.t = clock.t.Add(time.Hour)
	if err := s.TouchUser(ctx, 42, "alice2", "Alicia"); err != nil {
		t.Fatalf("TouchUser() error = %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	want := []User{{
		ID: 42, Username: "alice2", FirstName: "Alicia",
		JoinDate: joined, LastActive: clock.t,
	}}
	if diff := cmp.Diff(want, users, timeEqual); diff != "" {
		t.Errorf("ListUsers() mismatch (-want +got):\n%s", diff)
	}
}

var timeEqual = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

func TestJSONStore_IncrementQuestions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, clock := newTestJSONStore(t)

	for _, id := range []int64{1, 2} {
		if err := s.TouchUser(ctx, id, "", "u"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.IncrementQuestions(ctx, 1); err != nil {
		t.Fatalf("IncrementQuestions() error = %v", err)
	}
	if err := s.IncrementQuestions(ctx, 1); err != nil {
		t.Fatal(err)
	}
	// Unknown users still count towards the total.
	if err := s.IncrementQuestions(ctx, 99); err != nil {
		t.Fatal(err)
	}

	users, _ := s.ListUsers(ctx)
	got := map[int64]int{}
	for _, u := range users {
		got[u.ID] = u.QuestionsAsked
	}
	if diff := cmp.Diff(map[int64]int{1: 2, 2: 0}, got); diff != "" {
		t.Errorf("per-user counters mismatch (-want +got):\n%s", diff)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalQuestions != 3 || !stats.LastQuestionTime.Equal(clock.t) {
		t.Errorf("GetStats() = %+v", stats)
	}
}

func TestJSONStore_KnowledgeOrderAndOverwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestJSONStore(t)

	adds := [][2]string{
		{"  zebra ", " stripes "},
		{"apple", "fruit"},
		{"mango", "yellow"},
		{"zebra", "black & white <stripes>"},
	}
	for _, a := range adds {
		if err := s.AddKnowledge(ctx, a[0], a[1]); err != nil {
			t.Fatalf("AddKnowledge(%q) error = %v", a[0], err)
		}
	}

	got, err := s.ListKnowledge(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []KnowledgeEntry{
		{"zebra", "black & white <stripes>"},
		{"apple", "fruit"},
		{"mango", "yellow"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListKnowledge() mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, knowledgeFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "black & white <stripes>") {
		t.Errorf("knowledge file has escaped HTML:\n%s", raw)
	}
}

func TestJSONStore_AddKnowledgeRejectsBlank(t *testing.T) {
	t.Parallel()
	s, _ := newTestJSONStore(t)

	if err := s.AddKnowledge(context.Background(), "  ", "x"); err != ErrEmptyKnowledge {
		t.Errorf("AddKnowledge() error = %v, want %v", err, ErrEmptyKnowledge)
	}
}

func TestJSONStore_MissingAndCorruptFilesReadAsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestJSONStore(t)

	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 0 {
		t.Fatalf("ListUsers() on empty dir = %v, %v", users, err)
	}

	for _, name := range []string{usersFile, statsFile, knowledgeFile} {
		if err := os.WriteFile(filepath.Join(s.dir, name), []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if users, _ := s.ListUsers(ctx); len(users) != 0 {
		t.Errorf("ListUsers() on corrupt file = %v", users)
	}
	if stats, _ := s.GetStats(ctx); stats.TotalQuestions != 0 {
		t.Errorf("GetStats() on corrupt file = %+v", stats)
	}
	if entries, _ := s.ListKnowledge(ctx); len(entries) != 0 {
		t.Errorf("ListKnowledge() on corrupt file = %v", entries)
	}

	// The next write starts from empty.
	if err := s.TouchUser(ctx, 7, "u", "U"); err != nil {
		t.Fatal(err)
	}
	if users, _ := s.ListUsers(ctx); len(users) != 1 {
		t.Errorf("ListUsers() after rewrite = %v", users)
	}
}

func TestJSONStore_ReadsLegacyFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestJSONStore(t)

	legacyUsers := `{
  "100": {"username": null, "first_name": "Bob", "join_date": "2024-01-02T03:04:05.123456",
          "questions_asked": 4, "last_active": "2024-04-30T08:00:00"},
  "50": {"username": "ann", "first_name": "Ann", "join_date": "2024-01-02T03:04:05.123456",
         "questions_asked": 1, "last_active": "garbage"}
}`
	if err := os.WriteFile(filepath.Join(s.dir, usersFile), []byte(legacyUsers), 0o600); err != nil {
		t.Fatal(err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	joined := time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.Local)
	want := []User{
		{ID: 50, Username: "ann", FirstName: "Ann", JoinDate: joined, QuestionsAsked: 1},
		{ID: 100, FirstName: "Bob", JoinDate: joined, QuestionsAsked: 4,
			LastActive: time.Date(2024, 4, 30, 8, 0, 0, 0, time.Local)},
	}
	if diff := cmp.Diff(want, users, timeEqual); diff != "" {
		t.Errorf("ListUsers() mismatch (-want +got):\n%s", diff)
	}
}
