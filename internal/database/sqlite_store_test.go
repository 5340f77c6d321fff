package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestSQLStore(t *testing.T) (*sqlxStore, *fakeClock) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := newSQLStore(db, discardLogger(), clock.now)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestSQLStore_UsersAndStats(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestSQLStore(t)

	first := clock.t
	if err := s.TouchUser(ctx, 2, "bob", "Bob"); err != nil {
		t.Fatalf("TouchUser() error = %v", err)
	}
	clock.t = clock.t.Add(time.Minute)
	if err := s.TouchUser(ctx, 1, "ann", "Ann"); err != nil {
		t.Fatal(err)
	}
	if err := s.TouchUser(ctx, 2, "bobby", "Bob"); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementQuestions(ctx, 2); err != nil {
		t.Fatalf("IncrementQuestions() error = %v", err)
	}
	if err := s.IncrementQuestions(ctx, 404); err != nil {
		t.Fatal(err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []User{
		{ID: 2, Username: "bobby", FirstName: "Bob", JoinDate: first, QuestionsAsked: 1, LastActive: clock.t},
		{ID: 1, Username: "ann", FirstName: "Ann", JoinDate: clock.t, LastActive: clock.t},
	}
	if diff := cmp.Diff(want, users, timeEqual); diff != "" {
		t.Errorf("ListUsers() mismatch (-want +got):\n%s", diff)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalQuestions != 2 || !stats.LastQuestionTime.Equal(clock.t) {
		t.Errorf("GetStats() = %+v", stats)
	}
}

func TestSQLStore_Knowledge(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSQLStore(t)

	for _, a := range [][2]string{{"b", "1"}, {"a", "2"}, {" b ", " 3 "}} {
		if err := s.AddKnowledge(ctx, a[0], a[1]); err != nil {
			t.Fatalf("AddKnowledge() error = %v", err)
		}
	}
	if err := s.AddKnowledge(ctx, "q", ""); err != ErrEmptyKnowledge {
		t.Errorf("AddKnowledge(blank answer) error = %v", err)
	}

	got, err := s.ListKnowledge(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]KnowledgeEntry{{"b", "3"}, {"a", "2"}}, got); diff != "" {
		t.Errorf("ListKnowledge() mismatch (-want +got):\n%s", diff)
	}

	if err := s.RunSQLMaintenance(ctx); err != nil {
		t.Errorf("RunSQLMaintenance() error = %v", err)
	}
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"data/bot.db":                  "data/bot.db",
		"file:data/bot.db?_pragma=foo": "data/bot.db",
		"file:my%20db.sqlite":          "my db.sqlite",
	}
	for in, want := range tests {
		if got := ExtractDBNameFromPath(in); got != want {
			t.Errorf("ExtractDBNameFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}
