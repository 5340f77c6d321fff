package broadcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg     string
		want    Kind
		wantErr bool
	}{
		{"text", KindText, false},
		{"PHOTO", KindPhoto, false},
		{" Video ", KindVideo, false},
		{"audio", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.arg)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) = %q, %v; want %q, err %v", tt.arg, got, err, tt.want, tt.wantErr)
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownKind) {
			t.Errorf("ParseKind(%q) error = %v, want ErrUnknownKind", tt.arg, err)
		}
	}
}

func TestSessions_Workflow(t *testing.T) {
	t.Parallel()
	s := NewSessions()
	const admin = 1

	if got := s.Get(admin).State; got != StateIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}
	if s.Stage(admin, Payload{Kind: KindText, Text: "hi"}) {
		t.Fatal("Stage() without a session succeeded")
	}

	s.Start(admin, KindPhoto)
	if s.Stage(admin, Payload{Kind: KindText, Text: "hi"}) {
		t.Fatal("Stage() with mismatched kind succeeded")
	}
	if got := s.Get(admin); got.State != StateAwaitingContent || got.Payload != (Payload{}) {
		t.Fatalf("mismatched Stage() changed the session: %+v", got)
	}
	if _, ok := s.Take(admin); ok {
		t.Fatal("Take() before staging succeeded")
	}

	p := Payload{Kind: KindPhoto, FileID: "file-1", Caption: "look"}
	if !s.Stage(admin, p) {
		t.Fatal("Stage() with matching kind failed")
	}
	if s.Stage(admin, p) {
		t.Fatal("second Stage() succeeded")
	}

	sess, ok := s.Take(admin)
	if !ok || sess.Payload != p || sess.State != StateAwaitingConfirmation {
		t.Fatalf("Take() = %+v, %v", sess, ok)
	}
	if got := s.Get(admin).State; got != StateIdle {
		t.Errorf("state after Take() = %v, want idle", got)
	}
}

func TestSessions_StartOverwrites(t *testing.T) {
	t.Parallel()
	s := NewSessions()

	s.Start(1, KindText)
	s.Stage(1, Payload{Kind: KindText, Text: "draft"})
	s.Start(1, KindVideo)

	if got := s.Get(1); got.Kind != KindVideo || got.State != StateAwaitingContent || got.Payload != (Payload{}) {
		t.Errorf("Get() after restart = %+v", got)
	}
	if got := s.Get(2).State; got != StateIdle {
		t.Errorf("other admin state = %v, want idle", got)
	}
}

type call struct {
	Kind    Kind
	ChatID  int64
	Text    string
	FileID  string
	Caption string
}

type recordingSender struct {
	mu    sync.Mutex
	calls []call
	fail  map[int64]bool
}

func (r *recordingSender) record(c call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if r.fail[c.ChatID] {
		return errors.New("blocked by user")
	}
	return nil
}

func (r *recordingSender) SendText(_ context.Context, chatID int64, text string) error {
	return r.record(call{Kind: KindText, ChatID: chatID, Text: text})
}

func (r *recordingSender) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	return r.record(call{Kind: KindPhoto, ChatID: chatID, FileID: fileID, Caption: caption})
}

func (r *recordingSender) SendVideo(_ context.Context, chatID int64, fileID, caption string) error {
	return r.record(call{Kind: KindVideo, ChatID: chatID, FileID: fileID, Caption: caption})
}

func TestFanout(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sender := &recordingSender{fail: map[int64]bool{2: true}}
	p := Payload{Kind: KindVideo, FileID: "vid", Caption: "new lesson"}

	res := Fanout(context.Background(), sender, p, []int64{1, 2, 3}, log)

	want := Result{Delivered: 2, Failed: 1, FailedIDs: []int64{2}}
	if diff := cmp.Diff(want, res, cmpopts.IgnoreFields(Result{}, "ID")); diff != "" {
		t.Errorf("Fanout() mismatch (-want +got):\n%s", diff)
	}
	if res.ID == "" {
		t.Error("Fanout() result has no id")
	}

	wantCalls := []call{
		{Kind: KindVideo, ChatID: 1, FileID: "vid", Caption: "new lesson"},
		{Kind: KindVideo, ChatID: 2, FileID: "vid", Caption: "new lesson"},
		{Kind: KindVideo, ChatID: 3, FileID: "vid", Caption: "new lesson"},
	}
	if diff := cmp.Diff(wantCalls, sender.calls); diff != "" {
		t.Errorf("sends mismatch (-want +got):\n%s", diff)
	}
}

func TestFanout_CapsReportedFailures(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	recipients := make([]int64, 30)
	fail := map[int64]bool{}
	for i := range recipients {
		recipients[i] = int64(i + 1)
		fail[int64(i+1)] = true
	}

	res := Fanout(context.Background(), &recordingSender{fail: fail}, Payload{Kind: KindText, Text: "x"}, recipients, log)
	if res.Failed != 30 || res.Delivered != 0 || len(res.FailedIDs) != MaxReportedFailures {
		t.Errorf("Fanout() = failed %d, delivered %d, %d ids", res.Failed, res.Delivered, len(res.FailedIDs))
	}
}

func TestFanout_NoRecipients(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	res := Fanout(context.Background(), &recordingSender{}, Payload{Kind: KindText, Text: "x"}, nil, log)
	if res.Delivered != 0 || res.Failed != 0 {
		t.Errorf("Fanout() = %+v", res)
	}
}
