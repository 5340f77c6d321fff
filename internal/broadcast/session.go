// Package broadcast implements the administrator broadcast workflow: choose a
// kind, stage content, confirm, then fan the content out to every user.
package broadcast

import (
	"errors"
	"strings"
	"sync"
)

// Kind is the content type of a broadcast.
type Kind string

const (
	KindText  Kind = "text"
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// ErrUnknownKind is returned by ParseKind for anything but text, photo or video.
var ErrUnknownKind = errors.New("unknown broadcast kind")

// ParseKind parses a /broadcast argument case-insensitively.
func ParseKind(arg string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(arg))); k {
	case KindText, KindPhoto, KindVideo:
		return k, nil
	default:
		return "", ErrUnknownKind
	}
}

// State is a session's position in the workflow.
type State int

const (
	StateIdle State = iota
	StateAwaitingContent
	StateAwaitingConfirmation
)

func (s State) String() string {
	switch s {
	case StateAwaitingContent:
		return "awaiting_content"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "idle"
	}
}

// Payload is the staged content. FileID is set for photo and video, Text for text.
type Payload struct {
	Kind    Kind
	Text    string
	FileID  string
	Caption string
}

// Session is one administrator's unfinished broadcast.
type Session struct {
	Kind    Kind
	State   State
	Payload Payload
}

// Sessions holds in-memory sessions keyed by administrator id.
type Sessions struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewSessions returns an empty session table.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]Session)}
}

// Start begins a session awaiting content, replacing any unfinished one.
func (s *Sessions) Start(adminID int64, kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[adminID] = Session{Kind: kind, State: StateAwaitingContent}
}

// Get returns a copy of the administrator's session. Without one, the state is StateIdle.
func (s *Sessions) Get(adminID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[adminID]
}

// Stage stores p and moves the session to StateAwaitingConfirmation. It
// reports false and changes nothing unless the session awaits content of p's kind.
func (s *Sessions) Stage(adminID int64, p Payload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[adminID]
	if !ok || sess.State != StateAwaitingContent || sess.Kind != p.Kind {
		return false
	}
	sess.Payload = p
	sess.State = StateAwaitingConfirmation
	s.sessions[adminID] = sess
	return true
}

// Take removes and returns a session awaiting confirmation.
func (s *Sessions) Take(adminID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[adminID]
	if !ok || sess.State != StateAwaitingConfirmation {
		return Session{}, false
	}
	delete(s.sessions, adminID)
	return sess, true
}
