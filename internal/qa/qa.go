// Package qa answers user questions, preferring the curated knowledge base
// over the completion service.
package qa

import (
	"context"
	"log/slog"
	"strings"

	"github.com/edgard/askbot/internal/database"
	"github.com/edgard/askbot/internal/metrics"
)

// Answer sources.
const (
	SourceKnowledge  = "knowledge"
	SourceCompletion = "completion"
)

// Lookup returns the answer of the first entry, in stored order, whose
// lowercased question occurs in the lowercased query.
func Lookup(entries []database.KnowledgeEntry, query string) (string, bool) {
	q := strings.ToLower(query)
	for _, e := range entries {
		if strings.Contains(q, strings.ToLower(e.Question)) {
			return e.Answer, true
		}
	}
	return "", false
}

// KnowledgeSource lists the knowledge base.
type KnowledgeSource interface {
	ListKnowledge(ctx context.Context) ([]database.KnowledgeEntry, error)
}

// Completer produces a fallback answer. It must not fail.
type Completer interface {
	Complete(ctx context.Context, query string) string
}

// Answer is the reply to a question and where it came from.
type Answer struct {
	Text   string
	Source string
}

// Service answers questions.
type Service struct {
	knowledge KnowledgeSource
	completer Completer
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewService creates a Service.
func NewService(knowledge KnowledgeSource, completer Completer, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		knowledge: knowledge,
		completer: completer,
		metrics:   m,
		log:       log.With("component", "qa"),
	}
}

// Answer runs the knowledge lookup and only falls back to the completer on a miss.
func (s *Service) Answer(ctx context.Context, query string) Answer {
	entries, err := s.knowledge.ListKnowledge(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load knowledge base, continuing without it", "error", err)
		entries = nil
	}

	if text, ok := Lookup(entries, query); ok {
		s.metrics.ObserveQuestion(SourceKnowledge)
		s.log.DebugContext(ctx, "Answered from knowledge base")
		return Answer{Text: text, Source: SourceKnowledge}
	}

	text := s.completer.Complete(ctx, query)
	s.metrics.ObserveQuestion(SourceCompletion)
	return Answer{Text: text, Source: SourceCompletion}
}
