package database

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// qaPairs maps questions to answers in insertion order. Setting an existing
// question keeps its position.
type qaPairs = orderedmap.OrderedMap[string, string]

type knowledgeDocument struct {
	QAPairs *qaPairs `json:"qa_pairs"`
}

func newPairs() *qaPairs {
	return orderedmap.New[string, string](orderedmap.WithDisableHTMLEscape[string, string]())
}

// decodeKnowledge reads a {"qa_pairs": {question: answer}} document. Other
// top-level keys are ignored. The result is never nil.
func decodeKnowledge(data []byte) (*qaPairs, error) {
	doc := knowledgeDocument{QAPairs: newPairs()}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc.QAPairs, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.QAPairs == nil {
		return newPairs(), nil
	}
	return doc.QAPairs, nil
}

// encodeKnowledge writes pairs as {"qa_pairs": {...}}, two-space indented and
// without HTML escaping.
func encodeKnowledge(pairs *qaPairs) ([]byte, error) {
	if pairs == nil {
		pairs = newPairs()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(knowledgeDocument{QAPairs: pairs}); err != nil {
		return nil, fmt.Errorf("encode knowledge: %w", err)
	}
	return buf.Bytes(), nil
}

func entriesOf(pairs *qaPairs) []KnowledgeEntry {
	if pairs == nil || pairs.Len() == 0 {
		return nil
	}
	entries := make([]KnowledgeEntry, 0, pairs.Len())
	for p := pairs.Oldest(); p != nil; p = p.Next() {
		entries = append(entries, KnowledgeEntry{Question: p.Key, Answer: p.Value})
	}
	return entries
}
