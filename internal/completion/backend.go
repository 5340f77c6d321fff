package completion

import (
	"fmt"
)

// Prompt is one completion request.
type Prompt struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float32
}

// StatusError reports a non-success status from the completion service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion service returned status %d", e.Code)
	}
	return fmt.Sprintf("completion service returned status %d: %s", e.Code, e.Body)
}
