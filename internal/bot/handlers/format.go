package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgard/askbot/internal/config"
	"github.com/edgard/askbot/internal/database"
)

const (
	maxListedUsers     = 20
	knowledgeTextLimit = 3500
)

// commandArgs returns the words after the command, joined by single spaces.
func commandArgs(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

// parseKnowledgeArgs splits "question - answer" on the first " - ".
// Both sides must be non-empty after trimming.
func parseKnowledgeArgs(args string) (question, answer string, ok bool) {
	question, answer, found := strings.Cut(args, " - ")
	if !found {
		return "", "", false
	}
	question, answer = strings.TrimSpace(question), strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return "", "", false
	}
	return question, answer, true
}

func formatSummary(msgs config.MessagesConfig, s database.Summary) string {
	return fmt.Sprintf(msgs.StatsFmt, s.TotalUsers, s.TotalQuestions, s.ActiveToday)
}

func formatUsers(msgs config.MessagesConfig, users []database.User) string {
	if len(users) > maxListedUsers {
		users = users[:maxListedUsers]
	}

	var sb strings.Builder
	sb.WriteString(msgs.UsersHeader)
	for i, u := range users {
		fmt.Fprintf(&sb, msgs.UserEntryFmt, i+1, u.ID, orDash(u.FirstName), orDash(u.Username), u.QuestionsAsked)
	}
	return sb.String()
}

// formatKnowledge numbers the entries and stops once the text passes
// knowledgeTextLimit characters, appending the trimmed marker.
func formatKnowledge(msgs config.MessagesConfig, entries []database.KnowledgeEntry) string {
	var sb strings.Builder
	sb.WriteString(msgs.KnowledgeHeader)
	length := len([]rune(msgs.KnowledgeHeader))

	for i, e := range entries {
		item := fmt.Sprintf(msgs.KnowledgeItemFmt, i+1, e.Question, e.Answer)
		sb.WriteString(item)
		length += len([]rune(item))
		if length > knowledgeTextLimit {
			if i < len(entries)-1 {
				sb.WriteString(msgs.KnowledgeTrimmed)
			}
			break
		}
	}
	return sb.String()
}

func formatFailedIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
