package database

import "time"

// User is a person who has interacted with the bot at least once.
type User struct {
	ID             int64
	Username       string
	FirstName      string
	JoinDate       time.Time
	QuestionsAsked int
	LastActive     time.Time
}

// Stats holds the global question counters.
type Stats struct {
	TotalQuestions   int
	LastQuestionTime time.Time
}

// KnowledgeEntry is one curated question/answer pair.
type KnowledgeEntry struct {
	Question string
	Answer   string
}

// Summary is derived from users and stats on demand and never stored.
type Summary struct {
	TotalUsers     int
	TotalQuestions int
	ActiveToday    int
}
