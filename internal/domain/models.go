package domain

import (
	"strings"
	"time"
)

// Mode selects the rules an attempt runs under.
type Mode string

const (
	ModeStandard    Mode = "standard"
	ModeCompetition Mode = "competition"
)

// CompetitionCategory is the category recorded for competition attempts.
const CompetitionCategory = "Competition"

// QuestionType distinguishes category-specific questions from general ones.
type QuestionType string

const (
	QuestionTypeDepartmental QuestionType = "DEPT"
	QuestionTypeGeneral      QuestionType = "GEN"
)

// Question models an MCQ question whose correct option is one of Options by exact text.
type Question struct {
	ID            string       `json:"id"`
	Prompt        string       `json:"text"`
	Options       []string     `json:"options"`
	CorrectOption string       `json:"answer"`
	Category      string       `json:"department,omitempty"`
	Type          QuestionType `json:"question_type,omitempty"`
}

// Identity is the participant an attempt belongs to.
type Identity struct {
	DisplayName string `json:"name"`
	Matric      string `json:"matric"`
	Category    string `json:"field"`
}

// NormalizeIdentity trims all fields and upper-cases the matric number.
func NormalizeIdentity(id Identity) Identity {
	return Identity{
		DisplayName: strings.TrimSpace(id.DisplayName),
		Matric:      strings.ToUpper(strings.TrimSpace(id.Matric)),
		Category:    strings.TrimSpace(id.Category),
	}
}

// Tally counts answered questions.
type Tally struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

// ResultRecord is the immutable outcome of one finished attempt.
type ResultRecord struct {
	ID          string    `json:"id"`
	Identity    Identity  `json:"identity"`
	Category    string    `json:"category"`
	Correct     int       `json:"correct"`
	Wrong       int       `json:"wrong"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
	Competition bool      `json:"competition"`
	Expired     bool      `json:"expired"`
	Timestamp   time.Time `json:"timestamp"`
}

// LeaderboardEntry is a ranked view of a ResultRecord.
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"name"`
	Matric     string  `json:"matric"`
	Field      string  `json:"field"`
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Date       string  `json:"date"`
}

// Leaderboard captures the ordered results, optionally filtered to one field.
type Leaderboard struct {
	Field     string             `json:"field,omitempty"`
	Entries   []LeaderboardEntry `json:"leaderboard"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// QuestionRequest asks the supplier for a batch.
// An empty Category mixes departmental questions from every category with general ones.
type QuestionRequest struct {
	Category string
	NumDept  int
	NumGen   int
}
