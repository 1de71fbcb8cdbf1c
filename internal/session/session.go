// Package session orchestrates a single quiz attempt: question
// selection, answer recording, heart loss, termination, and the final
// merge into learning progress.
package session

import (
	"errors"
	"time"

	"github.com/abhisek/palate/internal/store"
)

// MaxQuestions is the number of questions selected per session.
const MaxQuestions = 10

// Levels supported by the progression. Scores of UnlockScore or better
// unlock the next level, up to MaxLevel.
const (
	MinLevel    = 1
	MaxLevel    = 20
	UnlockScore = 80
)

// State is the session lifecycle phase.
type State string

const (
	StateCreated    State = "created"
	StateInProgress State = "in-progress"
	StateCompleted  State = "completed"
	StateAbandoned  State = "abandoned"
)

var (
	// ErrInvalidLevel means the level is outside the supported range.
	ErrInvalidLevel = errors.New("session: invalid level")
	// ErrLevelLocked means the prerequisite score has not been met.
	ErrLevelLocked = errors.New("session: level locked")
	// ErrNoQuestions means the bank has no questions for the level.
	ErrNoQuestions = errors.New("session: no questions for level")
	// ErrSessionClosed means the session already terminated.
	ErrSessionClosed = errors.New("session: session closed")
	// ErrUnknownQuestion means the question is not part of this session.
	ErrUnknownQuestion = errors.New("session: question not in session")
	// ErrAlreadyAnswered means the question was answered earlier in
	// this session.
	ErrAlreadyAnswered = errors.New("session: question already answered")
)

// Answer is the immutable record of one answered question.
type Answer struct {
	QuestionID  string    `json:"question_id"`
	OptionIndex int       `json:"option_index"`
	Correct     bool      `json:"correct"`
	TimeSpentMs int       `json:"time_spent_ms"`
	AnsweredAt  time.Time `json:"answered_at"`
}

// Session is one quiz attempt. The question list is captured at start
// so a session stays internally consistent even if the catalog changes
// mid-session.
type Session struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Level     int              `json:"level"`
	Questions []store.Question `json:"questions"`
	Answers   []Answer         `json:"answers"`
	Correct   int              `json:"correct"`
	State     State            `json:"state"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
	XPEarned  int              `json:"xp_earned"`

	answered map[string]bool
}

// Question returns the captured question by ID, or nil.
func (s *Session) Question(id string) *store.Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// Remaining returns how many questions are still unanswered.
func (s *Session) Remaining() int {
	return len(s.Questions) - len(s.Answers)
}

// Open reports whether the session still accepts answers.
func (s *Session) Open() bool {
	return s.State == StateInProgress
}

// Score returns the session score 0-100 over all selected questions,
// answered or not. Out-of-hearts terminations count unanswered
// questions against the score.
func (s *Session) Score() int {
	if len(s.Questions) == 0 {
		return 0
	}
	return int(float64(s.Correct)/float64(len(s.Questions))*100 + 0.5)
}
