package interview

import (
	"time"

	"github.com/google/uuid"

	"github.com/svetlov/skill-interviewer/internal/bank"
)

// Status is the lifecycle state of a session. Once it leaves InProgress the
// session takes no further turns.
type Status int

const (
	StatusInProgress Status = iota
	StatusCompletedPass
	StatusCompletedFail
	StatusCompletedExhausted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusCompletedPass:
		return "completed_pass"
	case StatusCompletedFail:
		return "completed_fail"
	case StatusCompletedExhausted:
		return "completed_exhausted"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status permits no further turns.
func (s Status) Terminal() bool {
	return s != StatusInProgress
}

// Turn is one question/answer/evaluation cycle. Immutable once appended.
type Turn struct {
	QuestionID    string          `json:"question_id"`
	Topic         string          `json:"topic"`
	Difficulty    bank.Difficulty `json:"-"`
	Answer        string          `json:"-"`
	Score         int             `json:"score"`
	Justification string          `json:"justification"`
	AskedAt       time.Time       `json:"-"`
}

// Session is the mutable record of one candidate's run. It is owned by a
// single orchestrator loop and never shared across candidates.
type Session struct {
	ID        string
	Candidate string
	StartedAt time.Time

	Turns                []Turn
	Difficulty           bank.Difficulty
	ConsecutiveCorrect   int
	ConsecutiveIncorrect int
	HardPassed           int
	Status               Status

	asked map[string]bool
}

// NewSession creates an in-progress session starting at the easy tier.
func NewSession(candidate string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Candidate:  candidate,
		StartedAt:  time.Now().UTC(),
		Difficulty: bank.Easy,
		Status:     StatusInProgress,
		asked:      make(map[string]bool),
	}
}

// MarkAsked records a question id so it is never presented twice within this
// session. Idempotent.
func (s *Session) MarkAsked(id string) {
	if s.asked == nil {
		s.asked = make(map[string]bool)
	}
	s.asked[id] = true
}

// HasAsked reports whether the question id was already presented.
func (s *Session) HasAsked(id string) bool {
	return s.asked[id]
}

// AskedIDs returns a copy of the exclusion set for question selection.
func (s *Session) AskedIDs() map[string]bool {
	out := make(map[string]bool, len(s.asked))
	for id := range s.asked {
		out[id] = true
	}
	return out
}

// Abort moves an in-progress session to Aborted. Terminal sessions are left
// untouched.
func (s *Session) Abort() {
	if s.Status == StatusInProgress {
		s.Status = StatusAborted
	}
}

// Exhaust marks the session as ended because the question supply ran out.
func (s *Session) Exhaust() {
	if s.Status == StatusInProgress {
		s.Status = StatusCompletedExhausted
	}
}

// MeanScore returns the average score across all turns, or 0 for an empty
// history.
func (s *Session) MeanScore() float64 {
	if len(s.Turns) == 0 {
		return 0
	}

	total := 0
	for _, t := range s.Turns {
		total += t.Score
	}
	return float64(total) / float64(len(s.Turns))
}
