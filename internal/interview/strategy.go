package interview

import (
	"context"
	"errors"

	"github.com/svetlov/skill-interviewer/internal/bank"
)

// ErrGradingUnavailable signals that the scoring backend could not produce a
// valid score within its retry budget. The orchestrator aborts the session
// rather than inventing a score, since a defaulted score would corrupt the
// engine's signal.
var ErrGradingUnavailable = errors.New("grading unavailable")

// Score is a validated evaluation of one answer: an integer in [1,5] and a
// non-empty justification.
type Score struct {
	Value         int
	Justification string
}

// ScoringStrategy evaluates one candidate answer against one question's
// rubric. Implementations must return either a valid Score or an error; the
// backend is not required to be deterministic, only valid.
type ScoringStrategy interface {
	Evaluate(ctx context.Context, q *bank.Question, answer string) (*Score, error)
}

// ReportingStrategy writes the narrative summary for a finished session.
// The structured report sections are assembled deterministically elsewhere;
// this strategy only contributes prose.
type ReportingStrategy interface {
	Narrative(ctx context.Context, s *Session) (string, error)
}
