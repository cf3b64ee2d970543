package interview

import (
	"fmt"

	"github.com/svetlov/skill-interviewer/internal/bank"
)

// Score band boundaries. The grader guarantees an integer in [1,5]; the
// banding below is the contract between grader and engine.
type Band int

const (
	BandPoor    Band = iota // 1-2
	BandPartial             // 3
	BandCorrect             // 4-5
)

func (b Band) String() string {
	switch b {
	case BandPoor:
		return "poor"
	case BandPartial:
		return "partial"
	default:
		return "correct"
	}
}

// ClassifyScore maps a validated score to its band.
func ClassifyScore(score int) Band {
	switch {
	case score >= 4:
		return BandCorrect
	case score == 3:
		return BandPartial
	default:
		return BandPoor
	}
}

const (
	defaultFailStreak     = 2
	defaultHardPassTarget = 3
	defaultMaxQuestions   = 15
)

// Engine is the pure decision policy for one turn: it classifies the score,
// updates the session counters, checks termination, and moves the difficulty
// pointer. It performs no I/O and touches nothing but the session it is
// handed, so synthetic score sequences exercise it directly.
type Engine struct {
	// FailStreak terminates the interview after this many consecutive poor
	// answers.
	FailStreak int
	// HardPassTarget terminates the interview after this many hard-tier
	// correct answers.
	HardPassTarget int
	// MaxQuestions caps the interview length; 0 disables the cap. Hitting
	// the cap ends the session as exhausted since neither strong signal
	// fired.
	MaxQuestions int
}

// NewEngine returns an engine with the default thresholds.
func NewEngine() *Engine {
	return &Engine{
		FailStreak:     defaultFailStreak,
		HardPassTarget: defaultHardPassTarget,
		MaxQuestions:   defaultMaxQuestions,
	}
}

func (e *Engine) failStreak() int {
	if e.FailStreak > 0 {
		return e.FailStreak
	}
	return defaultFailStreak
}

func (e *Engine) hardPassTarget() int {
	if e.HardPassTarget > 0 {
		return e.HardPassTarget
	}
	return defaultHardPassTarget
}

// Apply records the turn on the session and runs one state transition.
// It returns the resulting status. Calling it on a terminal session or with
// an out-of-range score is a contract violation and yields an error without
// touching the session.
func (e *Engine) Apply(s *Session, t Turn) (Status, error) {
	if s.Status != StatusInProgress {
		return s.Status, fmt.Errorf("session %s is %s, not in progress", s.ID, s.Status)
	}
	if t.Score < 1 || t.Score > 5 {
		return s.Status, fmt.Errorf("score %d is outside [1,5]", t.Score)
	}

	s.Turns = append(s.Turns, t)
	s.MarkAsked(t.QuestionID)

	band := ClassifyScore(t.Score)
	switch band {
	case BandCorrect:
		s.ConsecutiveCorrect++
		s.ConsecutiveIncorrect = 0
		if t.Difficulty == bank.Hard {
			s.HardPassed++
		}
	case BandPartial:
		// A partial answer is neither a success nor a failure streak.
		s.ConsecutiveCorrect = 0
		s.ConsecutiveIncorrect = 0
	case BandPoor:
		s.ConsecutiveIncorrect++
		s.ConsecutiveCorrect = 0
	}

	// Termination priority: the pass signal is checked before the fail
	// signal, so a candidate reaching the hard-pass target is never failed
	// by the same update. This ordering is policy and must not change.
	switch {
	case s.HardPassed >= e.hardPassTarget():
		s.Status = StatusCompletedPass
	case s.ConsecutiveIncorrect >= e.failStreak():
		s.Status = StatusCompletedFail
	case e.MaxQuestions > 0 && len(s.Turns) >= e.MaxQuestions:
		s.Status = StatusCompletedExhausted
	default:
		switch band {
		case BandCorrect:
			s.Difficulty = s.Difficulty.Promote()
		case BandPoor:
			s.Difficulty = s.Difficulty.Demote()
		}
	}

	return s.Status, nil
}
