package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/svetlov/skill-interviewer/internal/bank"
	"github.com/svetlov/skill-interviewer/internal/interview"
	"github.com/svetlov/skill-interviewer/internal/logger"
)

const defaultGradeTimeout = 30 * time.Second

// The candidate-facing channel only ever sees question text and these
// generic notices. Scores, bands and diagnostics stay on the operator side.
const (
	WelcomeMessage    = "Welcome! The interview will now begin. Answer each question as completely as you can."
	CompletionMessage = "The interview is complete. Thank you for your time; the results will be shared with the hiring team."
	AbortMessage      = "The interview cannot continue right now. Thank you for your time."
)

// CandidateIO is the boundary to the candidate. Ask presents one question
// and blocks for the answer; Notify delivers a generic status message.
type CandidateIO interface {
	Ask(ctx context.Context, question string) (string, error)
	Notify(ctx context.Context, message string) error
}

// Runner drives one session through its strictly sequential turn loop:
// question selection, presentation, grading, decision. It owns the session
// for the duration of the run; concurrent sessions get their own runner.
type Runner struct {
	Picker *bank.Picker
	Scorer interview.ScoringStrategy
	Engine *interview.Engine
	IO     CandidateIO
	Logger *zap.Logger

	// GradeTimeout bounds a single grading call, independent of the
	// grader's own retry budget.
	GradeTimeout time.Duration
}

// Run executes the interview until the session reaches a terminal status.
// Cancelling ctx aborts the session without further grader calls.
func (r *Runner) Run(ctx context.Context, s *interview.Session) error {
	if r.Picker == nil || r.Scorer == nil || r.IO == nil {
		return errors.New("runner requires a picker, a scorer and a candidate channel")
	}
	if s == nil {
		return errors.New("session is required")
	}
	if s.Status.Terminal() {
		return fmt.Errorf("session %s is already %s", s.ID, s.Status)
	}

	log := logger.WithFields(r.Logger, zap.String(logger.FieldSession, s.ID))

	engine := r.Engine
	if engine == nil {
		engine = interview.NewEngine()
	}

	timeout := r.GradeTimeout
	if timeout <= 0 {
		timeout = defaultGradeTimeout
	}

	r.notify(ctx, log, WelcomeMessage)

	for s.Status == interview.StatusInProgress {
		if err := ctx.Err(); err != nil {
			s.Abort()
			r.notify(context.WithoutCancel(ctx), log, AbortMessage)
			log.Warn("interview aborted", zap.Error(err))
			return fmt.Errorf("interview aborted: %w", err)
		}

		q, err := r.Picker.Next(s.Difficulty, s.AskedIDs())
		if errors.Is(err, bank.ErrNoQuestions) {
			s.Exhaust()
			log.Info("question supply exhausted",
				zap.String("difficulty", s.Difficulty.String()),
				zap.Int("turns", len(s.Turns)),
			)
			break
		}
		if err != nil {
			s.Abort()
			return fmt.Errorf("selecting next question: %w", err)
		}

		s.MarkAsked(q.ID)
		askedAt := time.Now().UTC()

		answer, err := r.IO.Ask(ctx, FormatQuestion(q))
		if err != nil {
			s.Abort()
			log.Warn("candidate channel failed", zap.String("question_id", q.ID), zap.Error(err))
			return fmt.Errorf("asking question %s: %w", q.ID, err)
		}

		gradeCtx, cancel := context.WithTimeout(ctx, timeout)
		score, err := r.Scorer.Evaluate(gradeCtx, q, answer)
		cancel()
		if err != nil {
			// Never default a score: a fabricated value would corrupt
			// the engine's signal. Abort instead.
			s.Abort()
			log.Error("grading failed, aborting session",
				zap.String("question_id", q.ID),
				zap.Error(err),
			)
			r.notify(context.WithoutCancel(ctx), log, AbortMessage)
			return fmt.Errorf("grading question %s: %w", q.ID, err)
		}

		turn := interview.Turn{
			QuestionID:    q.ID,
			Topic:         q.Topic,
			Difficulty:    s.Difficulty,
			Answer:        answer,
			Score:         score.Value,
			Justification: score.Justification,
			AskedAt:       askedAt,
		}

		status, err := engine.Apply(s, turn)
		if err != nil {
			s.Abort()
			return fmt.Errorf("applying turn for question %s: %w", q.ID, err)
		}

		log.Info("turn evaluated",
			zap.String("question_id", q.ID),
			zap.String("band", interview.ClassifyScore(score.Value).String()),
			zap.Int("score", score.Value),
			zap.String("status", status.String()),
			zap.String("next_difficulty", s.Difficulty.String()),
		)
	}

	r.notify(ctx, log, CompletionMessage)

	log.Info("interview finished",
		zap.String("status", s.Status.String()),
		zap.Int("turns", len(s.Turns)),
		zap.Float64("mean_score", s.MeanScore()),
	)

	return nil
}

func (r *Runner) notify(ctx context.Context, log *zap.Logger, message string) {
	if err := r.IO.Notify(ctx, message); err != nil {
		log.Warn("candidate notice failed", zap.Error(err))
	}
}

// FormatQuestion renders the candidate-facing form of a question. Topic and
// tier are shown, per-turn evaluation never is.
func FormatQuestion(q *bank.Question) string {
	return fmt.Sprintf("[Topic: %s | Difficulty: %s]\n\n%s", q.Topic, q.Difficulty, q.Prompt)
}
