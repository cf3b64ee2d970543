package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svetlov/skill-interviewer/internal/interview"
)

// ErrInvalidState is returned when a report is requested for a session that
// is still in progress. Correct orchestration never reaches this.
var ErrInvalidState = errors.New("session is still in progress")

// Recommendation is the hiring call derived from the terminal status.
type Recommendation string

const (
	RecommendAdvance     Recommendation = "advance"
	RecommendHold        Recommendation = "hold"
	RecommendConditional Recommendation = "conditional-advance"
)

const conditionalMeanThreshold = 3.5

const (
	noStrengthsStatement = "No strengths were observed: no answer reached the correct band."
	noGapsStatement      = "No gaps were observed: no answer fell into the poor band."
)

// Report is the structured hiring report synthesized from a finished session.
// Strength and gap claims quote grader justifications verbatim, so every
// claim traces back to a recorded turn.
type Report struct {
	SessionID      string         `json:"session_id"`
	Candidate      string         `json:"candidate"`
	Status         string         `json:"status"`
	Turns          int            `json:"turns"`
	MeanScore      float64        `json:"mean_score"`
	Summary        string         `json:"summary"`
	Strengths      []string       `json:"strengths"`
	Gaps           []string       `json:"gaps"`
	Recommendation Recommendation `json:"recommendation"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Generate builds the report for a terminal session. The narrative strategy
// only contributes the summary prose; when it is nil or fails, a
// deterministic built-in summary is used so the report is always produced.
func Generate(ctx context.Context, s *interview.Session, strategy interview.ReportingStrategy, log *zap.Logger) (*Report, error) {
	if s == nil {
		return nil, errors.New("session is required")
	}
	if !s.Status.Terminal() {
		return nil, fmt.Errorf("%w: session %s", ErrInvalidState, s.ID)
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := &Report{
		SessionID:      s.ID,
		Candidate:      s.Candidate,
		Status:         s.Status.String(),
		Turns:          len(s.Turns),
		MeanScore:      s.MeanScore(),
		Strengths:      strengths(s),
		Gaps:           gaps(s),
		Recommendation: recommend(s),
		GeneratedAt:    time.Now().UTC(),
	}

	r.Summary = fallbackSummary(s)
	if strategy != nil {
		narrative, err := strategy.Narrative(ctx, s)
		if err != nil {
			log.Warn("narrative generation failed, using built-in summary",
				zap.String("session_id", s.ID),
				zap.Error(err),
			)
		} else {
			r.Summary = narrative
		}
	}

	return r, nil
}

func strengths(s *interview.Session) []string {
	var out []string
	for _, t := range s.Turns {
		if interview.ClassifyScore(t.Score) == interview.BandCorrect {
			out = append(out, claim(t))
		}
	}
	return out
}

func gaps(s *interview.Session) []string {
	var out []string
	for _, t := range s.Turns {
		if interview.ClassifyScore(t.Score) == interview.BandPoor {
			out = append(out, claim(t))
		}
	}
	return out
}

func claim(t interview.Turn) string {
	return fmt.Sprintf("%s (%s, question %s): %s", t.Topic, t.Difficulty, t.QuestionID, t.Justification)
}

func recommend(s *interview.Session) Recommendation {
	switch s.Status {
	case interview.StatusCompletedPass:
		return RecommendAdvance
	case interview.StatusCompletedExhausted:
		// Neither strong signal fired; fall back to the score distribution.
		if s.MeanScore() >= conditionalMeanThreshold {
			return RecommendConditional
		}
		return RecommendHold
	default:
		return RecommendHold
	}
}

func fallbackSummary(s *interview.Session) string {
	switch s.Status {
	case interview.StatusAborted:
		return fmt.Sprintf("The interview was aborted after %d turn(s) and produced no complete signal.", len(s.Turns))
	case interview.StatusCompletedPass:
		return fmt.Sprintf("The candidate answered %d question(s) and passed enough hard-tier questions to end the interview with a strong positive signal (mean score %.1f).", len(s.Turns), s.MeanScore())
	case interview.StatusCompletedFail:
		return fmt.Sprintf("The interview ended early after %d question(s) on a streak of poor answers (mean score %.1f).", len(s.Turns), s.MeanScore())
	default:
		return fmt.Sprintf("The question supply was exhausted after %d question(s) without a strong signal either way (mean score %.1f).", len(s.Turns), s.MeanScore())
	}
}

// Markdown renders the report in the sectioned form handed to the hiring
// team. Empty evidence bands state that no evidence was observed instead of
// inventing content.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Interview Report: %s\n\n", r.Candidate)
	fmt.Fprintf(&b, "Status: %s | Questions: %d | Mean score: %.1f\n\n", r.Status, r.Turns, r.MeanScore)

	b.WriteString("## Overall Performance Summary\n\n")
	b.WriteString(r.Summary)
	b.WriteString("\n\n## Key Strengths\n\n")
	writeClaims(&b, r.Strengths, noStrengthsStatement)

	b.WriteString("\n## Areas for Improvement\n\n")
	writeClaims(&b, r.Gaps, noGapsStatement)

	b.WriteString("\n## Final Recommendation\n\n")
	fmt.Fprintf(&b, "%s\n", r.Recommendation)

	return b.String()
}

func writeClaims(b *strings.Builder, claims []string, emptyStatement string) {
	if len(claims) == 0 {
		b.WriteString(emptyStatement)
		b.WriteString("\n")
		return
	}
	for _, c := range claims {
		fmt.Fprintf(b, "- %s\n", c)
	}
}

// DumpToTmpFile writes the report as indented JSON to a temporary file and
// returns its name. Delivery beyond this is the consumer's concern.
func (r *Report) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "interview_report_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}
