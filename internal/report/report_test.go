package report

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/svetlov/skill-interviewer/internal/bank"
	"github.com/svetlov/skill-interviewer/internal/interview"
)

type stubNarrator struct {
	narrative string
	err       error
}

func (s *stubNarrator) Narrative(context.Context, *interview.Session) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.narrative, nil
}

func terminalSession(status interview.Status, turns ...interview.Turn) *interview.Session {
	s := interview.NewSession("alice")
	s.Turns = turns
	s.Status = status
	return s
}

func TestGenerateRejectsInProgressSessions(t *testing.T) {
	s := interview.NewSession("alice")

	_, err := Generate(context.Background(), s, nil, zap.NewNop())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestGenerateFailSessionWithSinglePoorTurn(t *testing.T) {
	s := terminalSession(interview.StatusCompletedFail, interview.Turn{
		QuestionID:    "q-1",
		Topic:         "formulas",
		Difficulty:    bank.Easy,
		Score:         2,
		Justification: "Did not know the difference between relative and absolute references.",
	})

	r, err := Generate(context.Background(), s, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(r.Gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(r.Gaps))
	}
	if !strings.Contains(r.Gaps[0], "relative and absolute references") {
		t.Fatalf("gap must quote the turn justification, got %q", r.Gaps[0])
	}
	if len(r.Strengths) != 0 {
		t.Fatalf("expected no strengths, got %v", r.Strengths)
	}
	if r.Recommendation != RecommendHold {
		t.Fatalf("expected hold, got %s", r.Recommendation)
	}

	md := r.Markdown()
	if !strings.Contains(md, noStrengthsStatement) {
		t.Fatalf("markdown must state that no strengths were observed:\n%s", md)
	}
	if !strings.Contains(md, "## Areas for Improvement") {
		t.Fatalf("missing section heading:\n%s", md)
	}
}

func TestGeneratePassSessionRecommendation(t *testing.T) {
	s := terminalSession(interview.StatusCompletedPass,
		interview.Turn{QuestionID: "q-1", Topic: "lookups", Difficulty: bank.Hard, Score: 5, Justification: "Flawless INDEX/MATCH explanation."},
		interview.Turn{QuestionID: "q-2", Topic: "lookups", Difficulty: bank.Hard, Score: 4, Justification: "Solid XLOOKUP usage."},
	)

	r, err := Generate(context.Background(), s, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Recommendation != RecommendAdvance {
		t.Fatalf("expected advance, got %s", r.Recommendation)
	}
	if len(r.Strengths) != 2 {
		t.Fatalf("expected 2 strengths, got %d", len(r.Strengths))
	}
	if !strings.Contains(r.Markdown(), noGapsStatement) {
		t.Fatal("markdown must state that no gaps were observed")
	}
}

func TestGenerateExhaustedSessionUsesScoreDistribution(t *testing.T) {
	strong := terminalSession(interview.StatusCompletedExhausted,
		interview.Turn{QuestionID: "q-1", Score: 4, Justification: "j"},
		interview.Turn{QuestionID: "q-2", Score: 4, Justification: "j"},
	)

	r, err := Generate(context.Background(), strong, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Recommendation != RecommendConditional {
		t.Fatalf("expected conditional for mean 4.0, got %s", r.Recommendation)
	}

	weak := terminalSession(interview.StatusCompletedExhausted,
		interview.Turn{QuestionID: "q-1", Score: 3, Justification: "j"},
		interview.Turn{QuestionID: "q-2", Score: 3, Justification: "j"},
	)

	r, err = Generate(context.Background(), weak, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Recommendation != RecommendHold {
		t.Fatalf("expected hold for mean 3.0, got %s", r.Recommendation)
	}
}

func TestGenerateUsesNarrativeStrategy(t *testing.T) {
	s := terminalSession(interview.StatusCompletedPass,
		interview.Turn{QuestionID: "q-1", Score: 5, Justification: "j"})

	r, err := Generate(context.Background(), s, &stubNarrator{narrative: "Excellent run."}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Summary != "Excellent run." {
		t.Fatalf("expected narrative summary, got %q", r.Summary)
	}
}

func TestGenerateFallsBackWhenNarrativeFails(t *testing.T) {
	s := terminalSession(interview.StatusCompletedFail,
		interview.Turn{QuestionID: "q-1", Score: 2, Justification: "j"},
		interview.Turn{QuestionID: "q-2", Score: 1, Justification: "j"},
	)

	r, err := Generate(context.Background(), s, &stubNarrator{err: errors.New("backend down")}, zap.NewNop())
	if err != nil {
		t.Fatalf("the report must still be produced: %v", err)
	}

	if r.Summary == "" {
		t.Fatal("expected a fallback summary")
	}
	if !strings.Contains(r.Summary, "ended early") {
		t.Fatalf("unexpected fallback summary: %q", r.Summary)
	}
}

func TestGenerateAbortedSession(t *testing.T) {
	s := terminalSession(interview.StatusAborted,
		interview.Turn{QuestionID: "q-1", Score: 4, Justification: "j"})

	r, err := Generate(context.Background(), s, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Recommendation != RecommendHold {
		t.Fatalf("expected hold for aborted session, got %s", r.Recommendation)
	}
	if !strings.Contains(r.Summary, "aborted") {
		t.Fatalf("unexpected summary: %q", r.Summary)
	}
}

func TestDumpToTmpFile(t *testing.T) {
	s := terminalSession(interview.StatusCompletedPass,
		interview.Turn{QuestionID: "q-1", Score: 5, Justification: "j"})

	r, err := Generate(context.Background(), s, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name, err := r.DumpToTmpFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Remove(name)

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(data), `"recommendation": "advance"`) {
		t.Fatalf("unexpected dump contents:\n%s", data)
	}
}
