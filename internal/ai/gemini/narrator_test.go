package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/svetlov/skill-interviewer/internal/interview"
)

type stubTextGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubTextGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func finishedSession() *interview.Session {
	s := interview.NewSession("alice")
	s.Turns = []interview.Turn{
		{QuestionID: "q-1", Topic: "formulas", Score: 5, Justification: "Strong formula fluency."},
		{QuestionID: "q-2", Topic: "lookups", Score: 2, Justification: "Could not describe INDEX/MATCH."},
	}
	s.Status = interview.StatusCompletedFail
	return s
}

func TestNarratorBuildsGroundedPrompt(t *testing.T) {
	stub := &stubTextGenerator{response: "The candidate showed solid formula skills but struggled with lookups."}
	narrator := NewNarrator(stub, zap.NewNop(), 0)

	narrative, err := narrator.Narrative(context.Background(), finishedSession())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(narrative, "struggled with lookups") {
		t.Fatalf("unexpected narrative: %q", narrative)
	}

	for _, want := range []string{
		`"question_id": "q-1"`,
		`"justification": "Could not describe INDEX/MATCH."`,
		`status "completed_fail"`,
	} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, stub.lastPrompt)
		}
	}

	if strings.Contains(stub.lastPrompt, "raw answer text") {
		t.Fatal("prompt must not carry raw answers")
	}
}

func TestNarratorPropagatesErrors(t *testing.T) {
	stub := &stubTextGenerator{err: errors.New("backend down")}

	if _, err := NewNarrator(stub, zap.NewNop(), 0).Narrative(context.Background(), finishedSession()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNarratorRejectsEmptyNarrative(t *testing.T) {
	stub := &stubTextGenerator{response: "   "}

	if _, err := NewNarrator(stub, zap.NewNop(), 0).Narrative(context.Background(), finishedSession()); err == nil {
		t.Fatal("expected error for empty narrative")
	}
}
