package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/svetlov/skill-interviewer/internal/interview"
	"github.com/svetlov/skill-interviewer/internal/logger"
)

//go:embed narrator_prompt.md
var narratorPromptTemplate string

// textGenerator produces a free-text model response for a prompt.
type textGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Narrator writes the prose summary for a finished session. It implements
// interview.ReportingStrategy; the structured report sections are assembled
// deterministically by the report package, so the narrator cannot introduce
// claims into them.
type Narrator struct {
	generator textGenerator
	maxLogLen int
	logger    *zap.Logger
}

func NewNarrator(generator textGenerator, log *zap.Logger, maxLogLength int) *Narrator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Narrator{
		generator: generator,
		maxLogLen: maxLogLength,
		logger:    log,
	}
}

// transcriptEntry is the subset of a turn shared with the narrative model.
// Raw answers are withheld; the justifications already carry the evidence.
type transcriptEntry struct {
	QuestionID    string `json:"question_id"`
	Topic         string `json:"topic"`
	Difficulty    string `json:"difficulty"`
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// Narrative produces the overall performance summary for the session.
func (n *Narrator) Narrative(ctx context.Context, s *interview.Session) (string, error) {
	if s == nil {
		return "", errors.New("session is required")
	}

	entries := make([]transcriptEntry, 0, len(s.Turns))
	for _, t := range s.Turns {
		entries = append(entries, transcriptEntry{
			QuestionID:    t.QuestionID,
			Topic:         t.Topic,
			Difficulty:    t.Difficulty.String(),
			Score:         t.Score,
			Justification: t.Justification,
		})
	}

	transcript, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	prompt := strings.ReplaceAll(narratorPromptTemplate, "{{STATUS}}", s.Status.String())
	prompt = strings.ReplaceAll(prompt, "{{TRANSCRIPT}}", string(transcript))

	n.logger.Debug("narrative request",
		zap.String(logger.FieldSession, s.ID),
		zap.Int("turns", len(s.Turns)),
	)

	narrative, err := n.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate narrative: %w", err)
	}

	n.logger.Debug("narrative response",
		zap.String(logger.FieldSession, s.ID),
		zap.String("narrative_preview", logger.TruncateForLog(narrative, n.maxLogLen)),
	)

	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return "", errors.New("narrative is empty")
	}

	return narrative, nil
}
