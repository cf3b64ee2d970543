package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/svetlov/skill-interviewer/internal/bank"
	"github.com/svetlov/skill-interviewer/internal/interview"
	"github.com/svetlov/skill-interviewer/internal/logger"
)

//go:embed grader_prompt.md
var graderPromptTemplate string

const (
	defaultValidationRetries = 2
	defaultMaxLogLength      = 200
)

// jsonGenerator produces a JSON-constrained model response for a prompt.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Grader scores one answer against one question's rubric. It implements
// interview.ScoringStrategy.
type Grader struct {
	generator  jsonGenerator
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

// NewGrader builds a Grader. maxRetries bounds re-submissions after the model
// returns an unparseable or out-of-contract payload; transport-level retries
// live in the generator. Non-positive values select the default budget, so an
// unset configuration still retries.
func NewGrader(generator jsonGenerator, log *zap.Logger, maxRetries, maxLogLength int) *Grader {
	if maxRetries <= 0 {
		maxRetries = defaultValidationRetries
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Grader{
		generator:  generator,
		maxRetries: maxRetries,
		maxLogLen:  maxLogLength,
		logger:     log,
	}
}

// Evaluate grades the answer, returning a validated score or
// interview.ErrGradingUnavailable once the retry budget is spent. It never
// substitutes a default score.
func (g *Grader) Evaluate(ctx context.Context, q *bank.Question, answer string) (*interview.Score, error) {
	if q == nil {
		return nil, errors.New("question is required")
	}

	prompt := buildGraderPrompt(q, answer)

	g.logger.Debug("grading request",
		zap.String("question_id", q.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, g.maxLogLen)),
	)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		raw, err := g.generator.GenerateJSON(ctx, prompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		g.logger.Debug("grading response",
			zap.String("question_id", q.ID),
			zap.Int("attempt", attempt+1),
			zap.String("response_preview", logger.TruncateForLog(raw, g.maxLogLen)),
		)

		score, err := parseScore(raw)
		if err != nil {
			lastErr = err
			g.logger.Warn("discarding invalid grading payload",
				zap.String("question_id", q.ID),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		return score, nil
	}

	return nil, fmt.Errorf("grading question %s: %w: %v", q.ID, interview.ErrGradingUnavailable, lastErr)
}

func buildGraderPrompt(q *bank.Question, answer string) string {
	prompt := strings.ReplaceAll(graderPromptTemplate, "{{QUESTION}}", q.Prompt)
	prompt = strings.ReplaceAll(prompt, "{{RUBRIC}}", q.Rubric.Render())
	prompt = strings.ReplaceAll(prompt, "{{ANSWER}}", strings.TrimSpace(answer))
	return prompt
}

type gradePayload struct {
	Score         any    `json:"score"`
	Justification string `json:"justification"`
}

// parseScore validates the model payload against the grader contract: an
// integer score in [1,5] plus a non-empty justification.
func parseScore(raw string) (*interview.Score, error) {
	cleaned := extractJSON(raw)

	var payload gradePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parse grading response: %w", err)
	}

	value, err := coerceScore(payload.Score)
	if err != nil {
		return nil, err
	}

	if value < 1 || value > 5 {
		return nil, fmt.Errorf("score %d is outside [1,5]", value)
	}

	justification := strings.TrimSpace(payload.Justification)
	if justification == "" {
		return nil, errors.New("justification is empty")
	}

	return &interview.Score{Value: value, Justification: justification}, nil
}

func coerceScore(v any) (int, error) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("score %v is not an integer", val)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("score %q is not an integer", val)
		}
		return n, nil
	case nil:
		return 0, errors.New("score is missing")
	default:
		return 0, fmt.Errorf("score has unsupported type %T", v)
	}
}

// extractJSON strips markdown fences some models wrap around JSON output.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
