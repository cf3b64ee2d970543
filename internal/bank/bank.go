package bank

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoQuestions is returned by a Picker when no unused question exists at
// the requested difficulty or any fallback tier.
var ErrNoQuestions = errors.New("no unused questions available")

// Difficulty is an ordered question tier. Promotion and demotion clamp at
// the ends of the scale.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

var difficultyNames = map[Difficulty]string{
	Easy:   "easy",
	Medium: "medium",
	Hard:   "hard",
}

func (d Difficulty) String() string {
	if name, ok := difficultyNames[d]; ok {
		return name
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// Promote returns the next harder tier, staying at Hard.
func (d Difficulty) Promote() Difficulty {
	if d >= Hard {
		return Hard
	}
	return d + 1
}

// Demote returns the next easier tier, staying at Easy.
func (d Difficulty) Demote() Difficulty {
	if d <= Easy {
		return Easy
	}
	return d - 1
}

// ParseDifficulty converts a catalog string into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	default:
		return Easy, fmt.Errorf("unknown difficulty %q", s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler for catalog difficulty strings.
func (d *Difficulty) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := ParseDifficulty(raw)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// Band maps a score range to the criteria an answer must meet to land in it.
type Band struct {
	Scores   string `yaml:"scores"`
	Criteria string `yaml:"criteria"`
}

// Rubric is the ordered set of score bands the grader judges against.
type Rubric []Band

// Render returns the rubric as plain text suitable for embedding in a
// grading prompt.
func (r Rubric) Render() string {
	var b strings.Builder
	for _, band := range r {
		fmt.Fprintf(&b, "- score %s: %s\n", band.Scores, band.Criteria)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Question is a single catalog entry. Immutable once loaded.
type Question struct {
	ID         string     `yaml:"id"`
	Topic      string     `yaml:"-"`
	Difficulty Difficulty `yaml:"difficulty"`
	Prompt     string     `yaml:"prompt"`
	Rubric     Rubric     `yaml:"rubric"`
}

type catalog struct {
	Topics map[string][]*Question `yaml:"topics"`
}

// Bank is the read-only question catalog shared by all sessions.
type Bank struct {
	pools  map[Difficulty][]*Question
	byID   map[string]*Question
	topics []string
}

// Load reads and validates a YAML catalog. A malformed catalog is a startup
// error; the bank is never reloaded afterwards.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question catalog %q: %w", path, err)
	}

	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing question catalog %q: %w", path, err)
	}

	b := &Bank{
		pools: make(map[Difficulty][]*Question),
		byID:  make(map[string]*Question),
	}

	for topic, questions := range c.Topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return nil, errors.New("catalog contains a topic with an empty name")
		}
		b.topics = append(b.topics, topic)

		for i, q := range questions {
			if q == nil {
				return nil, fmt.Errorf("topic %q: question %d is empty", topic, i)
			}
			q.Topic = topic
			if err := validateQuestion(q); err != nil {
				return nil, fmt.Errorf("topic %q: %w", topic, err)
			}
			if _, exists := b.byID[q.ID]; exists {
				return nil, fmt.Errorf("duplicate question id %q", q.ID)
			}

			b.byID[q.ID] = q
			b.pools[q.Difficulty] = append(b.pools[q.Difficulty], q)
		}
	}

	sort.Strings(b.topics)

	// Stable order inside each pool so a seeded picker is reproducible
	// regardless of YAML map iteration order.
	for _, pool := range b.pools {
		sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	}

	for _, tier := range []Difficulty{Easy, Medium, Hard} {
		if len(b.pools[tier]) == 0 {
			return nil, fmt.Errorf("catalog has no %s questions", tier)
		}
	}

	return b, nil
}

func validateQuestion(q *Question) error {
	if strings.TrimSpace(q.ID) == "" {
		return errors.New("question is missing an id")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question %q is missing a prompt", q.ID)
	}
	if len(q.Rubric) == 0 {
		return fmt.Errorf("question %q is missing a rubric", q.ID)
	}
	for i, band := range q.Rubric {
		if strings.TrimSpace(band.Scores) == "" || strings.TrimSpace(band.Criteria) == "" {
			return fmt.Errorf("question %q: rubric band %d is incomplete", q.ID, i)
		}
	}
	return nil
}

// Find returns the question with the given id, or nil.
func (b *Bank) Find(id string) *Question {
	return b.byID[id]
}

// Topics returns the sorted topic names present in the catalog.
func (b *Bank) Topics() []string {
	out := make([]string, len(b.topics))
	copy(out, b.topics)
	return out
}

// Len returns the total number of questions in the catalog.
func (b *Bank) Len() int {
	return len(b.byID)
}
