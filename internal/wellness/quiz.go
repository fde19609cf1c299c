package wellness

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// QuizLength is the exact number of answers a quiz submission carries.
const QuizLength = 10

//go:embed questions.yaml
var questionsYAML []byte

// Option is one selectable answer and the points it is worth.
type Option struct {
	Label string  `yaml:"label" json:"label"`
	Value float64 `yaml:"value" json:"value"`
}

// Question is a single quiz prompt.
type Question struct {
	ID      string   `yaml:"id" json:"id"`
	Text    string   `yaml:"text" json:"text"`
	Options []Option `yaml:"options" json:"options"`
}

type catalog struct {
	Questions []Question `yaml:"questions"`
}

var (
	questionsOnce sync.Once
	questions     []Question
	questionsErr  error
)

// Questions returns the embedded quiz catalog.
func Questions() ([]Question, error) {
	questionsOnce.Do(func() {
		questions, questionsErr = parseQuestions(questionsYAML)
	})
	if questionsErr != nil {
		return nil, questionsErr
	}
	return append([]Question(nil), questions...), nil
}

func parseQuestions(data []byte) ([]Question, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse quiz catalog: %w", err)
	}
	if len(c.Questions) != QuizLength {
		return nil, fmt.Errorf("quiz catalog has %d questions, want %d", len(c.Questions), QuizLength)
	}
	return c.Questions, nil
}

// ScoreQuiz sums exactly QuizLength answers and clamps the total.
func ScoreQuiz(answers []float64) (int, error) {
	if len(answers) != QuizLength {
		return 0, fmt.Errorf("%w: got %d answers, want %d", ErrInvalidInput, len(answers), QuizLength)
	}
	var sum float64
	for _, a := range answers {
		sum += a
	}
	score, err := Clamp(sum)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return score, nil
}

// ParseAnswers converts loosely typed answers (numbers or numeric strings,
// as a browser form may send them) into floats. The count is checked
// first so a short submission reports ErrInvalidInput, not a format error.
func ParseAnswers(raw []any) ([]float64, error) {
	if len(raw) != QuizLength {
		return nil, fmt.Errorf("%w: got %d answers, want %d", ErrInvalidInput, len(raw), QuizLength)
	}
	out := make([]float64, 0, len(raw))
	for i, v := range raw {
		f, err := ParseAnswer(v)
		if err != nil {
			return nil, fmt.Errorf("answer %d: %w", i+1, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseAnswer converts a single answer value into a finite float.
func ParseAnswer(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidFormat, x.String())
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidFormat, x)
		}
		f = p
	default:
		return 0, fmt.Errorf("%w: unsupported answer type %T", ErrInvalidFormat, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: answer is not finite", ErrInvalidFormat)
	}
	return f, nil
}
