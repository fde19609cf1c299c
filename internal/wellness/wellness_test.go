package wellness

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{-10, 0},
		{0, 0},
		{49.4, 49},
		{49.6, 50},
		{62.5, 62},
		{63.5, 64},
		{100, 100},
		{250.7, 100},
	}
	for _, c := range cases {
		got, err := Clamp(c.in)
		if err != nil {
			t.Fatalf("Clamp(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Clamp(%v)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestClampIdempotent(t *testing.T) {
	for x := -50.0; x <= 150; x += 0.25 {
		once, err := Clamp(x)
		if err != nil {
			t.Fatalf("Clamp(%v): %v", x, err)
		}
		twice, err := Clamp(float64(once))
		if err != nil {
			t.Fatalf("Clamp(%v): %v", float64(once), err)
		}
		if once != twice {
			t.Fatalf("not idempotent at %v: %d then %d", x, once, twice)
		}
	}
}

func TestClampRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Clamp(v); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Clamp(%v) err=%v, want ErrInvalidArgument", v, err)
		}
	}
}

func TestTransitionProperties(t *testing.T) {
	for s := 0; s <= 100; s++ {
		if got, want := Transition(s, SeverityNormal), min(100, s+15); got != want {
			t.Fatalf("normal %d: got %d want %d", s, got, want)
		}
		if got, want := Transition(s, SeverityMild), max(0, s-5); got != want {
			t.Fatalf("mild %d: got %d want %d", s, got, want)
		}
		if got, want := Transition(s, SeveritySerious), max(0, s-15); got != want {
			t.Fatalf("serious %d: got %d want %d", s, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]Severity{
		"🔴 Serious condition, visit a doctor":   SeveritySerious,
		"🟡 Mild cold":                           SeverityMild,
		"🟢 Just rest":                           SeverityNormal,
		"no markers here":                       SeverityNormal,
		"This looks Serious.":                   SeveritySerious,
		"Mild symptoms only":                    SeverityMild,
		"🟡 could become 🔴 if it persists":        SeveritySerious,
		"mild and serious in lowercase do not count": SeverityNormal,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Fatalf("Classify(%q)=%s want %s", in, got, want)
		}
	}
}

func TestNeedsQuiz(t *testing.T) {
	if !NeedsQuiz(0) {
		t.Fatalf("NeedsQuiz(0) should be true")
	}
	if NeedsQuiz(1) || NeedsQuiz(100) {
		t.Fatalf("NeedsQuiz should be false for non-zero scores")
	}
}

func TestScoreQuiz(t *testing.T) {
	fill := func(v float64) []float64 {
		out := make([]float64, QuizLength)
		for i := range out {
			out[i] = v
		}
		return out
	}
	cases := []struct {
		in   []float64
		want int
	}{
		{fill(10), 100},
		{fill(0), 0},
		{fill(5), 50},
		{fill(20), 100},
		{fill(-3), 0},
	}
	for _, c := range cases {
		got, err := ScoreQuiz(c.in)
		if err != nil {
			t.Fatalf("ScoreQuiz(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ScoreQuiz(%v)=%d want %d", c.in, got, c.want)
		}
	}

	for _, n := range []int{0, 1, 9, 11} {
		if _, err := ScoreQuiz(make([]float64, n)); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("len %d: err=%v, want ErrInvalidInput", n, err)
		}
	}
}

func TestParseAnswers(t *testing.T) {
	raw := []any{10.0, "5", json.Number("7"), 3, "  2.5 ", 0.0, 1.0, 1.0, 1.0, 1.5}
	got, err := ParseAnswers(raw)
	if err != nil {
		t.Fatalf("ParseAnswers: %v", err)
	}
	score, err := ScoreQuiz(got)
	if err != nil {
		t.Fatalf("ScoreQuiz: %v", err)
	}
	if score != 32 {
		t.Fatalf("score=%d want 32", score)
	}

	bad := []any{"ten", 1, 1, 1, 1, 1, 1, 1, 1, 1}
	if _, err := ParseAnswers(bad); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("err=%v, want ErrInvalidFormat", err)
	}
	if _, err := ParseAnswers([]any{nil, 1, 1, 1, 1, 1, 1, 1, 1, 1}); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("nil answer: err=%v, want ErrInvalidFormat", err)
	}
	if _, err := ParseAnswers([]any{"NaN", 1, 1, 1, 1, 1, 1, 1, 1, 1}); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("NaN answer: err=%v, want ErrInvalidFormat", err)
	}
	if _, err := ParseAnswers([]any{"x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short submission: err=%v, want ErrInvalidInput", err)
	}
}

func TestQuestionsCatalog(t *testing.T) {
	qs, err := Questions()
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(qs) != QuizLength {
		t.Fatalf("want %d questions, got %d", QuizLength, len(qs))
	}
	var best float64
	for _, q := range qs {
		if q.ID == "" || q.Text == "" || len(q.Options) == 0 {
			t.Fatalf("incomplete question: %+v", q)
		}
		top := q.Options[0].Value
		for _, o := range q.Options {
			top = math.Max(top, o.Value)
		}
		best += top
	}
	if best != 100 {
		t.Fatalf("best possible total=%v, want 100", best)
	}
}
