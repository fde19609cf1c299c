// Package wellness holds the pure rules behind the wellness score: bounds,
// severity classification, per-turn transitions, quiz scoring and the
// quiz/chat navigation gate. Nothing here touches storage.
package wellness

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinScore = 0
	MaxScore = 100
)

var (
	// ErrInvalidArgument is returned for non-finite score input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidInput is returned when the quiz answer count is wrong.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidFormat is returned when a quiz answer is not a number.
	ErrInvalidFormat = errors.New("invalid format")
)

// Clamp rounds value half-to-even and bounds it to [MinScore, MaxScore].
func Clamp(value float64) (int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: score %v is not finite", ErrInvalidArgument, value)
	}
	r := math.RoundToEven(value)
	if r < MinScore {
		return MinScore, nil
	}
	if r > MaxScore {
		return MaxScore, nil
	}
	return int(r), nil
}

// ClampInt bounds an integer score. It cannot fail.
func ClampInt(value int) int {
	if value < MinScore {
		return MinScore
	}
	if value > MaxScore {
		return MaxScore
	}
	return value
}

// Delta is the score adjustment applied for a severity tier.
func Delta(s Severity) int {
	switch s {
	case SeverityNormal:
		return 15
	case SeverityMild:
		return -5
	case SeveritySerious:
		return -15
	default:
		return 0
	}
}

// Transition applies the tier's delta to current and clamps the result.
func Transition(current int, s Severity) int {
	return ClampInt(current + Delta(s))
}

// NeedsQuiz reports whether a stored score routes the user to the quiz.
// A score of exactly zero is treated as "not yet scored", which also
// catches users driven to zero through conversation.
func NeedsQuiz(score int) bool {
	return score == 0
}
