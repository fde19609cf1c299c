package storage

import "time"

// Event kinds.
const (
	KindTurn = "turn"
	KindQuiz = "quiz"
)

// Event is one audited change to a user's wellness score: either a
// classified conversation turn or a quiz submission. Symptom and reply
// text stay in the history ledger; the audit log only keeps outcomes.
// Events are expected to be appended in chronological order.
type Event struct {
	Timestamp        time.Time `json:"timestamp"`
	Kind             string    `json:"kind"`
	Username         string    `json:"username"`
	Severity         string    `json:"severity,omitempty"`
	ScoreBefore      int       `json:"score_before"`
	ScoreAfter       int       `json:"score_after"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	TotalTokens      int       `json:"total_tokens,omitempty"`
}

// Delta is the score change the event caused.
func (e Event) Delta() int { return e.ScoreAfter - e.ScoreBefore }

// Recorder abstracts persistence of audit events.
// LoadInteractions should return events in chronological order.
// AppendInteraction should atomically append a new event.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
