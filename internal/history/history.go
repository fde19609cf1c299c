package history

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"arogya/internal/wellness"
)

// DefaultLimit is the number of records retained per user.
const DefaultLimit = 20

// DateLayout is the timestamp format stored in Record.Date.
const DateLayout = "2006-01-02 15:04"

// Record is one classified conversation turn. Records are never edited
// once appended.
type Record struct {
	ID       string            `json:"id,omitempty"`
	Username string            `json:"username"`
	Symptom  string            `json:"symptom"`
	Reply    string            `json:"reply"`
	Severity wellness.Severity `json:"severity"`
	Date     string            `json:"date"`
}

// Ledger is the shared history document. HealthScore mirrors the most
// recent quiz result of whichever user submitted it last.
type Ledger struct {
	HealthScore int      `json:"health_score"`
	Records     []Record `json:"records"`
}

// Repository loads and replaces the whole ledger. Update must apply fn
// and persist the result without another writer interleaving.
type Repository interface {
	Load() (Ledger, error)
	Save(l Ledger) error
	Update(fn func(*Ledger) error) error
}

func NewRecord(username, symptom, reply string, sev wellness.Severity, at time.Time) Record {
	return Record{
		ID:       uuid.NewString(),
		Username: username,
		Symptom:  symptom,
		Reply:    reply,
		Severity: sev,
		Date:     at.Format(DateLayout),
	}
}

// AppendAndPrune appends rec and caps rec.Username's records at limit.
// When the cap is exceeded the ledger is rebuilt as every other user's
// records in their original order followed by the user's newest limit
// records, so the user's block moves to the end. Under the cap nothing
// is reordered. The input ledger is not modified.
func AppendAndPrune(l Ledger, rec Record, limit int) Ledger {
	records := make([]Record, 0, len(l.Records)+1)
	records = append(records, l.Records...)
	records = append(records, rec)

	var mine, others []Record
	for _, r := range records {
		if r.Username == rec.Username {
			mine = append(mine, r)
		} else {
			others = append(others, r)
		}
	}
	if limit <= 0 || len(mine) <= limit {
		return Ledger{HealthScore: l.HealthScore, Records: records}
	}
	mine = mine[len(mine)-limit:]
	merged := make([]Record, 0, len(others)+len(mine))
	merged = append(merged, others...)
	merged = append(merged, mine...)
	return Ledger{HealthScore: l.HealthScore, Records: merged}
}

// ForUser returns username's records in ledger order.
func (l Ledger) ForUser(username string) []Record {
	var out []Record
	for _, r := range l.Records {
		if r.Username == username {
			out = append(out, r)
		}
	}
	return out
}

// Appender is implemented by repositories that apply the retention rule
// themselves, with the same result as AppendAndPrune.
type Appender interface {
	AppendPruned(rec Record, limit int) error
}

// Manager applies the retention policy on top of a Repository.
type Manager struct {
	repo  Repository
	limit int
}

func NewManager(repo Repository, limit int) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("history: nil repository")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{repo: repo, limit: limit}, nil
}

func (m *Manager) Limit() int { return m.limit }

// Append adds rec to the ledger and prunes rec.Username's records.
func (m *Manager) Append(rec Record) error {
	if a, ok := m.repo.(Appender); ok {
		return a.AppendPruned(rec, m.limit)
	}
	return m.repo.Update(func(l *Ledger) error {
		*l = AppendAndPrune(*l, rec, m.limit)
		return nil
	})
}

// SetGlobalScore overwrites the ledger's quiz score mirror.
func (m *Manager) SetGlobalScore(score int) error {
	return m.repo.Update(func(l *Ledger) error {
		l.HealthScore = wellness.ClampInt(score)
		return nil
	})
}

func (m *Manager) ForUser(username string) ([]Record, error) {
	l, err := m.repo.Load()
	if err != nil {
		return nil, err
	}
	return l.ForUser(username), nil
}

func (m *Manager) Load() (Ledger, error) { return m.repo.Load() }
