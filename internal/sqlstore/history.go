package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"arogya/internal/history"
	"arogya/internal/wellness"
)

// HistoryRepository implements history.Repository. Ledger order is the
// seq column; AppendPruned applies the retention rule in SQL.
type HistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *HistoryRepository { return &HistoryRepository{db: db} }

func (r *HistoryRepository) Load() (history.Ledger, error) {
	ctx := context.Background()
	var l history.Ledger
	if err := r.db.sql.QueryRowContext(ctx, `SELECT health_score FROM ledger_meta WHERE id = 1`).Scan(&l.HealthScore); err != nil {
		return history.Ledger{}, fmt.Errorf("load ledger score: %w", err)
	}
	recs, err := loadRecords(ctx, r.db.sql)
	if err != nil {
		return history.Ledger{}, err
	}
	l.Records = recs
	return l, nil
}

func (r *HistoryRepository) Save(l history.Ledger) error {
	ctx := context.Background()
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.lockLedger(ctx, tx); err != nil {
			return err
		}
		return r.replace(ctx, tx, l)
	})
}

func (r *HistoryRepository) Update(fn func(*history.Ledger) error) error {
	ctx := context.Background()
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		score, err := r.lockLedger(ctx, tx)
		if err != nil {
			return err
		}
		recs, err := loadRecords(ctx, tx)
		if err != nil {
			return err
		}
		l := history.Ledger{HealthScore: score, Records: recs}
		if err := fn(&l); err != nil {
			return err
		}
		return r.replace(ctx, tx, l)
	})
}

// AppendPruned inserts rec at the end of the ledger. When the user then
// holds more than limit records, the oldest are deleted and the rest are
// moved behind every other record.
func (r *HistoryRepository) AppendPruned(rec history.Record, limit int) error {
	ctx := context.Background()
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.lockLedger(ctx, tx); err != nil {
			return err
		}
		top, err := maxSeq(ctx, tx)
		if err != nil {
			return err
		}
		if err := r.insert(ctx, tx, top+1, rec); err != nil {
			return err
		}
		if limit <= 0 {
			return nil
		}

		var count int
		if err := tx.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM history_records WHERE username = ?`), rec.Username).Scan(&count); err != nil {
			return fmt.Errorf("count records: %w", err)
		}
		if count <= limit {
			return nil
		}
		_, err = tx.ExecContext(ctx, r.db.rebind(`DELETE FROM history_records WHERE username = ? AND seq NOT IN (
			SELECT seq FROM history_records WHERE username = ? ORDER BY seq DESC LIMIT ?)`),
			rec.Username, rec.Username, limit)
		if err != nil {
			return fmt.Errorf("prune records: %w", err)
		}
		return r.moveToEnd(ctx, tx, rec.Username, top+2)
	})
}

// moveToEnd renumbers username's records, oldest first, to base, base+1, ...
// base must exceed every seq in the table so no update collides.
func (r *HistoryRepository) moveToEnd(ctx context.Context, tx *sql.Tx, username string, base int64) error {
	rows, err := tx.QueryContext(ctx, r.db.rebind(`SELECT seq FROM history_records WHERE username = ? ORDER BY seq`), username)
	if err != nil {
		return fmt.Errorf("reorder records: %w", err)
	}
	var seqs []int64
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			rows.Close()
			return fmt.Errorf("reorder records: %w", err)
		}
		seqs = append(seqs, seq)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reorder records: %w", err)
	}
	for i, seq := range seqs {
		if _, err := tx.ExecContext(ctx, r.db.rebind(`UPDATE history_records SET seq = ? WHERE seq = ?`), base+int64(i), seq); err != nil {
			return fmt.Errorf("reorder records: %w", err)
		}
	}
	return nil
}

func (r *HistoryRepository) lockLedger(ctx context.Context, tx *sql.Tx) (int, error) {
	var score int
	if err := tx.QueryRowContext(ctx, `SELECT health_score FROM ledger_meta WHERE id = 1`+r.db.forUpdate()).Scan(&score); err != nil {
		return 0, fmt.Errorf("lock ledger: %w", err)
	}
	return score, nil
}

func (r *HistoryRepository) replace(ctx context.Context, tx *sql.Tx, l history.Ledger) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM history_records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	for i, rec := range l.Records {
		if err := r.insert(ctx, tx, int64(i+1), rec); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, r.db.rebind(`UPDATE ledger_meta SET health_score = ? WHERE id = 1`), wellness.ClampInt(l.HealthScore)); err != nil {
		return fmt.Errorf("save ledger score: %w", err)
	}
	return nil
}

func (r *HistoryRepository) insert(ctx context.Context, tx *sql.Tx, seq int64, rec history.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, r.db.rebind(`INSERT INTO history_records (seq, id, username, symptom, reply, severity, date) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		seq, rec.ID, rec.Username, rec.Symptom, rec.Reply, string(rec.Severity), rec.Date)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

type rowsQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRecords(ctx context.Context, q rowsQueryer) ([]history.Record, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, username, symptom, reply, severity, date FROM history_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	recs := []history.Record{}
	for rows.Next() {
		var rec history.Record
		var sev string
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.Symptom, &rec.Reply, &sev, &rec.Date); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Severity = wellness.Severity(sev)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func maxSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	var top int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM history_records`).Scan(&top); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return top, nil
}
