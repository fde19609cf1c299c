package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository stores the ledger as one JSON document.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileRepository{path: path}, nil
}

func (r *FileRepository) Load() (Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *FileRepository) Save(l Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveUnlocked(l)
}

func (r *FileRepository) Update(fn func(*Ledger) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	if err := fn(&l); err != nil {
		return err
	}
	return r.saveUnlocked(l)
}

func (r *FileRepository) loadUnlocked() (Ledger, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return Ledger{}, fmt.Errorf("read ledger: %w", err)
	}
	l := Ledger{Records: []Record{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return l, nil
	}
	if err := json.Unmarshal(data, &l); err != nil {
		return Ledger{}, fmt.Errorf("decode ledger: %w", err)
	}
	if l.Records == nil {
		l.Records = []Record{}
	}
	return l, nil
}

func (r *FileRepository) saveUnlocked(l Ledger) error {
	if l.Records == nil {
		l.Records = []Record{}
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
