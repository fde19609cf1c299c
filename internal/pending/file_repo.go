// Package pending keeps quizzes that a chat has started but not finished,
// so a half-answered quiz survives a bot restart.
package pending

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Quiz is one chat's answers so far, in question order.
type Quiz struct {
	ChatID   int64     `json:"chat_id"`
	Username string    `json:"username"`
	Answers  []float64 `json:"answers"`
	Started  string    `json:"started"`
}

type Repository interface {
	LoadAll() ([]Quiz, error)
	Get(chatID int64) (Quiz, bool, error)
	Upsert(q Quiz) error
	Remove(chatID int64) error
}

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

func (r *FileRepository) LoadAll() ([]Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *FileRepository) Get(chatID int64) (Quiz, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quizzes, err := r.loadUnlocked()
	if err != nil {
		return Quiz{}, false, err
	}
	for _, q := range quizzes {
		if q.ChatID == chatID {
			return q, true, nil
		}
	}
	return Quiz{}, false, nil
}

func (r *FileRepository) Upsert(q Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quizzes, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	updated := false
	for i, existing := range quizzes {
		if existing.ChatID == q.ChatID {
			quizzes[i] = q
			updated = true
			break
		}
	}
	if !updated {
		quizzes = append(quizzes, q)
	}
	return r.saveUnlocked(quizzes)
}

func (r *FileRepository) Remove(chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quizzes, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	out := quizzes[:0]
	for _, q := range quizzes {
		if q.ChatID != chatID {
			out = append(out, q)
		}
	}
	return r.saveUnlocked(out)
}

func (r *FileRepository) loadUnlocked() ([]Quiz, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	var quizzes []Quiz
	if err := json.NewDecoder(f).Decode(&quizzes); err != nil {
		if err == io.EOF {
			return []Quiz{}, nil
		}
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return quizzes, nil
}

func (r *FileRepository) saveUnlocked(quizzes []Quiz) error {
	tmp := r.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(quizzes); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
