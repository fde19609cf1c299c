// Package app assembles stores and services from configuration. It is
// shared by the server, the MCP server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"arogya/internal/auth"
	"arogya/internal/config"
	"arogya/internal/history"
	"arogya/internal/hospitals"
	"arogya/internal/llm"
	"arogya/internal/sqlstore"
	"arogya/internal/storage"
	"arogya/internal/triage"
)

// ErrStoreLocked means another process already serves the file backend.
var ErrStoreLocked = errors.New("file store in use")

type App struct {
	Config   *config.Config
	Users    *auth.Service
	History  *history.Manager
	Recorder *storage.FileRecorder
	Triage   *triage.Service

	closers []func() error
}

// Open builds the application. Callers must Close it.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	userRepo, histRepo, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.Users, err = auth.NewWithRepo(userRepo); err != nil {
		a.Close()
		return nil, err
	}
	if a.History, err = history.NewManager(histRepo, cfg.HistoryLimit); err != nil {
		a.Close()
		return nil, err
	}
	if a.Recorder, err = storage.NewFileRecorder(cfg.AuditLogPath); err != nil {
		a.Close()
		return nil, fmt.Errorf("audit log: %w", err)
	}

	client, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		a.Close()
		return nil, err
	}
	if u, ok := client.(llm.Unconfigured); ok {
		log.Printf("⚠️ AI provider not configured: %s", u.Reason)
	}

	prompt, err := loadPrompt(cfg.SystemPromptPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Triage, err = triage.New(triage.Config{
		Accounts:     a.Users,
		Ledger:       a.History,
		LLM:          client,
		Recorder:     a.Recorder,
		Hospitals:    hospitals.NewClient(cfg.OverpassURL, cfg.HospitalRadiusMeters, cfg.LookupTimeout),
		SystemPrompt: prompt,
		AITimeout:    cfg.AITimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context) (auth.Repository, history.Repository, error) {
	cfg := a.Config
	switch cfg.StoreBackend {
	case config.BackendFile:
		if err := a.lockFileBackend(cfg.UsersFilePath + ".lock"); err != nil {
			return nil, nil, err
		}
		users, err := auth.NewFileRepository(cfg.UsersFilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("users file: %w", err)
		}
		hist, err := history.NewFileRepository(cfg.HistoryFilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("history file: %w", err)
		}
		log.Printf("💾 Using file storage: %s, %s", cfg.UsersFilePath, cfg.HistoryFilePath)
		return users, hist, nil
	case config.BackendSQLite, config.BackendPostgres:
		dialect, dsn := sqlstore.SQLite, cfg.SQLitePath
		if cfg.StoreBackend == config.BackendPostgres {
			dialect, dsn = sqlstore.Postgres, cfg.DatabaseURL
		}
		db, err := sqlstore.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		log.Printf("💾 Using %s storage", dialect)
		return sqlstore.NewUserRepository(db), sqlstore.NewHistoryRepository(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// lockFileBackend holds an exclusive lock for the life of the app. The JSON
// stores only serialize writers inside one process.
func (a *App) lockFileBackend(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("lock dir: %w", err)
	}
	lock, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("%w: %s is held by another process (use STORE_BACKEND=sqlite or postgres to share data between processes): %v", ErrStoreLocked, path, err)
	}
	a.closers = append(a.closers, lock.Close)
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("⚠️ close: %v", err)
		}
	}
	a.closers = nil
}

func loadPrompt(path string) (string, error) {
	if path == "" {
		return triage.SystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ System prompt file %s not found, using built-in prompt", path)
		return triage.SystemPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	if p := strings.TrimSpace(string(data)); p != "" {
		return p, nil
	}
	return triage.SystemPrompt, nil
}
