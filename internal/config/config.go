package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type StoreBackend string

const (
	BackendFile     StoreBackend = "file"
	BackendSQLite   StoreBackend = "sqlite"
	BackendPostgres StoreBackend = "postgres"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":5000"`

	// Storage
	StoreBackend    StoreBackend `env:"STORE_BACKEND" envDefault:"file"`
	UsersFilePath   string       `env:"USERS_FILE_PATH" envDefault:"data/auth.json"`
	HistoryFilePath string       `env:"HISTORY_FILE_PATH" envDefault:"data/history.json"`
	SQLitePath      string       `env:"SQLITE_PATH" envDefault:"data/arogya.db"`
	DatabaseURL     string       `env:"DATABASE_URL"`
	HistoryLimit    int          `env:"HISTORY_LIMIT" envDefault:"20"`
	AuditLogPath    string       `env:"AUDIT_LOG_PATH" envDefault:"logs/consultations.jsonl"`

	// Sessions
	SessionDBPath string        `env:"SESSION_DB_PATH" envDefault:"data/sessions.bolt"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// LLM settings
	LLMProvider      LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gemini-2.5-flash"`
	YandexOAuthToken string        `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string        `env:"YANDEX_FOLDER_ID"`
	AITimeout        time.Duration `env:"AI_TIMEOUT" envDefault:"15s"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`

	// Hospital lookup
	OverpassURL          string        `env:"OVERPASS_URL" envDefault:"https://overpass-api.de/api/interpreter"`
	HospitalRadiusMeters int           `env:"HOSPITAL_RADIUS_METERS" envDefault:"5000"`
	LookupTimeout        time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"10s"`

	// MCP over SSE, used by triage-mcp-http-server
	MCPHTTPAddr string `env:"MCP_HTTP_ADDR" envDefault:":8082"`

	// Reports
	ReportSchedule string `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`

	// Telegram front-end, disabled when empty
	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAdminChatID int64  `env:"TELEGRAM_ADMIN_CHAT_ID"`
	PendingQuizPath     string `env:"PENDING_QUIZ_PATH" envDefault:"data/pending_quizzes.json"`
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Load parses and validates the environment without exiting.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderYandex:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}
	if c.HospitalRadiusMeters <= 0 {
		return fmt.Errorf("HOSPITAL_RADIUS_METERS must be positive")
	}
	return nil
}
