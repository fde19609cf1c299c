package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != BackendFile || cfg.HistoryLimit != 20 || cfg.AITimeout != 15*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.OpenAIModel != "gemini-2.5-flash" || cfg.HospitalRadiusMeters != 5000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("HISTORY_LIMIT", "5")
	t.Setenv("AI_TIMEOUT", "3s")
	t.Setenv("LLM_PROVIDER", "yandex")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != BackendSQLite || cfg.HistoryLimit != 5 || cfg.AITimeout != 3*time.Second || cfg.LLMProvider != ProviderYandex {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without url": {"STORE_BACKEND": "postgres"},
		"unknown backend":      {"STORE_BACKEND": "redis"},
		"unknown provider":     {"LLM_PROVIDER": "gemini-native"},
		"zero limit":           {"HISTORY_LIMIT": "0"},
		"bad duration":         {"AI_TIMEOUT": "soon"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidatePostgres(t *testing.T) {
	cfg := &Config{StoreBackend: BackendPostgres, LLMProvider: ProviderOpenAI, HistoryLimit: 20, AITimeout: time.Second, HospitalRadiusMeters: 1}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("err=%v", err)
	}
	cfg.DatabaseURL = "postgres://localhost/arogya"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
