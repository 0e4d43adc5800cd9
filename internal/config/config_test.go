package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "sk-or-abc123")

	dir := t.TempDir()
	path := filepath.Join(dir, "mayordomo.yaml")
	yaml := `
agent:
  name: Teresa
  language: en
llm:
  api_key: ${TEST_OPENROUTER_KEY}
database:
  driver: postgres
  url: postgres://localhost/mayordomo
telegram:
  allowed_user_ids: [12345, 67890]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Agent.Name != "Teresa" {
		t.Errorf("Agent.Name = %q, want Teresa", cfg.Agent.Name)
	}
	if cfg.LLM.APIKey != "sk-or-abc123" {
		t.Errorf("LLM.APIKey = %q, want expanded env value", cfg.LLM.APIKey)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if len(cfg.Telegram.AllowedUserIDs) != 2 || cfg.Telegram.AllowedUserIDs[0] != 12345 {
		t.Errorf("AllowedUserIDs = %v", cfg.Telegram.AllowedUserIDs)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mayordomo.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Agent.MaxContextMessages != 20 {
		t.Errorf("MaxContextMessages = %d, want default 20", cfg.Agent.MaxContextMessages)
	}
	if cfg.Agent.Language != "es" {
		t.Errorf("Language = %q, want default es", cfg.Agent.Language)
	}
	if cfg.LLM.BaseURL == "" {
		t.Error("BaseURL default missing")
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"TRACE", LevelTrace, false},
		{"Debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range tests {
		got, err := ParseLogLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLogLevel(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
