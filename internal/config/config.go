// Package config handles Mayordomo configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./mayordomo.yaml, ~/.config/mayordomo/config.yaml,
// /etc/mayordomo/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"mayordomo.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mayordomo", "config.yaml"))
	}

	paths = append(paths, "/etc/mayordomo/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Mayordomo configuration.
type Config struct {
	Agent         AgentConfig         `yaml:"agent"`
	LLM           LLMConfig           `yaml:"llm"`
	Database      DatabaseConfig      `yaml:"database"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Notifications NotificationsConfig `yaml:"notifications"`
	LogLevel      string              `yaml:"log_level"`
}

// AgentConfig defines the agent's identity and loop behavior.
type AgentConfig struct {
	Name        string  `yaml:"name"`        // Display name used in prompts and notifications
	Personality string  `yaml:"personality"` // Free-text personality fragment for the system prompt
	Language    string  `yaml:"language"`    // Response language code (default: "es")
	Model       string  `yaml:"model"`       // Model identifier sent to the backend
	Temperature float64 `yaml:"temperature"`
	// MaxContextMessages bounds the per-user conversation history.
	// Oldest entries are dropped once the bound is exceeded.
	MaxContextMessages int `yaml:"max_context_messages"`
}

// LLMConfig defines the chat-completions backend.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"` // OpenAI-compatible endpoint (default: OpenRouter)
	APIKey  string `yaml:"api_key"`
}

// DatabaseConfig selects and configures the persistence backend.
//
// Driver "sqlite" uses Path (process-local store). Driver "postgres"
// uses URL and is shared across machines — the agent on one host and
// the listener on another see the same rows.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite (default) or postgres
	Path   string `yaml:"path"`   // SQLite file path
	URL    string `yaml:"url"`    // Postgres connection string
}

// TelegramConfig defines the chat-bot front end.
type TelegramConfig struct {
	Token          string  `yaml:"token"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"` // Empty list allows nobody
	PollTimeoutSec int     `yaml:"poll_timeout_sec"` // Long-poll timeout (default 30)
}

// NotificationsConfig defines desktop notification behavior.
type NotificationsConfig struct {
	AppName string `yaml:"app_name"` // --app-name passed to notify-send
	Sound   bool   `yaml:"sound"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, when present, is loaded first so that ${VAR} references in
// the YAML expand against it.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit env vars still win because godotenv
	// never overwrites existing values.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:               "Mayordomo",
			Personality:        "profesional y proactivo",
			Language:           "es",
			Model:              "deepseek/deepseek-chat",
			Temperature:        0.7,
			MaxContextMessages: 20,
		},
		LLM: LLMConfig{
			BaseURL: "https://openrouter.ai/api/v1",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/mayordomo.db",
		},
		Telegram: TelegramConfig{
			PollTimeoutSec: 30,
		},
		Notifications: NotificationsConfig{
			AppName: "Mayordomo",
			Sound:   true,
		},
	}
}
