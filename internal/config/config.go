package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all ritual configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Chat     ChatConfig     `yaml:"chat"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	Provider      string `yaml:"provider"` // "anthropic", "openai", "ollama"
	Model         string `yaml:"model"`
	AnthropicKey  string `yaml:"anthropic_key"`
	OpenAIKey     string `yaml:"openai_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OllamaURL     string `yaml:"ollama_url"`
	OllamaModel   string `yaml:"ollama_model"`
}

// ChatConfig tunes context assembly for the assistant.
type ChatConfig struct {
	WindowDays   int `yaml:"window_days"`   // deep-dive history window
	JournalLimit int `yaml:"journal_limit"` // max journal matches retrieved
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37710,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider: "ollama",
		},
		Chat: ChatConfig{
			WindowDays:   30,
			JournalLimit: 5,
		},
	}
}

// DefaultPath returns the default config location: ~/.ritual/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".ritual", "config.yaml"), nil
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; the defaults are returned as-is. API keys from the environment
// override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.AnthropicKey == "" {
		cfg.LLM.Provider = "openai"
		cfg.LLM.OpenAIKey = key
	}

	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
