package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Bind != "127.0.0.1" || cfg.Server.Port != 37710 {
		t.Errorf("server defaults = %s:%d", cfg.Server.Bind, cfg.Server.Port)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("provider = %s, want ollama", cfg.LLM.Provider)
	}
	if cfg.Chat.WindowDays != 30 || cfg.Chat.JournalLimit != 5 {
		t.Errorf("chat defaults = %+v", cfg.Chat)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 37710 {
		t.Errorf("missing file should return defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoadOverlay(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9999
llm:
  provider: openai
  openai_key: file-key
chat:
  window_days: 14
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("bind = %s, unset keys should keep defaults", cfg.Server.Bind)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.OpenAIKey != "file-key" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Chat.WindowDays != 14 || cfg.Chat.JournalLimit != 5 {
		t.Errorf("chat = %+v", cfg.Chat)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: ollama\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.AnthropicKey != "env-key" {
		t.Errorf("env should win: %+v", cfg.LLM)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.ListenAddr(); got != "127.0.0.1:37710" {
		t.Errorf("ListenAddr = %s", got)
	}
}
