package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	unsetEnv(t, "FOO")
	unsetEnv(t, "BAR")
	unsetEnv(t, "BAZ")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nexport BAR=\"beta # kept\"\nBAZ=gamma # dropped\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}

	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta # kept" {
		t.Fatalf("BAR=%q, want quoted value", got)
	}
	if got := os.Getenv("BAZ"); got != "gamma" {
		t.Fatalf("BAZ=%q, want gamma", got)
	}
}

// Later files override earlier ones; missing files are skipped.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	unsetEnv(t, "K")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, filepath.Join(dir, "missing"), b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

// Values exported by the shell, even empty ones, win over the dotenv file.
func TestLoadEnvFiles_KeepsShellValues(t *testing.T) {
	t.Setenv("LLM_MODEL", "from-shell")
	t.Setenv("LLM_API", "")
	unsetEnv(t, "HISTORY_DIR")

	path := filepath.Join(t.TempDir(), ".env")
	content := "LLM_MODEL=from-dotenv\nLLM_API=openai\nHISTORY_DIR=/tmp/h\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	if err := LoadEnvFiles(path); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("LLM_MODEL"); got != "from-shell" {
		t.Fatalf("dotenv overrode shell value: LLM_MODEL=%q", got)
	}
	if got, ok := os.LookupEnv("LLM_API"); !ok || got != "" {
		t.Fatalf("dotenv overrode empty shell value: LLM_API=%q", got)
	}
	if got := os.Getenv("HISTORY_DIR"); got != "/tmp/h" {
		t.Fatalf("unset key not loaded: HISTORY_DIR=%q", got)
	}
}

func TestApplyEnvOverrides_OllamaHostAndTypedValues(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("OLLAMA_HOST", "10.0.0.5:11434")
	t.Setenv("HISTORY_DIR", "/tmp/pagelens-history")
	t.Setenv("MAX_CHARS", "8000")
	t.Setenv("IMAGE_TIMEOUT", "2s")
	t.Setenv("SCREENSHOTS", "yes")
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	cfg := Config{LLMModel: "llava", LLMMaxTokens: 1000}
	ApplyEnvOverrides(&cfg)
	if cfg.LLMBaseURL != "http://10.0.0.5:11434" {
		t.Fatalf("LLMBaseURL=%q, want scheme added to OLLAMA_HOST", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "llava" {
		t.Fatalf("unset env should keep model: %q", cfg.LLMModel)
	}
	if cfg.HistoryDir != "/tmp/pagelens-history" {
		t.Fatalf("HistoryDir=%q", cfg.HistoryDir)
	}
	if cfg.MaxChars != 8000 || cfg.ImageTimeout != 2*time.Second {
		t.Fatalf("MaxChars=%d ImageTimeout=%v", cfg.MaxChars, cfg.ImageTimeout)
	}
	if !cfg.IncludeScreenshots {
		t.Fatalf("SCREENSHOTS=yes should enable screenshots")
	}
	if cfg.LLMMaxTokens != 1000 {
		t.Fatalf("invalid LLM_MAX_TOKENS should be ignored, got %d", cfg.LLMMaxTokens)
	}
}

func TestApplyEnvOverrides_BeatsFileValues(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("LLM_BASE_URL", "http://gpu-box:11434")
	t.Setenv("LLM_API", "OpenAI")
	t.Setenv("SCREENSHOTS", "off")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	cfg := Config{LLMBaseURL: "http://from-file", LLMAPI: "ollama", IncludeScreenshots: true, LLMTemperature: 0.9}
	ApplyEnvOverrides(&cfg)
	if cfg.LLMBaseURL != "http://gpu-box:11434" || cfg.LLMAPI != "openai" {
		t.Fatalf("env did not override: %+v", cfg)
	}
	if cfg.IncludeScreenshots {
		t.Fatalf("SCREENSHOTS=off should disable screenshots")
	}
	if cfg.LLMTemperature != 0.2 {
		t.Fatalf("LLMTemperature=%v, want 0.2", cfg.LLMTemperature)
	}
}
