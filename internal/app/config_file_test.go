package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFile_YAMLAndApply(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "pagelens.yaml")
	yml := strings.Join([]string{
		"llm:",
		"  base: http://gpu-box:11434",
		"  model: gemma3",
		"  temperature: 0",
		"  maxTokens: 1024",
		"extract:",
		"  maxChars: 9000",
		"  imageTimeout: 3s",
		"history:",
		"  dir: /var/lib/pagelens",
		"serve:",
		"  addr: 0.0.0.0:9000",
		"",
	}, "\n")
	if err := os.WriteFile(p, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Flag defaults are replaced; an explicit flag value survives.
	cfg := Config{
		LLMBaseURL:     DefaultLLMBaseURL,
		LLMModel:       "qwen2.5",
		LLMTemperature: 0.7,
		HistoryDir:     DefaultHistoryDir,
		ServeAddr:      DefaultServeAddr,
	}
	ApplyFileConfig(&cfg, fc)
	if cfg.LLMBaseURL != "http://gpu-box:11434" {
		t.Fatalf("LLMBaseURL=%q", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "qwen2.5" {
		t.Fatalf("explicit model overwritten: %q", cfg.LLMModel)
	}
	if cfg.LLMTemperature != 0 || cfg.LLMMaxTokens != 1024 {
		t.Fatalf("temperature=%v maxTokens=%d", cfg.LLMTemperature, cfg.LLMMaxTokens)
	}
	if cfg.MaxChars != 9000 || cfg.ImageTimeout != 3*time.Second {
		t.Fatalf("MaxChars=%d ImageTimeout=%v", cfg.MaxChars, cfg.ImageTimeout)
	}
	if cfg.HistoryDir != "/var/lib/pagelens" || cfg.ServeAddr != "0.0.0.0:9000" {
		t.Fatalf("HistoryDir=%q ServeAddr=%q", cfg.HistoryDir, cfg.ServeAddr)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "pagelens.json")
	if err := os.WriteFile(p, []byte(`{"llm":{"api":"openai","key":"sk-test"},"raster":{"maxWidth":800}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var cfg Config
	ApplyFileConfig(&cfg, fc)
	if cfg.LLMAPI != "openai" || cfg.LLMAPIKey != "sk-test" || cfg.RasterMaxWidth != 800 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	good := Config{Targets: []string{"page.html"}, LLMModel: "llava", LLMAPI: "ollama"}
	if err := ValidateConfig(good, true); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := map[string]Config{
		"no target":     {LLMModel: "llava"},
		"no model":      {Targets: []string{"page.html"}},
		"bad api":       {Targets: []string{"page.html"}, LLMModel: "llava", LLMAPI: "grpc"},
		"hot":           {Targets: []string{"page.html"}, LLMModel: "llava", LLMTemperature: 3},
		"negative cap":  {Targets: []string{"page.html"}, LLMModel: "llava", MaxChars: -1},
		"negative wait": {Targets: []string{"page.html"}, LLMModel: "llava", ImageTimeout: -time.Second},
	}
	for name, cfg := range cases {
		if err := ValidateConfig(cfg, true); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := ValidateConfig(Config{Targets: []string{"page.html"}}, false); err != nil {
		t.Fatalf("model should not be required without LLM: %v", err)
	}
	if err := ValidateConfig(Config{BridgeURL: "http://127.0.0.1:8787"}, false); err != nil {
		t.Fatalf("bridge URL should stand in for targets: %v", err)
	}
}
