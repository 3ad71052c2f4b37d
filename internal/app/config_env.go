package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. It runs after the config file is applied and before explicit flags
// are restored. OLLAMA_HOST, the model server's own variable, loses to
// LLM_BASE_URL.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := ollamaHost(); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("LLM_API"); v != "" {
		cfg.LLMAPI = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("HISTORY_DIR"); v != "" {
		cfg.HistoryDir = v
	}
	if v := os.Getenv("CHROME_URL"); v != "" {
		cfg.BrowserURL = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		cfg.BrowserExecPath = v
	}
	if v := os.Getenv("BRIDGE_URL"); v != "" {
		cfg.BridgeURL = v
	}
	if v := os.Getenv("SERVE_ADDR"); v != "" {
		cfg.ServeAddr = v
	}

	if n, ok := envInt("MAX_CHARS"); ok {
		cfg.MaxChars = n
	}
	if n, ok := envInt("LLM_MAX_TOKENS"); ok {
		cfg.LLMMaxTokens = n
	}
	if f, ok := envFloat("LLM_TEMPERATURE"); ok {
		cfg.LLMTemperature = f
	}

	if d, ok := envDuration("LLM_TIMEOUT"); ok {
		cfg.LLMTimeout = d
	}
	if d, ok := envDuration("IMAGE_TIMEOUT"); ok {
		cfg.ImageTimeout = d
	}
	if d, ok := envDuration("BROWSER_TIMEOUT"); ok {
		cfg.BrowserTimeout = d
	}
	if d, ok := envDuration("HISTORY_MAX_AGE"); ok {
		cfg.HistoryMaxAge = d
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.IncludeScreenshots, "SCREENSHOTS")
	setBool(&cfg.HistoryStrictPerms, "HISTORY_STRICT_PERMS")
}

// ollamaHost reads OLLAMA_HOST, which may omit the scheme.
func ollamaHost() string {
	v := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	if v == "" {
		return ""
	}
	if !strings.Contains(v, "://") {
		v = "http://" + v
	}
	return v
}

func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}
