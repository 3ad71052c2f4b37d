package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/pagelens/internal/chat"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
	Output string `yaml:"output" json:"output"`
	Export string `yaml:"export" json:"export"`

	LLM struct {
		BaseURL     string        `yaml:"base" json:"base"`
		Model       string        `yaml:"model" json:"model"`
		API         string        `yaml:"api" json:"api"`
		APIKey      string        `yaml:"key" json:"key"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		Temperature *float64      `yaml:"temperature" json:"temperature"`
		MaxTokens   int           `yaml:"maxTokens" json:"maxTokens"`
	} `yaml:"llm" json:"llm"`

	Extract struct {
		MaxChars     int           `yaml:"maxChars" json:"maxChars"`
		ImageTimeout time.Duration `yaml:"imageTimeout" json:"imageTimeout"`
		Screenshots  bool          `yaml:"screenshots" json:"screenshots"`
	} `yaml:"extract" json:"extract"`

	Raster struct {
		MaxWidth  int `yaml:"maxWidth" json:"maxWidth"`
		MaxHeight int `yaml:"maxHeight" json:"maxHeight"`
	} `yaml:"raster" json:"raster"`

	Browser struct {
		URL       string        `yaml:"url" json:"url"`
		ExecPath  string        `yaml:"execPath" json:"execPath"`
		Headful   bool          `yaml:"headful" json:"headful"`
		Timeout   time.Duration `yaml:"timeout" json:"timeout"`
		Width     int           `yaml:"width" json:"width"`
		Height    int           `yaml:"height" json:"height"`
		UserAgent string        `yaml:"userAgent" json:"userAgent"`
	} `yaml:"browser" json:"browser"`

	History struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"history" json:"history"`

	Serve struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"serve" json:"serve"`

	Bridge struct {
		URL string `yaml:"url" json:"url"`
	} `yaml:"bridge" json:"bridge"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default. Flags should already
// have been parsed; this lets the file supply defaults while preserving
// explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.ExportPath == "" && fc.Export != "" {
		cfg.ExportPath = fc.Export
	}

	if (cfg.LLMBaseURL == "" || cfg.LLMBaseURL == DefaultLLMBaseURL) && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if (cfg.LLMModel == "" || cfg.LLMModel == DefaultLLMModel) && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if (cfg.LLMAPI == "" || cfg.LLMAPI == DefaultLLMAPI) && fc.LLM.API != "" {
		cfg.LLMAPI = fc.LLM.API
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if (cfg.LLMTimeout == 0 || cfg.LLMTimeout == DefaultLLMTimeout) && fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = fc.LLM.Timeout
	}
	if (cfg.LLMTemperature == 0 || cfg.LLMTemperature == chat.DefaultTemperature) && fc.LLM.Temperature != nil {
		cfg.LLMTemperature = *fc.LLM.Temperature
	}
	if (cfg.LLMMaxTokens == 0 || cfg.LLMMaxTokens == chat.DefaultMaxTokens) && fc.LLM.MaxTokens > 0 {
		cfg.LLMMaxTokens = fc.LLM.MaxTokens
	}

	if cfg.MaxChars == 0 && fc.Extract.MaxChars > 0 {
		cfg.MaxChars = fc.Extract.MaxChars
	}
	if cfg.ImageTimeout == 0 && fc.Extract.ImageTimeout > 0 {
		cfg.ImageTimeout = fc.Extract.ImageTimeout
	}
	if !cfg.IncludeScreenshots && fc.Extract.Screenshots {
		cfg.IncludeScreenshots = true
	}

	if cfg.RasterMaxWidth == 0 && fc.Raster.MaxWidth > 0 {
		cfg.RasterMaxWidth = fc.Raster.MaxWidth
	}
	if cfg.RasterMaxHeight == 0 && fc.Raster.MaxHeight > 0 {
		cfg.RasterMaxHeight = fc.Raster.MaxHeight
	}

	if cfg.BrowserURL == "" && fc.Browser.URL != "" {
		cfg.BrowserURL = fc.Browser.URL
	}
	if cfg.BrowserExecPath == "" && fc.Browser.ExecPath != "" {
		cfg.BrowserExecPath = fc.Browser.ExecPath
	}
	if !cfg.BrowserHeadful && fc.Browser.Headful {
		cfg.BrowserHeadful = true
	}
	if (cfg.BrowserTimeout == 0 || cfg.BrowserTimeout == DefaultBrowserWait) && fc.Browser.Timeout > 0 {
		cfg.BrowserTimeout = fc.Browser.Timeout
	}
	if cfg.BrowserWidth == 0 && fc.Browser.Width > 0 {
		cfg.BrowserWidth = fc.Browser.Width
	}
	if cfg.BrowserHeight == 0 && fc.Browser.Height > 0 {
		cfg.BrowserHeight = fc.Browser.Height
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == DefaultUserAgent) && fc.Browser.UserAgent != "" {
		cfg.UserAgent = fc.Browser.UserAgent
	}

	if (cfg.HistoryDir == "" || cfg.HistoryDir == DefaultHistoryDir) && fc.History.Dir != "" {
		cfg.HistoryDir = fc.History.Dir
	}
	if cfg.HistoryMaxAge == 0 && fc.History.MaxAge > 0 {
		cfg.HistoryMaxAge = fc.History.MaxAge
	}
	if !cfg.HistoryStrictPerms && fc.History.StrictPerms {
		cfg.HistoryStrictPerms = true
	}

	if (cfg.ServeAddr == "" || cfg.ServeAddr == DefaultServeAddr) && fc.Serve.Addr != "" {
		cfg.ServeAddr = fc.Serve.Addr
	}
	if cfg.BridgeURL == "" && fc.Bridge.URL != "" {
		cfg.BridgeURL = fc.Bridge.URL
	}

	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
// needLLM is false for runs that never call the model.
func ValidateConfig(cfg Config, needLLM bool) error {
	if len(cfg.Targets) == 0 && trim(cfg.BridgeURL) == "" {
		return errors.New("config: a page URL or file is required")
	}
	for _, t := range cfg.Targets {
		if trim(t) == "" {
			return errors.New("config: empty page target")
		}
	}
	if needLLM {
		if trim(cfg.LLMModel) == "" {
			return errors.New("config: llm.model is required (or set LLM_MODEL)")
		}
		switch cfg.LLMAPI {
		case "", "ollama", "openai":
		default:
			return fmt.Errorf("config: llm.api must be ollama or openai, got %q", cfg.LLMAPI)
		}
		if _, err := url.Parse(cfg.LLMBaseURL); err != nil {
			return fmt.Errorf("config: llm.base: %w", err)
		}
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return errors.New("config: llm.temperature must be within [0, 2]")
	}
	if cfg.LLMMaxTokens < 0 || cfg.MaxChars < 0 || cfg.RasterMaxWidth < 0 || cfg.RasterMaxHeight < 0 ||
		cfg.BrowserWidth < 0 || cfg.BrowserHeight < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.ImageTimeout < 0 || cfg.LLMTimeout < 0 || cfg.BrowserTimeout < 0 || cfg.HistoryMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	return nil
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
