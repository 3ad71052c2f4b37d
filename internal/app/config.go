package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Targets are the pages to read: URLs rendered in the browser or local
	// HTML files. More than one target forms a multi-page chat context.
	Targets []string
	// OutputPath receives the extracted snapshot as JSON. Empty means stdout.
	OutputPath string
	// ExportPath receives the chat transcript; ".pdf" selects PDF output,
	// anything else Markdown.
	ExportPath string

	IncludeScreenshots bool

	// LLM
	LLMBaseURL     string
	LLMModel       string
	LLMAPI         string // "ollama" or "openai"
	LLMAPIKey      string
	LLMTimeout     time.Duration
	LLMTemperature float64
	LLMMaxTokens   int

	// Extraction
	MaxChars     int
	ImageTimeout time.Duration

	// Raster bounds
	RasterMaxWidth  int
	RasterMaxHeight int

	// Browser
	BrowserURL      string // remote DevTools endpoint; empty launches Chrome
	BrowserExecPath string
	BrowserHeadful  bool
	BrowserTimeout  time.Duration
	BrowserWidth    int
	BrowserHeight   int
	UserAgent       string

	// History
	HistoryDir         string
	HistoryMaxAge      time.Duration
	HistoryStrictPerms bool

	// Bridge
	ServeAddr string
	// BridgeURL points at a running bridge server; when set the run
	// extracts through it instead of opening pages itself.
	BridgeURL string

	Verbose bool
}

// Defaults shared by flag parsing and the file overlay.
const (
	DefaultLLMBaseURL  = "http://localhost:11434"
	DefaultLLMModel    = "llava"
	DefaultLLMAPI      = "ollama"
	DefaultLLMTimeout  = 120 * time.Second
	DefaultHistoryDir  = ".pagelens-history"
	DefaultServeAddr   = "127.0.0.1:8787"
	DefaultUserAgent   = "pagelens/1.0 (+https://github.com/hyperifyio/pagelens)"
	DefaultBrowserWait = 30 * time.Second
)
