package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagelens/internal/app"
	"github.com/hyperifyio/pagelens/internal/chat"
	"github.com/hyperifyio/pagelens/internal/llm"
)

const usage = `usage: pagelens [flags] <mode> [page ...]

modes:
  extract   print a JSON snapshot of the page
  ask       chat about the page(s); -q asks once, otherwise one question per stdin line
  serve     run the bridge server for the page

pages are http(s) URLs rendered in Chrome or local HTML files.

flags:
`

var errUsage = errors.New("usage")

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var opts options
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	registerFlags(flag.CommandLine, &opts)
	flag.Parse()

	if opts.showVersion {
		fmt.Println(app.VersionString())
		return
	}

	if err := app.LoadEnvFiles(strings.Split(opts.envFiles, ",")...); err != nil {
		log.Warn().Err(err).Msg("loading env files failed")
	}
	// Precedence: flags > env > config file > defaults.
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	cfg := opts.cfg
	flagged := cfg
	if opts.configPath != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", opts.configPath).Msg("config file")
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	restoreFlags(&cfg, flagged, explicit)

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cfg.Targets = args[1:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args[0], cfg, opts.question, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

// options holds everything the command line sets.
type options struct {
	configPath  string
	envFiles    string
	question    string
	showVersion bool
	cfg         app.Config
}

// cliOnly names flags that do not map onto app.Config.
var cliOnly = map[string]bool{"config": true, "env": true, "q": true, "version": true}

func registerFlags(fs *flag.FlagSet, o *options) {
	fs.StringVar(&o.configPath, "config", os.Getenv("PAGELENS_CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&o.envFiles, "env", ".env", "Comma-separated dotenv files to load")
	fs.StringVar(&o.question, "q", "", "Question to ask (ask mode)")
	fs.StringVar(&o.cfg.OutputPath, "o", "", "Write the snapshot here instead of stdout (extract mode)")
	fs.StringVar(&o.cfg.ExportPath, "export", "", "Export the chat to this .md or .pdf file, or into this directory (ask mode)")
	fs.BoolVar(&o.cfg.IncludeScreenshots, "screenshots", false, "Capture charts, images and the viewport")
	fs.StringVar(&o.cfg.LLMBaseURL, "llm.base", app.DefaultLLMBaseURL, "Model server base URL")
	fs.StringVar(&o.cfg.LLMModel, "llm.model", app.DefaultLLMModel, "Model name")
	fs.StringVar(&o.cfg.LLMAPI, "llm.api", app.DefaultLLMAPI, "Model server API: ollama or openai")
	fs.StringVar(&o.cfg.LLMAPIKey, "llm.key", "", "API key for an OpenAI-compatible server")
	fs.DurationVar(&o.cfg.LLMTimeout, "llm.timeout", app.DefaultLLMTimeout, "Timeout for one model request")
	fs.Float64Var(&o.cfg.LLMTemperature, "llm.temperature", chat.DefaultTemperature, "Sampling temperature")
	fs.IntVar(&o.cfg.LLMMaxTokens, "llm.maxTokens", chat.DefaultMaxTokens, "Maximum tokens in a reply")
	fs.IntVar(&o.cfg.MaxChars, "extract.maxChars", 0, "Cap on extracted text length (0 uses the default)")
	fs.DurationVar(&o.cfg.ImageTimeout, "extract.imageTimeout", 0, "Timeout for one image capture (0 uses the default)")
	fs.IntVar(&o.cfg.RasterMaxWidth, "raster.maxWidth", 0, "Maximum screenshot width (0 uses the default)")
	fs.IntVar(&o.cfg.RasterMaxHeight, "raster.maxHeight", 0, "Maximum screenshot height (0 uses the default)")
	fs.StringVar(&o.cfg.BrowserURL, "browser.url", "", "DevTools URL of a running Chrome; empty launches one")
	fs.StringVar(&o.cfg.BrowserExecPath, "browser.exec", "", "Chrome executable to launch")
	fs.BoolVar(&o.cfg.BrowserHeadful, "browser.headful", false, "Show the browser window")
	fs.DurationVar(&o.cfg.BrowserTimeout, "browser.timeout", app.DefaultBrowserWait, "Page load timeout")
	fs.IntVar(&o.cfg.BrowserWidth, "browser.width", 0, "Viewport width")
	fs.IntVar(&o.cfg.BrowserHeight, "browser.height", 0, "Viewport height")
	fs.StringVar(&o.cfg.UserAgent, "browser.userAgent", app.DefaultUserAgent, "User-Agent for the browser and image fetches")
	fs.StringVar(&o.cfg.HistoryDir, "history.dir", app.DefaultHistoryDir, "Chat history directory (empty disables)")
	fs.DurationVar(&o.cfg.HistoryMaxAge, "history.maxAge", 0, "Purge chat history older than this; 0 keeps everything")
	fs.BoolVar(&o.cfg.HistoryStrictPerms, "history.strictPerms", false, "Restrict history permissions (0700 dirs, 0600 files)")
	fs.StringVar(&o.cfg.ServeAddr, "serve.addr", app.DefaultServeAddr, "Bridge listen address (serve mode)")
	fs.StringVar(&o.cfg.BridgeURL, "bridge.url", "", "Extract through a running bridge server instead of opening pages")
	fs.BoolVar(&o.cfg.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
}

// restoreFlags puts back values given explicitly on the command line after
// the config file and env overrides ran.
func restoreFlags(cfg *app.Config, flagged app.Config, explicit map[string]bool) {
	for name, fn := range restorers(cfg, flagged) {
		if explicit[name] {
			fn()
		}
	}
}

// restorers maps each config flag to the assignment that restores it.
func restorers(cfg *app.Config, flagged app.Config) map[string]func() {
	return map[string]func(){
		"o":                    func() { cfg.OutputPath = flagged.OutputPath },
		"export":               func() { cfg.ExportPath = flagged.ExportPath },
		"screenshots":          func() { cfg.IncludeScreenshots = flagged.IncludeScreenshots },
		"llm.base":             func() { cfg.LLMBaseURL = flagged.LLMBaseURL },
		"llm.model":            func() { cfg.LLMModel = flagged.LLMModel },
		"llm.api":              func() { cfg.LLMAPI = flagged.LLMAPI },
		"llm.key":              func() { cfg.LLMAPIKey = flagged.LLMAPIKey },
		"llm.timeout":          func() { cfg.LLMTimeout = flagged.LLMTimeout },
		"llm.temperature":      func() { cfg.LLMTemperature = flagged.LLMTemperature },
		"llm.maxTokens":        func() { cfg.LLMMaxTokens = flagged.LLMMaxTokens },
		"extract.maxChars":     func() { cfg.MaxChars = flagged.MaxChars },
		"extract.imageTimeout": func() { cfg.ImageTimeout = flagged.ImageTimeout },
		"raster.maxWidth":      func() { cfg.RasterMaxWidth = flagged.RasterMaxWidth },
		"raster.maxHeight":     func() { cfg.RasterMaxHeight = flagged.RasterMaxHeight },
		"browser.url":          func() { cfg.BrowserURL = flagged.BrowserURL },
		"browser.exec":         func() { cfg.BrowserExecPath = flagged.BrowserExecPath },
		"browser.headful":      func() { cfg.BrowserHeadful = flagged.BrowserHeadful },
		"browser.timeout":      func() { cfg.BrowserTimeout = flagged.BrowserTimeout },
		"browser.width":        func() { cfg.BrowserWidth = flagged.BrowserWidth },
		"browser.height":       func() { cfg.BrowserHeight = flagged.BrowserHeight },
		"browser.userAgent":    func() { cfg.UserAgent = flagged.UserAgent },
		"history.dir":          func() { cfg.HistoryDir = flagged.HistoryDir },
		"history.maxAge":       func() { cfg.HistoryMaxAge = flagged.HistoryMaxAge },
		"history.strictPerms":  func() { cfg.HistoryStrictPerms = flagged.HistoryStrictPerms },
		"serve.addr":           func() { cfg.ServeAddr = flagged.ServeAddr },
		"bridge.url":           func() { cfg.BridgeURL = flagged.BridgeURL },
		"v":                    func() { cfg.Verbose = flagged.Verbose },
	}
}

func run(ctx context.Context, mode string, cfg app.Config, question string, in io.Reader, out io.Writer) error {
	switch mode {
	case "extract", "serve":
		if err := app.ValidateConfig(cfg, false); err != nil {
			return err
		}
	case "ask":
		if err := app.ValidateConfig(cfg, true); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", errUsage, mode)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	switch mode {
	case "extract":
		return runExtract(ctx, a, cfg.OutputPath, out)
	case "serve":
		log.Info().Str("addr", cfg.ServeAddr).Msg("bridge listening")
		return a.Serve(ctx)
	default:
		return runAsk(ctx, a, cfg.ExportPath, question, in, out)
	}
}

func runExtract(ctx context.Context, a *app.App, path string, out io.Writer) error {
	snap, err := a.Extract(ctx)
	if err != nil {
		return err
	}
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func runAsk(ctx context.Context, a *app.App, exportPath, question string, in io.Reader, out io.Writer) error {
	a.Preflight(ctx)
	s, err := a.Session(ctx)
	if err != nil {
		return err
	}

	ask := func(q string) error {
		answer, err := s.Ask(ctx, q)
		if err != nil {
			fmt.Fprintln(out, llm.UserMessage(err))
			return err
		}
		fmt.Fprintln(out, answer)
		return nil
	}

	if strings.TrimSpace(question) != "" {
		if err := ask(question); err != nil {
			return err
		}
	} else {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			q := strings.TrimSpace(scanner.Text())
			if q == "" {
				continue
			}
			if err := ask(q); err != nil {
				log.Warn().Err(err).Msg("question failed")
			}
			if ctx.Err() != nil {
				break
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	if exportPath != "" && len(s.History()) > 0 {
		path, err := a.Export(s, exportPath)
		if err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("chat exported")
	}
	return nil
}
