// Package app wires configuration into the extraction core, the bridge and
// the chat layer.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagelens/internal/bridge"
	"github.com/hyperifyio/pagelens/internal/browser"
	"github.com/hyperifyio/pagelens/internal/chat"
	"github.com/hyperifyio/pagelens/internal/export"
	"github.com/hyperifyio/pagelens/internal/extract"
	"github.com/hyperifyio/pagelens/internal/fetch"
	"github.com/hyperifyio/pagelens/internal/history"
	"github.com/hyperifyio/pagelens/internal/llm"
	"github.com/hyperifyio/pagelens/internal/raster"
	"github.com/hyperifyio/pagelens/internal/snapshot"
)

// ErrNoLocalPages is returned when an operation needs pages opened by this
// process but the run talks to a remote bridge.
var ErrNoLocalPages = errors.New("pages are served by a remote bridge")

type App struct {
	cfg     Config
	source  *pageSource
	handler *bridge.Handler
	// transport reaches the extraction core: in-process or a remote bridge.
	transport bridge.Transport
	store     *history.Store
	model     llm.Client
}

// New builds the collaborators for cfg. A browser is started only when a
// target is a URL and no remote bridge is configured.
func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg}

	if cfg.BridgeURL != "" {
		a.transport = bridge.HTTP{BaseURL: cfg.BridgeURL, HTTPClient: newHTTPClient(cfg.LLMTimeout)}
	} else {
		if err := a.openPages(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.HistoryDir != "" {
		a.store = &history.Store{Dir: cfg.HistoryDir, StrictPerms: cfg.HistoryStrictPerms}
		if cfg.HistoryMaxAge > 0 {
			if n, err := a.store.PurgeByAge(cfg.HistoryMaxAge); err == nil && n > 0 {
				log.Info().Int("removed", n).Msg("expired chat history purged")
			}
		}
	}
	return a, nil
}

func (a *App) openPages(ctx context.Context) error {
	cfg := a.cfg
	a.source = &pageSource{}
	needBrowser := false
	for _, t := range cfg.Targets {
		if isURL(t) {
			needBrowser = true
		}
	}
	if needBrowser {
		s, err := browser.Open(ctx, browser.Options{
			RemoteURL:  cfg.BrowserURL,
			ExecPath:   cfg.BrowserExecPath,
			Headless:   !cfg.BrowserHeadful,
			UserAgent:  cfg.UserAgent,
			Width:      cfg.BrowserWidth,
			Height:     cfg.BrowserHeight,
			NavTimeout: cfg.BrowserTimeout,
		})
		if err != nil {
			return err
		}
		a.source.browser = s
	}

	a.handler = &bridge.Handler{Source: a.source}
	a.transport = bridge.Local{Handler: a.handler}

	r := &raster.Rasterizer{
		Images: &fetch.Client{
			HTTPClient:        newHTTPClient(cfg.LLMTimeout),
			UserAgent:         cfg.UserAgent,
			PerRequestTimeout: cfg.ImageTimeout,
			MaxConcurrent:     4,
		},
		Compressor:   raster.Compressor{MaxWidth: cfg.RasterMaxWidth, MaxHeight: cfg.RasterMaxHeight},
		ImageTimeout: cfg.ImageTimeout,
	}
	if needBrowser {
		// Viewport captures go through the bridge like any other client.
		a.handler.Viewport = a.source
		r.Viewport = &bridge.Capturer{Transport: a.transport}
		r.Canvas = a.source
	}
	a.handler.Orchestrator = &snapshot.Orchestrator{
		Extractor: extract.ListingExtractor{
			Next: extract.HeuristicExtractor{Options: extract.Options{MaxChars: cfg.MaxChars}},
		},
		Raster:    r,
	}

	if len(cfg.Targets) > 0 {
		return a.source.open(ctx, cfg.Targets[0])
	}
	return nil
}

func (a *App) Close() {
	if a.source != nil && a.source.browser != nil {
		a.source.browser.Close()
	}
}

// Handler returns the in-process bridge handler.
func (a *App) Handler() (*bridge.Handler, error) {
	if a.handler == nil {
		return nil, ErrNoLocalPages
	}
	return a.handler, nil
}

// Extract returns a snapshot of the first target.
func (a *App) Extract(ctx context.Context) (*snapshot.PageSnapshot, error) {
	return bridge.Extract(ctx, a.transport, a.cfg.IncludeScreenshots)
}

// Snapshots extracts every target in order. Screenshots are only taken
// for a single target.
func (a *App) Snapshots(ctx context.Context) ([]*snapshot.PageSnapshot, error) {
	if a.source == nil || len(a.cfg.Targets) <= 1 {
		s, err := a.Extract(ctx)
		if err != nil {
			return nil, err
		}
		return []*snapshot.PageSnapshot{s}, nil
	}
	out := make([]*snapshot.PageSnapshot, 0, len(a.cfg.Targets))
	for i, t := range a.cfg.Targets {
		if err := a.source.open(ctx, t); err != nil {
			return nil, fmt.Errorf("open %s: %w", t, err)
		}
		s, err := bridge.Extract(ctx, a.transport, false)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", t, err)
		}
		log.Debug().Int("page", i+1).Str("title", s.Title).Msg("page extracted")
		out = append(out, s)
	}
	return out, nil
}

// Model returns the configured model client, building it on first use.
func (a *App) Model() llm.Client {
	if a.model != nil {
		return a.model
	}
	client := newHTTPClient(a.cfg.LLMTimeout)
	switch a.cfg.LLMAPI {
	case "openai":
		a.model = llm.NewOpenAIProvider(a.cfg.LLMBaseURL, a.cfg.LLMAPIKey, client)
	default:
		a.model = &llm.OllamaProvider{BaseURL: a.cfg.LLMBaseURL, HTTPClient: client}
	}
	return a.model
}

// Preflight lists the server's models and warns when the configured model
// is missing. It never fails the run; errors surface on the first request.
func (a *App) Preflight(ctx context.Context) {
	lister, ok := a.Model().(llm.ModelLister)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg(llm.UserMessage(err))
		return
	}
	for _, m := range models.Models {
		if m.ID == a.cfg.LLMModel || strings.TrimSuffix(m.ID, ":latest") == a.cfg.LLMModel {
			log.Debug().Int("count", len(models.Models)).Msg("LLM models available")
			return
		}
	}
	log.Warn().Str("model", a.cfg.LLMModel).Int("available", len(models.Models)).Msg("configured model not listed by server")
}

// Session opens a chat over the targets. One target is loaded through the
// bridge so screenshots can be captured on demand; several are merged.
func (a *App) Session(ctx context.Context) (*chat.Session, error) {
	s := &chat.Session{
		LLM:         a.Model(),
		Model:       a.cfg.LLMModel,
		Temperature: float32(a.cfg.LLMTemperature),
		MaxTokens:   a.cfg.LLMMaxTokens,
		Source:      bridge.Client{Transport: a.transport},
		Store:       a.store,
	}
	snaps, err := a.Snapshots(ctx)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 1 {
		s.SetContext(chat.FromSnapshot(snaps[0]))
		return s, nil
	}
	merged, err := chat.Merge(snaps)
	if err != nil {
		return nil, err
	}
	s.SetContext(merged)
	return s, nil
}

// Export writes the session transcript to path. A ".pdf" suffix selects
// PDF; anything else is Markdown. When path is a directory a name is
// derived from the page title.
func (a *App) Export(s *chat.Session, path string) (string, error) {
	pc, _ := s.Context()
	t := export.Transcript{
		PageTitle:  pc.Title,
		PageURL:    pc.URL,
		ExportedAt: time.Now(),
		History:    s.History(),
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, export.Filename(t.PageTitle, t.ExportedAt, "md"))
	}
	md := export.Markdown(t)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		f, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("create export: %w", err)
		}
		if err := export.PDF(f, md); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write pdf: %w", err)
		}
		return path, f.Close()
	}
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}

// Serve runs the bridge server until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	h, err := a.Handler()
	if err != nil {
		return err
	}
	addr := a.cfg.ServeAddr
	if addr == "" {
		addr = DefaultServeAddr
	}
	return bridge.Serve(ctx, addr, h)
}
