package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pagelens/internal/budget"
	"github.com/hyperifyio/pagelens/internal/history"
	"github.com/hyperifyio/pagelens/internal/llm"
	"github.com/hyperifyio/pagelens/internal/snapshot"
)

// Defaults for model requests.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

var (
	// ErrDraftClosed is returned by a draft that was sent or cancelled.
	ErrDraftClosed = errors.New("draft already sent or cancelled")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("empty message")
)

// Extractor fetches a snapshot of the current page. bridge.Client
// satisfies it.
type Extractor interface {
	Extract(ctx context.Context, includeScreenshots bool) (*snapshot.PageSnapshot, error)
}

// Session is one conversation about one page context.
type Session struct {
	LLM         llm.Client
	Model       string
	Temperature float32
	MaxTokens   int
	// Source re-extracts the page, e.g. to capture screenshots on demand.
	Source Extractor
	// Store persists history after each answer. Optional.
	Store *history.Store

	mu      sync.Mutex
	page    *PageContext
	history []history.Exchange
	now     func() time.Time
}

func (s *Session) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Load extracts the current page without screenshots and makes it the
// context.
func (s *Session) Load(ctx context.Context) error {
	if s.Source == nil {
		return ErrNoContext
	}
	snap, err := s.Source.Extract(ctx, false)
	if err != nil {
		return fmt.Errorf("load page: %w", err)
	}
	pc := FromSnapshot(snap)
	s.SetContext(pc)
	log.Debug().Str("title", pc.Title).Int("tables", len(pc.Tables)).Int("charts", len(pc.Charts)).Msg("page context loaded")
	return nil
}

// SetContext replaces the page context.
func (s *Session) SetContext(c PageContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = &c
}

// Context returns a copy of the current page context, if any.
func (s *Session) Context() (PageContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return PageContext{}, false
	}
	return *s.page, true
}

// History returns a copy of the exchanges so far.
func (s *Session) History() []history.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]history.Exchange(nil), s.history...)
}

// Compose prepares a draft for msg. When msg asks about something visual,
// the page's screenshots become candidates, capturing them first if none
// exist yet. No candidate starts selected.
func (s *Session) Compose(ctx context.Context, msg string) (*Draft, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	d := &Draft{ID: uuid.NewString(), session: s, Message: msg}
	if !NeedsVisual(msg) {
		return d, nil
	}

	s.mu.Lock()
	page := s.page
	s.mu.Unlock()

	var shots []string
	if page != nil {
		shots = page.Screenshots()
	}
	if len(shots) == 0 && s.Source != nil && (page == nil || !page.MultiPage()) {
		snap, err := s.Source.Extract(ctx, true)
		if err != nil {
			log.Warn().Err(err).Msg("screenshot capture on demand failed")
		} else {
			pc := FromSnapshot(snap)
			s.SetContext(pc)
			shots = pc.Screenshots()
			log.Debug().Str("draft", d.ID).Int("screenshots", len(shots)).Msg("screenshots captured on demand")
		}
	}
	d.candidates = shots
	d.selected = make([]bool, len(shots))
	return d, nil
}

// Ask composes msg, attaches every candidate screenshot and sends it.
func (s *Session) Ask(ctx context.Context, msg string) (string, error) {
	d, err := s.Compose(ctx, msg)
	if err != nil {
		return "", err
	}
	all := make([]int, len(d.Images()))
	for i := range all {
		all[i] = i
	}
	if err := d.Select(all...); err != nil {
		return "", err
	}
	return d.Send(ctx)
}

// send calls the model and records the exchange on success.
func (s *Session) send(ctx context.Context, msg string, images []string) (string, error) {
	if s.LLM == nil {
		return "", errors.New("no model client configured")
	}
	s.mu.Lock()
	page := s.page
	past := append([]history.Exchange(nil), s.history...)
	s.mu.Unlock()

	var prompt string
	if len(images) > 0 {
		prompt = ImagePrompt(msg)
		if over := budget.Overflow(s.Model, s.maxTokens(), prompt, len(images)); over > 0 {
			log.Warn().Int("images", len(images)).Int("over_tokens", over).Msg("attached images may exceed the model context")
		}
	} else {
		prompt = s.fitPrompt(page, past, msg)
	}

	req := openai.ChatCompletionRequest{
		Model:       s.Model,
		Temperature: s.temperature(),
		MaxTokens:   s.maxTokens(),
		Messages:    []openai.ChatCompletionMessage{userMessage(prompt, images)},
	}
	start := time.Now()
	resp, err := s.LLM.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", llm.Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	answer := resp.Choices[0].Message.Content
	log.Debug().Str("model", resp.Model).Int("images", len(images)).Int("prompt_len", len(prompt)).Dur("took", time.Since(start)).Msg("model answered")

	s.record(ctx, history.Exchange{User: msg, AI: answer, Timestamp: s.clock().UTC()}, page)
	return answer, nil
}

func (s *Session) record(ctx context.Context, ex history.Exchange, page *PageContext) {
	s.mu.Lock()
	s.history = append(s.history, ex)
	rec := history.Record{History: append([]history.Exchange(nil), s.history...)}
	s.mu.Unlock()

	if s.Store == nil {
		return
	}
	if page != nil {
		rec.PageURL, rec.PageTitle = page.URL, page.Title
	}
	if _, err := s.Store.Save(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("saving chat history failed")
	}
}

// fitPrompt shrinks the quoted page text when the full prompt would not fit
// the model's context window.
func (s *Session) fitPrompt(page *PageContext, past []history.Exchange, msg string) string {
	prompt := ContextPrompt(page, past, msg)
	over := budget.Overflow(s.Model, s.maxTokens(), prompt, 0)
	if over == 0 || page == nil {
		return prompt
	}
	keep := ContentExcerptRunes - over*4
	if keep < 0 {
		keep = 0
	}
	log.Debug().Int("over_tokens", over).Int("content_runes", keep).Msg("trimming page content to fit context")
	return contextPrompt(page, past, msg, keep)
}

func (s *Session) temperature() float32 {
	if s.Temperature > 0 {
		return s.Temperature
	}
	return DefaultTemperature
}

func (s *Session) maxTokens() int {
	if s.MaxTokens > 0 {
		return s.MaxTokens
	}
	return DefaultMaxTokens
}

func userMessage(prompt string, images []string) openai.ChatCompletionMessage {
	if len(images) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	}
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: img, Detail: openai.ImageURLDetailAuto},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}
