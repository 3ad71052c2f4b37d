package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOllamaURL is the local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider talks to Ollama's native /api/chat and /api/tags endpoints.
// Image parts are sent as bare base64 strings.
type OllamaProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name       string    `json:"name"`
		Model      string    `json:"model"`
		ModifiedAt time.Time `json:"modified_at"`
	} `json:"models"`
}

func (p *OllamaProvider) base() string {
	if p.BaseURL == "" {
		return DefaultOllamaURL
	}
	return strings.TrimRight(p.BaseURL, "/")
}

func (p *OllamaProvider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

// CreateChatCompletion sends one non-streaming chat request.
func (p *OllamaProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	body := ollamaChatRequest{
		Model:    request.Model,
		Messages: make([]ollamaMessage, 0, len(request.Messages)),
		Stream:   false,
		Options: ollamaOptions{
			Temperature: request.Temperature,
			MaxTokens:   request.MaxTokens,
			NumPredict:  request.MaxTokens,
		},
	}
	for _, m := range request.Messages {
		body.Messages = append(body.Messages, toOllamaMessage(m))
	}

	var out ollamaChatResponse
	if err := p.do(ctx, http.MethodPost, "/api/chat", body, &out); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   out.Model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: out.Message.Content},
			FinishReason: openai.FinishReason(out.DoneReason),
		}},
		Usage: openai.Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}, nil
}

// ListModels lists installed models via /api/tags.
func (p *OllamaProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
	var tags ollamaTagsResponse
	if err := p.do(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return openai.ModelsList{}, err
	}
	list := openai.ModelsList{Models: make([]openai.Model, 0, len(tags.Models))}
	for _, m := range tags.Models {
		list.Models = append(list.Models, openai.Model{ID: m.Name, Object: "model", CreatedAt: m.ModifiedAt.Unix(), OwnedBy: "ollama"})
	}
	return list, nil
}

func (p *OllamaProvider) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.base()+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return Classify(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Classify(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Classify(&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))})
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// toOllamaMessage flattens text parts into content and strips the data-URI
// prefix from image parts.
func toOllamaMessage(m openai.ChatCompletionMessage) ollamaMessage {
	om := ollamaMessage{Role: m.Role, Content: m.Content}
	if len(m.MultiContent) == 0 {
		return om
	}
	var text []string
	for _, part := range m.MultiContent {
		switch part.Type {
		case openai.ChatMessagePartTypeText:
			text = append(text, part.Text)
		case openai.ChatMessagePartTypeImageURL:
			if part.ImageURL != nil {
				om.Images = append(om.Images, stripDataURI(part.ImageURL.URL))
			}
		}
	}
	om.Content = strings.Join(text, "\n")
	return om
}

// stripDataURI keeps only the base64 payload; model servers reject the
// data: prefix.
func stripDataURI(s string) string {
	if len(s) >= 5 && strings.EqualFold(s[:5], "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
