package llm

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal interface needed by the chat layer to call a model.
// It mirrors go-openai's CreateChatCompletion so that the OpenAI-compatible
// endpoint and the native Ollama API can be swapped freely. Images travel as
// image_url parts holding data URIs.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is an optional capability that allows listing available models.
// Providers that do not support this can omit it; callers should use a type
// assertion to detect availability.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIProvider adapts *openai.Client to the Client/ModelLister interfaces.
// Errors are classified so callers can tell connectivity problems apart.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	resp, err := p.Inner.CreateChatCompletion(ctx, request)
	if err != nil {
		return resp, Classify(err)
	}
	return resp, nil
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
	list, err := p.Inner.ListModels(ctx)
	if err != nil {
		return list, Classify(err)
	}
	return list, nil
}

// NewOpenAIProvider builds a provider for an OpenAI-compatible base URL such
// as http://localhost:11434/v1. A nil hc keeps go-openai's default client.
func NewOpenAIProvider(baseURL, apiKey string, hc *http.Client) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}
