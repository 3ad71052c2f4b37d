package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestOllama_ChatSendsStrippedImages(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   got.Model,
			"message": map[string]string{"role": "assistant", "content": "A rising line."},
			"done":    true,
		})
	}))
	defer srv.Close()

	p := &OllamaProvider{BaseURL: srv.URL}
	resp, err := p.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:       "llava",
		Temperature: 0.7,
		MaxTokens:   2000,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: "What does the chart show?"},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: "data:image/jpeg;base64,QUJD"}},
			},
		}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Model != "llava" || resp.Choices[0].Message.Content != "A rising line." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.Stream || got.Options.MaxTokens != 2000 || got.Options.Temperature != 0.7 {
		t.Fatalf("unexpected request options: %+v", got)
	}
	m := got.Messages[0]
	if m.Content != "What does the chart show?" || len(m.Images) != 1 || m.Images[0] != "QUJD" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestOllama_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"llava:7b"}]}`))
	}))
	defer srv.Close()

	list, err := (&OllamaProvider{BaseURL: srv.URL}).ListModels(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Models) != 2 || list.Models[1].ID != "llava:7b" {
		t.Fatalf("unexpected models: %+v", list.Models)
	}
}

func TestOllama_ErrorClasses(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusForbidden, "", ErrForbidden},
		{http.StatusNotFound, `{"error":"model \"nope\" not found, try pulling it first"}`, ErrModelMissing},
		{http.StatusBadRequest, `{"error":"model does not support images"}`, ErrBadRequest},
		{http.StatusInternalServerError, "boom", ErrUnreachable},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
		}))
		_, err := (&OllamaProvider{BaseURL: srv.URL}).CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{Model: "m"})
		srv.Close()
		if !errors.Is(err, c.want) {
			t.Fatalf("status %d: expected %v, got %v", c.status, c.want, err)
		}
	}
}

func TestOllama_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := (&OllamaProvider{BaseURL: url}).ListModels(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestClassify_OpenAIErrors(t *testing.T) {
	err := Classify(&openai.APIError{HTTPStatusCode: 403, Message: "forbidden"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if Classify(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	plain := errors.New("something else")
	if Classify(plain) != plain {
		t.Fatalf("unclassified errors should pass through")
	}
}

func TestUserMessage_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range []error{ErrUnreachable, ErrForbidden, ErrBadRequest, ErrModelMissing} {
		msg := UserMessage(e)
		if msg == "" || seen[msg] {
			t.Fatalf("message for %v not distinct: %q", e, msg)
		}
		seen[msg] = true
	}
}

func TestStripDataURI(t *testing.T) {
	cases := map[string]string{
		"data:image/jpeg;base64,QUJD": "QUJD",
		"DATA:image/png;base64,QUJD":  "QUJD",
		"QUJD":                        "QUJD",
		"data:broken":                 "data:broken",
	}
	for in, want := range cases {
		if got := stripDataURI(in); got != want {
			t.Fatalf("stripDataURI(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenAIProvider_UsesBaseURLAndClient(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/v1/chat/completions":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"model":"llava","choices":[{"index":0,"message":{"role":"assistant","content":"hi"}}]}`))
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"message":"origin not allowed"}}`))
		}
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL+"/v1", "secret", srv.Client())
	resp, err := p.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    "llava",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "hi" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if auth != "Bearer secret" {
		t.Fatalf("api key not sent: %q", auth)
	}
	if _, err := p.ListModels(context.Background()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden from models listing, got %v", err)
	}
}
