package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string   `json:"role"`
		Content string   `json:"content"`
		Images  []string `json:"images"`
	} `json:"messages"`
}

// reply picks a canned answer from the prompt so manual runs show which
// prompt shape reached the server.
func reply(req chatRequest) string {
	if len(req.Messages) == 0 {
		return "No message received."
	}
	m := req.Messages[len(req.Messages)-1]
	switch {
	case len(m.Images) > 0:
		return "I can see " + plural(len(m.Images), "image") + ". The chart trends upward with a dip in the middle."
	case strings.Contains(m.Content, "Tables found on page"):
		return "The page has tables; the first one summarizes the figures discussed in the text."
	case strings.Contains(m.Content, "Page Content:"):
		return "This page is about " + titleOf(m.Content) + "."
	}
	return "OK."
}

func titleOf(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if t, ok := strings.CutPrefix(line, "Page Title: "); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	return "an unknown page"
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "llava:latest"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":11434"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": model, "model": model, "modified_at": time.Now().UTC()}},
		})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
			return
		}
		if req.Model != model && req.Model+":latest" != model {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "model \"" + req.Model + "\" not found, try pulling it first"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":       model,
			"created_at":  time.Now().UTC(),
			"message":     map[string]string{"role": "assistant", "content": reply(req)},
			"done":        true,
			"done_reason": "stop",
		})
	})

	log.Printf("ollama-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
