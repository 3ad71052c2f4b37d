// Package budget estimates chat request sizes against a model's context
// window.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// CharsPerToken is the ratio used for text estimates.
	CharsPerToken = 4
	// ImageTokens is charged per attached image. llava-class encoders emit
	// 576 patch tokens; the remainder covers message framing.
	ImageTokens = 768
	// DefaultContextTokens applies to models not in the table.
	DefaultContextTokens = 8192
	// minHeadroom is the floor of HeadroomTokens.
	minHeadroom = 512
)

// EstimateTokens returns ceil(runes/4), zero for the empty string.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / CharsPerToken))
}

// EstimateRequest is the estimated input size of one chat request made of
// prompt and the given number of images.
func EstimateRequest(prompt string, images int) int {
	if images < 0 {
		images = 0
	}
	return EstimateTokens(prompt) + images*ImageTokens
}

// ModelContextTokens returns the context window for a model name. Ollama
// tags (":7b", ":latest") are ignored.
func ModelContextTokens(model string) int {
	name := strings.ToLower(strings.TrimSpace(model))
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	switch {
	case strings.HasSuffix(name, "128k"):
		return 128_000
	case strings.HasSuffix(name, "32k"):
		return 32_768
	}
	return DefaultContextTokens
}

// HeadroomTokens is 5% of the context window, at least 512.
func HeadroomTokens(model string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(model)) * 0.05))
	if dyn < minHeadroom {
		return minHeadroom
	}
	return dyn
}

// Available is the input budget left after reserving output tokens and
// headroom. Never negative.
func Available(model string, reservedForOutput int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	n := ModelContextTokens(model) - reservedForOutput - HeadroomTokens(model)
	if n < 0 {
		return 0
	}
	return n
}

// Overflow reports how many tokens a request exceeds Available by, zero
// when it fits.
func Overflow(model string, reservedForOutput int, prompt string, images int) int {
	over := EstimateRequest(prompt, images) - Available(model, reservedForOutput)
	if over < 0 {
		return 0
	}
	return over
}

// Rough context sizes of vision-capable models commonly served locally,
// plus the hosted ones reachable through the OpenAI-compatible client.
var knownModelMax = map[string]int{
	"llava":           4_096,
	"llava-llama3":    8_192,
	"llava-phi3":      4_096,
	"bakllava":        4_096,
	"llama3.2-vision": 128_000,
	"gemma3":          128_000,
	"qwen2.5vl":       128_000,
	"minicpm-v":       8_192,
	"moondream":       2_048,
	"llama3":          8_192,
	"llama3.1":        128_000,
	"mistral":         32_768,
	"gpt-4o":          128_000,
	"gpt-4o-mini":     128_000,
}
