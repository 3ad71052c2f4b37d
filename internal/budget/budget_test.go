package budget

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"ääää", 1}, // runes, not bytes
		{strings.Repeat("x", 400), 100},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.in); got != c.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEstimateRequest_ChargesImages(t *testing.T) {
	if got := EstimateRequest("abcdefgh", 2); got != 2+2*ImageTokens {
		t.Fatalf("unexpected estimate %d", got)
	}
	if got := EstimateRequest("abcd", -1); got != 1 {
		t.Fatalf("negative image count should be ignored, got %d", got)
	}
}

func TestModelContextTokens(t *testing.T) {
	if ModelContextTokens("") != DefaultContextTokens {
		t.Fatal("empty model should use the default")
	}
	if ModelContextTokens("llava:7b") != 4_096 {
		t.Fatal("ollama tag should be ignored for llava:7b")
	}
	if ModelContextTokens("LLAMA3.2-VISION:latest") != 128_000 {
		t.Fatal("lookup should be case-insensitive")
	}
	if ModelContextTokens("mystery-32k") != 32_768 {
		t.Fatal("32k suffix should map to 32k tokens")
	}
	if ModelContextTokens("unknown-model") != DefaultContextTokens {
		t.Fatal("unknown model should use the default")
	}
}

func TestHeadroomTokens(t *testing.T) {
	if HeadroomTokens("llava") != 512 {
		t.Fatalf("small windows should floor to 512, got %d", HeadroomTokens("llava"))
	}
	if HeadroomTokens("gpt-4o") != 6400 {
		t.Fatalf("gpt-4o headroom should be 5%%, got %d", HeadroomTokens("gpt-4o"))
	}
}

func TestAvailableAndOverflow(t *testing.T) {
	// llava: 4096 - 1000 - 512
	if got := Available("llava", 1000); got != 2584 {
		t.Fatalf("Available = %d, want 2584", got)
	}
	if Available("llava", 10_000) != 0 {
		t.Fatal("Available should clamp at zero")
	}
	if Overflow("llava", 1000, "short prompt", 0) != 0 {
		t.Fatal("short prompt should fit")
	}
	// 4 images cost 3072 tokens, over by 3072+3-2584.
	if got := Overflow("llava", 1000, "0123456789", 4); got != 491 {
		t.Fatalf("Overflow = %d, want 491", got)
	}
}
