package chat

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/pagelens/internal/heuristics"
	"github.com/hyperifyio/pagelens/internal/history"
)

const (
	// ContentExcerptRunes bounds the page text quoted in the prompt.
	ContentExcerptRunes = 3000
	// HistoryWindow is how many past exchanges are replayed.
	HistoryWindow = 3
	// SampleRows is how many rows of each table are quoted.
	SampleRows = 3
	// ChartExcerptRunes bounds the text quoted from a labeled container.
	ChartExcerptRunes = 100
)

// NeedsVisual reports whether msg asks about something visual.
func NeedsVisual(msg string) bool {
	lower := strings.ToLower(msg)
	for _, k := range heuristics.VisualKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ContextPrompt builds the text-only prompt: page facts, tables, charts,
// the recent conversation and the question.
func ContextPrompt(c *PageContext, past []history.Exchange, msg string) string {
	return contextPrompt(c, past, msg, ContentExcerptRunes)
}

func contextPrompt(c *PageContext, past []history.Exchange, msg string, contentRunes int) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant helping to discuss and analyze web page content. Here's the context:\n\n")

	if c != nil {
		fmt.Fprintf(&b, "Page Title: %s\n", c.Title)
		fmt.Fprintf(&b, "Page URL: %s\n", c.URL)
		fmt.Fprintf(&b, "Page Content: %s...\n\n", head(c.Content, contentRunes))

		if len(c.Tables) > 0 {
			fmt.Fprintf(&b, "Tables found on page (%d):\n", len(c.Tables))
			for _, t := range c.Tables {
				fmt.Fprintf(&b, "Table %d: %s\n", t.ID, orDefault(t.Caption, "No caption"))
				if len(t.Headers) > 0 {
					fmt.Fprintf(&b, "  Headers: %s\n", strings.Join(t.Headers, ", "))
				}
				fmt.Fprintf(&b, "  Rows: %d\n", len(t.Rows))
				if len(t.Rows) > 0 {
					b.WriteString("  Sample data:\n")
					for i, row := range t.Rows {
						if i == SampleRows {
							break
						}
						fmt.Fprintf(&b, "    %s\n", strings.Join(row, " | "))
					}
				}
				b.WriteString("\n")
			}
		}

		if len(c.Charts) > 0 {
			fmt.Fprintf(&b, "Charts/Graphs found on page (%d):\n", len(c.Charts))
			for _, ch := range c.Charts {
				fmt.Fprintf(&b, "Chart %s (%s): %s\n", ch.ID, ch.Type, orDefault(ch.Description, "No description"))
				if ch.Context != "" {
					fmt.Fprintf(&b, "  Context: %s\n", ch.Context)
				}
				if ch.TextContent != "" {
					fmt.Fprintf(&b, "  Content: %s...\n", head(ch.TextContent, ChartExcerptRunes))
				}
				b.WriteString("\n")
			}
		}
	}

	if len(past) > 0 {
		b.WriteString("Previous conversation:\n")
		if len(past) > HistoryWindow {
			past = past[len(past)-HistoryWindow:]
		}
		for _, ex := range past {
			fmt.Fprintf(&b, "User: %s\n", ex.User)
			fmt.Fprintf(&b, "Assistant: %s\n\n", ex.AI)
		}
	}

	fmt.Fprintf(&b, "Current user question: %s\n\n", msg)
	b.WriteString("Please provide a helpful, accurate, and conversational response based on the page content and context. " +
		"If analyzing tables, provide clear insights about the data. " +
		"If analyzing charts, describe what the visual elements might represent. " +
		"If the question is not related to the page content, you can still provide a helpful general response.")
	return b.String()
}

// ImagePrompt is used instead of the context prompt when screenshots are
// attached: the model is asked to read the charts before interpreting them.
func ImagePrompt(msg string) string {
	return `You are a professional trading analyst. Analyze the charts or graphs in the attached images and cover:

1. **Chart Values & Data**: the concrete values visible in the chart (current price, highs, lows, volume, dates, timeframe).
2. **Chart Commentary**: what the chart shows (price action, patterns, key levels, formations).
3. **Technical Analysis**: the current trend, support and resistance levels, notable indicators.
4. **Market Outlook**: a short assessment of direction (bullish, bearish or sideways).
5. **Recommendation**: a clear BUY or SELL call with brief reasoning.

Always begin with the values read from the chart before any analysis. Use only the visual data in the images.

User request: ` + msg
}

func head(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
