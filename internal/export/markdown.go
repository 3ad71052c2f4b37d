// Package export renders chat transcripts as Markdown or PDF.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hyperifyio/pagelens/internal/history"
)

// Transcript is what gets exported.
type Transcript struct {
	PageTitle  string
	PageURL    string
	ExportedAt time.Time
	History    []history.Exchange
}

// Markdown renders t. Single newlines inside messages become paragraph
// breaks so renderers keep the model's line structure.
func Markdown(t Transcript) string {
	title := t.PageTitle
	if title == "" {
		title = "Unknown Page"
	}
	pageURL := t.PageURL
	if pageURL == "" {
		pageURL = "Unknown URL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# AI Chat Export - %s\n\n", title)
	fmt.Fprintf(&b, "**Page URL:** %s\n", pageURL)
	fmt.Fprintf(&b, "**Export Date:** %s\n", t.ExportedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Total Messages:** %d\n\n", len(t.History))
	b.WriteString("---\n\n")

	for i, ex := range t.History {
		b.WriteString("## **You**\n\n")
		b.WriteString(paragraphs(ex.User) + "\n\n")
		b.WriteString("---\n\n")
		b.WriteString("## **AI Assistant**\n\n")
		b.WriteString(paragraphs(ex.AI) + "\n\n")
		if i < len(t.History)-1 {
			b.WriteString("---\n\n")
		}
	}
	return b.String()
}

func paragraphs(s string) string {
	return strings.ReplaceAll(s, "\n", "\n\n")
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename builds ai-chat-<title>-<timestamp>.<ext>.
func Filename(title string, at time.Time, ext string) string {
	if title == "" {
		title = "chat"
	}
	stamp := at.UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("ai-chat-%s-%s.%s", unsafeName.ReplaceAllString(title, "_"), stamp, ext)
}
