// Package publish writes article artifacts into the corpus. The layout is
// the one the corpus builder parses back: title in h1.article-title, date
// in p.date, source links in div.sources.
package publish

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/openpress/openpress/internal/provider"
	"github.com/openpress/openpress/internal/topic"
)

// Writer renders drafts to HTML files under Dir.
type Writer struct {
	Dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Publish renders the draft and writes article_<date>_<signature>.html.
// Returns the path recorded in the topic index.
func (w *Writer) Publish(draft *provider.Draft, cand topic.Candidate, createdAt time.Time) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create articles dir: %w", err)
	}

	var body bytes.Buffer
	if err := goldmark.Convert([]byte(draft.Markdown), &body); err != nil {
		return "", fmt.Errorf("failed to render article body: %w", err)
	}

	name := fmt.Sprintf("article_%s_%s.html", createdAt.Format("20060102"), topic.Signature(draft.Title))
	path := filepath.Join(w.Dir, name)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + html.EscapeString(draft.Title) + "</title>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<h1 class=\"article-title\">" + html.EscapeString(draft.Title) + "</h1>\n")
	b.WriteString("<p class=\"date\">" + createdAt.UTC().Format(time.RFC3339) + "</p>\n")
	b.WriteString("<div class=\"article-content\">\n")
	b.Write(body.Bytes())
	b.WriteString("</div>\n")
	if len(cand.SourceRefs) > 0 {
		b.WriteString("<div class=\"sources\">\n")
		for _, ref := range cand.SourceRefs {
			escaped := html.EscapeString(ref)
			b.WriteString("<a href=\"" + escaped + "\">" + escaped + "</a>\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</body>\n</html>\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write article: %w", err)
	}
	return path, nil
}
