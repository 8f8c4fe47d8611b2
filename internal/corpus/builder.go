// Package corpus rebuilds the topic index from published article files.
// The corpus is ground truth: the builder never reads a persisted index,
// so it doubles as the recovery path when one is lost or corrupted.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/openpress/openpress/internal/index"
	"github.com/openpress/openpress/internal/logger"
	"github.com/openpress/openpress/internal/topic"
)

// BuildStats reports what a rebuild saw.
type BuildStats struct {
	Scanned int
	Indexed int
	Skipped int
}

var reFileDate = regexp.MustCompile(`(\d{8})`)

// Date formats accepted inside an article's <p class="date"> element.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04",
}

// Build scans dir for article_*.html files and derives a complete index.
// Malformed articles are skipped and counted, never fatal. Running it
// twice over an unchanged corpus yields the same index content.
func Build(dir string) (*index.Index, BuildStats, error) {
	pattern := filepath.Join(dir, "article_*.html")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("failed to scan corpus %s: %w", dir, err)
	}

	ix := index.New()
	stats := BuildStats{Scanned: len(files)}

	for _, path := range files {
		rec, err := extractRecord(path)
		if err != nil {
			logger.Warn("skipping malformed article", "path", path, "error", err)
			stats.Skipped++
			continue
		}
		if err := ix.Insert(rec); err != nil {
			// Two files normalizing to the same signature: the first one
			// scanned wins, matching the rebuild behavior before a run.
			logger.Debug("duplicate signature in corpus", "path", path, "signature", rec.Signature)
			stats.Skipped++
			continue
		}
		stats.Indexed++
	}

	logger.Info("corpus index rebuilt", "dir", dir,
		"scanned", stats.Scanned, "indexed", stats.Indexed, "skipped", stats.Skipped)
	return ix, stats, nil
}

// extractRecord parses one article file into an index record.
func extractRecord(path string) (topic.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return topic.Record{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return topic.Record{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("h1.article-title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		return topic.Record{}, fmt.Errorf("no title element")
	}

	createdAt := extractDate(doc, path)

	var refs []string
	doc.Find("div.sources a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			refs = append(refs, href)
		}
	})

	return topic.Record{
		Signature:   topic.Signature(title),
		Title:       title,
		CreatedAt:   createdAt,
		SourceRefs:  refs,
		ArticlePath: path,
		Status:      topic.StatusPublished,
	}, nil
}

// extractDate resolves the article creation time: the date element first,
// then a YYYYMMDD stamp in the filename, then file mtime as a last resort.
func extractDate(doc *goquery.Document, path string) time.Time {
	raw := strings.TrimSpace(doc.Find("p.date").First().Text())
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}

	if m := reFileDate.FindString(filepath.Base(path)); m != "" {
		if t, err := time.Parse("20060102", m); err == nil {
			return t.UTC()
		}
	}

	if fi, err := os.Stat(path); err == nil {
		return fi.ModTime().UTC()
	}
	return time.Now().UTC()
}
