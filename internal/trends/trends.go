// Package trends adapts external RSS feeds into the candidate shape the
// orchestrator consumes. Discovery ranking stays with the feed sources;
// items are kept in arrival order and only deduplicated by link.
package trends

import (
	"os"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/openpress/openpress/internal/logger"
	"github.com/openpress/openpress/internal/topic"
)

// FeedsConfig is the YAML config structure:
//
//	feeds:
//	  - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads the feed URL list from a YAML file.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Feeds, nil
}

// Collector turns feed items into candidates.
type Collector struct {
	// MaxAge drops items older than this; zero keeps everything.
	MaxAge time.Duration
	// Limit caps the number of candidates; zero means no cap.
	Limit int

	Now func() time.Time
}

func (c Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Collect downloads and parses all feeds. A failing feed is logged and
// skipped, never fatal.
func (c Collector) Collect(urls []string) []topic.Candidate {
	parser := gofeed.NewParser()
	var items []*gofeed.Item
	successCount := 0

	for _, url := range urls {
		feed, err := parser.ParseURL(url)
		if err != nil {
			logger.Warn("failed to parse feed", "url", url, "error", err)
			continue
		}
		items = append(items, feed.Items...)
		successCount++
	}
	logger.Info("feeds processed", "ok", successCount, "total", len(urls))

	return c.FromItems(items)
}

// FromItems converts parsed feed items into candidates, dropping stale
// items and duplicate links.
func (c Collector) FromItems(items []*gofeed.Item) []topic.Candidate {
	seenLinks := map[string]struct{}{}
	var out []topic.Candidate

	for _, item := range items {
		if c.Limit > 0 && len(out) >= c.Limit {
			break
		}
		if item.Title == "" {
			continue
		}
		if c.MaxAge > 0 && item.PublishedParsed != nil && c.now().Sub(*item.PublishedParsed) > c.MaxAge {
			continue
		}
		if item.Link != "" {
			if _, dup := seenLinks[item.Link]; dup {
				continue
			}
			seenLinks[item.Link] = struct{}{}
		}

		var refs []string
		if item.Link != "" {
			refs = append(refs, item.Link)
		}
		out = append(out, topic.Candidate{
			RawTitle:       item.Title,
			SummarySnippet: item.Description,
			SourceRefs:     refs,
		})
	}
	return out
}
