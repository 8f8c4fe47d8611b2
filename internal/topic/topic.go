package topic

import (
	"time"
)

// Status is the lifecycle state of an indexed topic.
type Status string

const (
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Candidate is a prospective topic proposed by the trend collector.
// Candidates are transient: they become records only after generation.
type Candidate struct {
	RawTitle       string
	SummarySnippet string
	SourceRefs     []string
}

// Record is one entry of the topic index.
type Record struct {
	Signature   string    `json:"signature"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	SourceRefs  []string  `json:"source_refs,omitempty"`
	ArticlePath string    `json:"article_path,omitempty"`
	Status      Status    `json:"status"`
}

// Signature returns the dedup key for the candidate's title.
func (c Candidate) Signature() string {
	return Signature(c.RawTitle)
}
