// Package dedup decides whether a candidate topic duplicates an already
// published one. The classifier holds no state of its own, which keeps it
// reusable both per-run and inside index validation.
package dedup

import (
	"time"

	"github.com/openpress/openpress/internal/index"
	"github.com/openpress/openpress/internal/topic"
)

// DefaultThreshold is the token-set Jaccard similarity at or above which
// two titles inside the recency window count as the same topic.
const DefaultThreshold = 0.5

// Classifier compares candidates against an index.
type Classifier struct {
	// Window is the trailing span inside which fuzzy matching applies.
	// Older records match by exact signature only, so a dormant topic can
	// resurface when the news cycle returns to it.
	Window time.Duration

	// Threshold for Jaccard similarity; zero means DefaultThreshold.
	Threshold float64

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

// Match describes why a candidate was classified duplicate.
type Match struct {
	Record     topic.Record
	Exact      bool
	Similarity float64
}

func (c Classifier) threshold() float64 {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return DefaultThreshold
}

func (c Classifier) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// IsDuplicate reports whether the candidate duplicates an indexed topic.
func (c Classifier) IsDuplicate(cand topic.Candidate, ix *index.Index) bool {
	_, dup := c.Classify(cand, ix)
	return dup
}

// Classify returns the matched record when the candidate is a duplicate.
// Exact signature matches win at any age. Fuzzy matches are limited to
// records inside the window; when several qualify the most recent wins.
func (c Classifier) Classify(cand topic.Candidate, ix *index.Index) (Match, bool) {
	sig := cand.Signature()
	if rec, ok := ix.Lookup(sig); ok {
		return Match{Record: rec, Exact: true, Similarity: 1}, true
	}

	cutoff := c.now().Add(-c.Window)
	threshold := c.threshold()

	// RecentSince returns newest first, so the first hit is the tie-break.
	for _, rec := range ix.RecentSince(cutoff) {
		if sim := topic.Jaccard(cand.RawTitle, rec.Title); sim >= threshold {
			return Match{Record: rec, Similarity: sim}, true
		}
	}
	return Match{}, false
}

// FilterBatch classifies candidates in order against the index and against
// the batch itself, so two near-duplicate candidates in the same run can
// never both survive to generation. Returns survivors and the skipped.
func (c Classifier) FilterBatch(cands []topic.Candidate, ix *index.Index) (novel, skipped []topic.Candidate) {
	threshold := c.threshold()

	for _, cand := range cands {
		if c.IsDuplicate(cand, ix) {
			skipped = append(skipped, cand)
			continue
		}

		clash := false
		sig := cand.Signature()
		for _, prev := range novel {
			if sig == prev.Signature() || topic.Jaccard(cand.RawTitle, prev.RawTitle) >= threshold {
				clash = true
				break
			}
		}
		if clash {
			skipped = append(skipped, cand)
			continue
		}
		novel = append(novel, cand)
	}
	return novel, skipped
}
