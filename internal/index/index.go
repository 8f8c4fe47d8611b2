// Package index holds the durable mapping from topic signature to record.
// The index is a derived cache: the article corpus stays the source of
// truth and the index can always be rebuilt from it.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openpress/openpress/internal/topic"
)

var (
	// ErrDuplicateKey means a record with the same signature is already
	// indexed. Callers are expected to consult the duplicate classifier
	// first; hitting this is a logic bug, not a normal dedup path.
	ErrDuplicateKey = errors.New("index: duplicate signature")

	// ErrIndexUnavailable means the persisted index could not be read.
	// The caller should rebuild from the corpus before giving up.
	ErrIndexUnavailable = errors.New("index: unavailable")
)

// Index is an in-memory topic index. A single run owns and mutates it;
// the mutex only guards against concurrent readers during generation.
type Index struct {
	mu      sync.RWMutex
	records map[string]topic.Record
}

func New() *Index {
	return &Index{records: make(map[string]topic.Record)}
}

// Lookup returns the record for a signature, if present.
func (ix *Index) Lookup(signature string) (topic.Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.records[signature]
	return rec, ok
}

// Insert adds a single record, failing on a signature collision.
func (ix *Index) Insert(rec topic.Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.records[rec.Signature]; exists {
		return fmt.Errorf("%w: %s (%q)", ErrDuplicateKey, rec.Signature, rec.Title)
	}
	ix.records[rec.Signature] = rec
	return nil
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Snapshot returns all records ordered by creation time, then signature.
// The order is deterministic so persisted output is diffable.
func (ix *Index) Snapshot() []topic.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]topic.Record, 0, len(ix.records))
	for _, rec := range ix.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Signature < out[j].Signature
	})
	return out
}

// RecentSince returns records created at or after the cutoff, newest first.
// Used for recency-window queries by the duplicate classifier.
func (ix *Index) RecentSince(cutoff time.Time) []topic.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []topic.Record
	for _, rec := range ix.records {
		if !rec.CreatedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ReplaceAll swaps the full record set in one step. The new map is built
// before the swap, so an interrupted caller never observes a partial index.
func (ix *Index) ReplaceAll(records []topic.Record) {
	next := make(map[string]topic.Record, len(records))
	for _, rec := range records {
		next[rec.Signature] = rec
	}

	ix.mu.Lock()
	ix.records = next
	ix.mu.Unlock()
}

// Merge applies staged records from a completed run. Existing signatures
// are overwritten; a run only stages signatures it already classified as
// novel, so overwrites repair rather than duplicate.
func (ix *Index) Merge(staged []topic.Record) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, rec := range staged {
		ix.records[rec.Signature] = rec
	}
}
