package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpress/openpress/internal/topic"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topic_index.json")
	fs := NewFileStore(path)

	records := []topic.Record{
		{
			Signature:   "sig1",
			Title:       "First topic",
			CreatedAt:   time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
			SourceRefs:  []string{"https://example.org/a"},
			ArticlePath: "output/articles/article_20260820_sig1.html",
			Status:      topic.StatusPublished,
		},
		{
			Signature: "sig2",
			Title:     "Second topic",
			CreatedAt: time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC),
			Status:    topic.StatusFailed,
		},
	}
	require.NoError(t, fs.Save(records))

	ix, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, records, ix.Snapshot())
}

func TestFileStoreMissingFileYieldsEmptyIndex(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

	ix, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestFileStoreCorruptFileIsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topic_index.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load()
	require.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestFileStoreSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topic_index.json")
	fs := NewFileStore(path)

	require.NoError(t, fs.Save([]topic.Record{{Signature: "a", Title: "a", Status: topic.StatusPublished}}))
	require.NoError(t, fs.Save([]topic.Record{{Signature: "b", Title: "b", Status: topic.StatusPublished}}))

	ix, err := fs.Load()
	require.NoError(t, err)
	_, ok := ix.Lookup("a")
	assert.False(t, ok)
	_, ok = ix.Lookup("b")
	assert.True(t, ok)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "topic_index.json", entries[0].Name())
}
