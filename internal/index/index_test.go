package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpress/openpress/internal/topic"
)

var base = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

func rec(sig, title string, at time.Time) topic.Record {
	return topic.Record{Signature: sig, Title: title, CreatedAt: at, Status: topic.StatusPublished}
}

func TestInsertAndLookup(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(rec("aaa", "first", base)))

	got, ok := ix.Lookup("aaa")
	require.True(t, ok)
	assert.Equal(t, "first", got.Title)

	_, ok = ix.Lookup("zzz")
	assert.False(t, ok)
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(rec("aaa", "first", base)))

	err := ix.Insert(rec("aaa", "second", base))
	require.ErrorIs(t, err, ErrDuplicateKey)

	// The original record is untouched.
	got, _ := ix.Lookup("aaa")
	assert.Equal(t, "first", got.Title)
}

func TestSnapshotOrderIsDeterministic(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(rec("bbb", "late", base.Add(time.Hour))))
	require.NoError(t, ix.Insert(rec("ccc", "early-c", base)))
	require.NoError(t, ix.Insert(rec("aaa", "early-a", base)))

	snap := ix.Snapshot()
	require.Len(t, snap, 3)
	// CreatedAt first, signature breaks ties.
	assert.Equal(t, []string{"aaa", "ccc", "bbb"},
		[]string{snap[0].Signature, snap[1].Signature, snap[2].Signature})
}

func TestReplaceAllSwapsContent(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(rec("old", "old", base)))

	ix.ReplaceAll([]topic.Record{
		rec("new1", "n1", base),
		rec("new2", "n2", base),
	})

	_, ok := ix.Lookup("old")
	assert.False(t, ok)
	assert.Equal(t, 2, ix.Len())
}

func TestMergeAddsStagedRecords(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(rec("aaa", "kept", base)))

	ix.Merge([]topic.Record{rec("bbb", "staged", base.Add(time.Minute))})

	assert.Equal(t, 2, ix.Len())
	got, ok := ix.Lookup("bbb")
	require.True(t, ok)
	assert.Equal(t, "staged", got.Title)
}

func TestRecentSinceNewestFirst(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(rec("aaa", "oldest", base.Add(-72*time.Hour))))
	require.NoError(t, ix.Insert(rec("bbb", "recent", base.Add(-2*time.Hour))))
	require.NoError(t, ix.Insert(rec("ccc", "newest", base.Add(-time.Hour))))

	got := ix.RecentSince(base.Add(-48 * time.Hour))
	require.Len(t, got, 2)
	assert.Equal(t, "newest", got[0].Title)
	assert.Equal(t, "recent", got[1].Title)
}
