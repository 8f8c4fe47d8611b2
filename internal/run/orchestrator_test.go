package run

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpress/openpress/internal/budget"
	"github.com/openpress/openpress/internal/dedup"
	"github.com/openpress/openpress/internal/index"
	"github.com/openpress/openpress/internal/provider"
	"github.com/openpress/openpress/internal/topic"
)

var now = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

// memStore records what the orchestrator persisted, or fails on demand.
type memStore struct {
	saved   [][]topic.Record
	failErr error
}

func (m *memStore) Save(records []topic.Record) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.saved = append(m.saved, records)
	return nil
}

// fakeGenerator drafts every candidate within the shared budget, with an
// optional per-candidate error override.
type fakeGenerator struct {
	cost float64
	errs map[string]error
}

func (f *fakeGenerator) Generate(ctx context.Context, cand topic.Candidate, b *budget.Budget) (*provider.Result, error) {
	if err, ok := f.errs[cand.RawTitle]; ok && err != nil {
		return nil, err
	}
	if err := b.Reserve(f.cost); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		b.Release(f.cost)
		return nil, ctx.Err()
	}
	b.Commit(f.cost, f.cost)
	return &provider.Result{
		Draft:    &provider.Draft{Title: cand.RawTitle, Markdown: "body", Model: b.Model()},
		Provider: "fake",
		Cost:     f.cost,
	}, nil
}

func newOrchestrator(gen Generator, st Store) *Orchestrator {
	return &Orchestrator{
		Classifier: dedup.Classifier{
			Window: 48 * time.Hour,
			Now:    func() time.Time { return now },
		},
		Generator:   gen,
		Store:       st,
		Concurrency: 2,
		Now:         func() time.Time { return now },
	}
}

func candidates(titles ...string) []topic.Candidate {
	out := make([]topic.Candidate, 0, len(titles))
	for _, ti := range titles {
		out = append(out, topic.Candidate{RawTitle: ti})
	}
	return out
}

func TestRunOncePublishesNovelCandidates(t *testing.T) {
	st := &memStore{}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)
	ix := index.New()
	b := budget.New(5, 0, "gemini-1.5-flash")

	cands := candidates(
		"New ferry route opens between Aarhus and Oslo",
		"Parliament passes budget bill",
	)
	report, err := o.RunOnce(context.Background(), cands, ix, b)
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, 2, report.Collected)
	assert.Equal(t, 2, report.Published)
	assert.Equal(t, 0, report.Skipped)
	assert.InDelta(t, 0.02, report.CostUSD, 1e-9)
	assert.NotEmpty(t, report.RunID)

	// Both records landed in the live index and were persisted once.
	assert.Equal(t, 2, ix.Len())
	require.Len(t, st.saved, 1)
	assert.Len(t, st.saved[0], 2)
}

func TestRunOnceHonorsArticleCap(t *testing.T) {
	st := &memStore{}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)
	o.Concurrency = 1
	ix := index.New()
	b := budget.New(3, 0, "gemini-1.5-flash")

	cands := candidates(
		"New ferry route opens between Aarhus and Oslo",
		"Parliament passes budget bill",
		"Storm hits coastal towns overnight",
		"Museum unveils viking exhibition in Roskilde",
		"Stock markets rally after surprise rate cut",
		"Heavy snowfall expected across western regions",
		"Hospital expands emergency ward capacity",
		"Wind farm project wins final approval",
	)
	report, err := o.RunOnce(context.Background(), cands, ix, b)
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, 3, report.Published)
	assert.Equal(t, 3, ix.Len())
}

func TestRunOnceHonorsCostCeiling(t *testing.T) {
	st := &memStore{}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)
	o.Concurrency = 1
	ix := index.New()
	b := budget.New(10, 0.025, "gemini-1.5-flash")

	cands := candidates(
		"New ferry route opens between Aarhus and Oslo",
		"Parliament passes budget bill",
		"Storm hits coastal towns overnight",
		"Museum unveils viking exhibition in Roskilde",
	)
	report, err := o.RunOnce(context.Background(), cands, ix, b)
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, 2, report.Published)
	assert.LessOrEqual(t, report.CostUSD, 0.025)
}

func TestRunOnceSkipsDuplicates(t *testing.T) {
	st := &memStore{}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)
	ix := index.New()
	require.NoError(t, ix.Insert(topic.Record{
		Signature: topic.Signature("Parliament passes budget bill"),
		Title:     "Parliament passes budget bill",
		CreatedAt: now.Add(-30 * 24 * time.Hour),
		Status:    topic.StatusPublished,
	}))
	b := budget.New(5, 0, "gemini-1.5-flash")

	cands := candidates(
		"Budget bill passes parliament",
		"Storm hits coastal towns overnight",
	)
	report, err := o.RunOnce(context.Background(), cands, ix, b)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Published)
	require.Len(t, report.Topics, 2)
	assert.Equal(t, topic.StatusSkipped, report.Topics[0].Status)
	assert.Equal(t, "duplicate topic", report.Topics[0].Reason)
}

func TestRunOnceFailedCommitLeavesIndexUntouched(t *testing.T) {
	st := &memStore{failErr: errors.New("disk full")}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)
	ix := index.New()
	b := budget.New(5, 0, "gemini-1.5-flash")

	report, err := o.RunOnce(context.Background(),
		candidates("Storm hits coastal towns overnight"), ix, b)
	require.Error(t, err)

	assert.Equal(t, StateFailed, report.State)
	assert.Contains(t, report.Error, "disk full")
	// Persist failed, so the live index was not mutated either.
	assert.Equal(t, 0, ix.Len())
}

func TestRunOnceProviderExhaustionFailsButKeepsStaged(t *testing.T) {
	st := &memStore{}
	gen := &fakeGenerator{cost: 0.01, errs: map[string]error{
		"Storm hits coastal towns overnight": provider.ErrProvidersExhausted,
	}}
	o := newOrchestrator(gen, st)
	o.Concurrency = 1
	ix := index.New()
	b := budget.New(5, 0, "gemini-1.5-flash")

	cands := candidates(
		"Parliament passes budget bill",
		"Storm hits coastal towns overnight",
	)
	report, err := o.RunOnce(context.Background(), cands, ix, b)
	require.ErrorIs(t, err, provider.ErrProvidersExhausted)

	assert.Equal(t, StateFailed, report.State)
	// The record staged before the failure was still committed.
	assert.Equal(t, 1, report.Published)
	assert.Equal(t, 1, ix.Len())
	require.Len(t, st.saved, 1)
}

func TestRunOncePerCandidateFailureIsRecorded(t *testing.T) {
	st := &memStore{}
	gen := &fakeGenerator{cost: 0.01, errs: map[string]error{
		"Storm hits coastal towns overnight": &provider.GenerationError{
			Provider: "gemini", Transient: false, Err: errors.New("safety block"),
		},
	}}
	o := newOrchestrator(gen, st)
	ix := index.New()
	b := budget.New(5, 0, "gemini-1.5-flash")

	cands := candidates(
		"Parliament passes budget bill",
		"Storm hits coastal towns overnight",
	)
	report, err := o.RunOnce(context.Background(), cands, ix, b)
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, 1, report.Published)
	assert.Equal(t, 1, report.Failed)

	// The failed topic is indexed too, so it will not be retried as novel.
	sig := topic.Signature("Storm hits coastal towns overnight")
	rec, ok := ix.Lookup(sig)
	require.True(t, ok)
	assert.Equal(t, topic.StatusFailed, rec.Status)
}

func TestRunOnceCancelledRunCommitsNothing(t *testing.T) {
	st := &memStore{}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)
	ix := index.New()
	b := budget.New(5, 0, "gemini-1.5-flash")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.RunOnce(ctx, candidates("Parliament passes budget bill"), ix, b)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, st.saved)
}

func TestRunOnceEmptyBatchIsDone(t *testing.T) {
	st := &memStore{}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)

	report, err := o.RunOnce(context.Background(), nil, index.New(), budget.New(3, 0, "gpt-4"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, 0, report.Collected)
	assert.Empty(t, st.saved)
}

// publishRecorder stands in for the article writer.
type publishRecorder struct {
	failErr error
	paths   []string
}

func (p *publishRecorder) Publish(draft *provider.Draft, cand topic.Candidate, createdAt time.Time) (string, error) {
	if p.failErr != nil {
		return "", p.failErr
	}
	path := fmt.Sprintf("output/articles/article_%s_%s.html", createdAt.Format("20060102"), cand.Signature())
	p.paths = append(p.paths, path)
	return path, nil
}

func TestRunOnceRecordsArticlePath(t *testing.T) {
	st := &memStore{}
	pub := &publishRecorder{}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)
	o.Publisher = pub
	ix := index.New()

	_, err := o.RunOnce(context.Background(),
		candidates("Parliament passes budget bill"), ix, budget.New(3, 0, "gpt-4"))
	require.NoError(t, err)

	rec, ok := ix.Lookup(topic.Signature("Parliament passes budget bill"))
	require.True(t, ok)
	require.Len(t, pub.paths, 1)
	assert.Equal(t, pub.paths[0], rec.ArticlePath)
}

func TestRunOncePublishFailureMarksTopicFailed(t *testing.T) {
	st := &memStore{}
	o := newOrchestrator(&fakeGenerator{cost: 0.01}, st)
	o.Publisher = &publishRecorder{failErr: errors.New("read-only filesystem")}
	ix := index.New()

	report, err := o.RunOnce(context.Background(),
		candidates("Parliament passes budget bill"), ix, budget.New(3, 0, "gpt-4"))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Published)
	assert.Equal(t, 1, report.Failed)
	rec, ok := ix.Lookup(topic.Signature("Parliament passes budget bill"))
	require.True(t, ok)
	assert.Equal(t, topic.StatusFailed, rec.Status)
	assert.Empty(t, rec.ArticlePath)
}
