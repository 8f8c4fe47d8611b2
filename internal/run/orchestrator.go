// Package run drives one end-to-end generation run: collect candidates,
// filter duplicates, generate novel topics within budget, commit the index
// atomically, report.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openpress/openpress/internal/budget"
	"github.com/openpress/openpress/internal/dedup"
	"github.com/openpress/openpress/internal/index"
	"github.com/openpress/openpress/internal/logger"
	"github.com/openpress/openpress/internal/metrics"
	"github.com/openpress/openpress/internal/provider"
	"github.com/openpress/openpress/internal/topic"
)

// Store persists the full index record set at commit.
type Store interface {
	Save(records []topic.Record) error
}

// Generator produces one draft within the run budget. *provider.Router
// satisfies it; tests substitute their own.
type Generator interface {
	Generate(ctx context.Context, cand topic.Candidate, b *budget.Budget) (*provider.Result, error)
}

// Publisher writes the article artifact for a successful draft and returns
// its path. The path goes into the index record so a corpus rebuild finds
// the article again.
type Publisher interface {
	Publish(draft *provider.Draft, cand topic.Candidate, createdAt time.Time) (string, error)
}

// Orchestrator owns the index for the duration of a run. It is the single
// writer: workers stage records locally and the index is mutated only at
// the commit step.
type Orchestrator struct {
	Classifier dedup.Classifier
	Generator  Generator
	Store      Store
	Publisher  Publisher // optional

	// Concurrency bounds the generation worker pool; 1 means sequential.
	Concurrency int

	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return 1
}

// RunOnce executes a single run. The returned report is non-nil even on
// failure; the error mirrors report.Error for callers that want to branch.
func (o *Orchestrator) RunOnce(ctx context.Context, candidates []topic.Candidate, ix *index.Index, b *budget.Budget) (*Report, error) {
	started := o.now()
	report := &Report{
		RunID:     uuid.NewString(),
		State:     StateCollecting,
		StartedAt: started,
		Collected: len(candidates),
	}
	defer func() {
		report.Elapsed = o.now().Sub(started)
		metrics.Global.RecordRunDuration(report.Elapsed)
	}()

	metrics.Global.AddCandidatesCollected(len(candidates))
	logger.Info("run started", "run_id", report.RunID, "candidates", len(candidates))

	// Filtering. Candidates arrive in the collector's relevance order and
	// are not re-ranked here; the batch is deduplicated against the index
	// and against itself before any generation is dispatched.
	report.State = StateFiltering
	novel, skipped := o.Classifier.FilterBatch(candidates, ix)
	for _, cand := range skipped {
		report.Topics = append(report.Topics, TopicOutcome{
			Title:     cand.RawTitle,
			Signature: cand.Signature(),
			Status:    topic.StatusSkipped,
			Reason:    "duplicate topic",
		})
	}
	report.Skipped = len(skipped)
	metrics.Global.AddDuplicatesSkipped(len(skipped))
	logger.Info("candidates filtered", "novel", len(novel), "skipped", len(skipped))

	// Generating. Workers share the budget's atomic reserve/commit gate
	// and stage results locally; the live index stays untouched.
	report.State = StateGenerating
	staged, outcomes, genErr := o.generate(ctx, novel, b)
	report.Topics = append(report.Topics, outcomes...)
	for _, out := range outcomes {
		report.CostUSD += out.CostUSD
		switch out.Status {
		case topic.StatusPublished:
			report.Published++
		case topic.StatusFailed:
			report.Failed++
		}
	}
	metrics.Global.AddArticlesPublished(report.Published)
	metrics.Global.AddGenerationsFailed(report.Failed)
	metrics.Global.AddCost(report.CostUSD)

	// A cancelled run commits nothing.
	if ctx.Err() != nil {
		report.State = StateFailed
		report.Error = ctx.Err().Error()
		metrics.Global.SetError(report.Error)
		return report, ctx.Err()
	}

	// Committing. Persist the merged record set first, swap the live index
	// after: a crash before the save leaves the stored index unchanged,
	// and a failed save leaves the in-memory index unchanged too.
	report.State = StateCommitting
	if len(staged) > 0 {
		merged := append(ix.Snapshot(), staged...)
		if err := o.Store.Save(merged); err != nil {
			report.State = StateFailed
			report.Error = fmt.Sprintf("index commit: %v", err)
			metrics.Global.SetError(report.Error)
			return report, fmt.Errorf("index commit: %w", err)
		}
		ix.Merge(staged)
	}

	if genErr != nil {
		// Provider exhaustion fails the run, but records staged before the
		// failure were committed above and stay valid.
		report.State = StateFailed
		report.Error = genErr.Error()
		metrics.Global.SetError(report.Error)
		logger.Error("run failed", "run_id", report.RunID, "error", genErr)
		return report, genErr
	}

	report.State = StateDone
	metrics.Global.SetLastRun()
	logger.Info("run complete", "run_id", report.RunID,
		"published", report.Published, "skipped", report.Skipped,
		"failed", report.Failed, "cost_usd", report.CostUSD)
	return report, nil
}

// generate drafts the surviving candidates with a bounded worker pool.
// Returns the locally staged records, per-topic outcomes, and a run-fatal
// error when all providers are exhausted.
func (o *Orchestrator) generate(ctx context.Context, novel []topic.Candidate, b *budget.Budget) ([]topic.Record, []TopicOutcome, error) {
	var (
		mu       sync.Mutex
		staged   []topic.Record
		outcomes []TopicOutcome
		stopped  bool
		fatal    error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency())

	for _, cand := range novel {
		mu.Lock()
		done := stopped || fatal != nil
		mu.Unlock()
		if done || gctx.Err() != nil {
			break
		}

		cand := cand
		g.Go(func() error {
			res, err := o.Generator.Generate(gctx, cand, b)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				rec, out := o.stageSuccess(cand, res)
				staged = append(staged, rec)
				outcomes = append(outcomes, out)
				return nil
			case errors.Is(err, budget.ErrBudgetExceeded):
				// Expected run-ending condition: stop dispatching, keep
				// what already succeeded.
				stopped = true
				logger.Info("budget exhausted, stopping generation", "at", cand.RawTitle)
				return nil
			case errors.Is(err, provider.ErrProvidersExhausted):
				fatal = err
				return err // cancels the group
			default:
				// Per-candidate failure: recorded for observability, the
				// run continues with the remaining candidates.
				outcomes = append(outcomes, TopicOutcome{
					Title:     cand.RawTitle,
					Signature: cand.Signature(),
					Status:    topic.StatusFailed,
					Reason:    err.Error(),
				})
				staged = append(staged, topic.Record{
					Signature: cand.Signature(),
					Title:     cand.RawTitle,
					CreatedAt: o.now().UTC(),
					Status:    topic.StatusFailed,
				})
				return nil
			}
		})
	}

	// The only error workers return is the fatal one; the group's ctx
	// cancellation is already captured in it.
	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return staged, outcomes, fatal
}

// stageSuccess turns a draft into a staged published record, writing the
// article artifact when a publisher is wired.
func (o *Orchestrator) stageSuccess(cand topic.Candidate, res *provider.Result) (topic.Record, TopicOutcome) {
	createdAt := o.now().UTC()
	rec := topic.Record{
		Signature:  cand.Signature(),
		Title:      res.Draft.Title,
		CreatedAt:  createdAt,
		SourceRefs: cand.SourceRefs,
		Status:     topic.StatusPublished,
	}
	out := TopicOutcome{
		Title:     res.Draft.Title,
		Signature: rec.Signature,
		Status:    topic.StatusPublished,
		Provider:  res.Provider,
		CostUSD:   res.Cost,
	}

	if o.Publisher != nil {
		path, err := o.Publisher.Publish(res.Draft, cand, createdAt)
		if err != nil {
			// The draft cost money but never reached the corpus, so the
			// index must not claim it was published.
			logger.Error("failed to write article", "title", res.Draft.Title, "error", err)
			rec.Status = topic.StatusFailed
			out.Status = topic.StatusFailed
			out.Reason = fmt.Sprintf("publish: %v", err)
			return rec, out
		}
		rec.ArticlePath = path
	}
	return rec, out
}
