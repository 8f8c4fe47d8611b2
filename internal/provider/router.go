package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	openai "github.com/openai/openai-go"
	"google.golang.org/api/googleapi"

	"github.com/openpress/openpress/internal/budget"
	"github.com/openpress/openpress/internal/logger"
	"github.com/openpress/openpress/internal/topic"
)

// Router selects a provider for each generation: the primary first with
// bounded retry on transient failures, then the secondary if configured.
// It also owns the budget gate: no call is made that the remaining budget
// cannot cover.
type Router struct {
	Primary   Provider
	Secondary Provider

	Pricing    Pricing
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Result pairs a successful draft with what it actually cost.
type Result struct {
	Draft    *Draft
	Provider string
	Cost     float64
}

func (r *Router) retries() int {
	if r.Retries > 0 {
		return r.Retries
	}
	return 3
}

func (r *Router) pricing() Pricing {
	if r.Pricing != nil {
		return r.Pricing
	}
	return DefaultPricing
}

// Generate drafts one candidate within the run budget.
//
// Failure modes: budget.ErrBudgetExceeded before any call is made;
// a permanent *GenerationError surfaced immediately without fallback;
// ErrProvidersExhausted when every configured provider ran out of
// transient retries.
func (r *Router) Generate(ctx context.Context, cand topic.Candidate, b *budget.Budget) (*Result, error) {
	projected := r.pricing().Estimate(b.Model(), cand)
	if err := b.Reserve(projected); err != nil {
		return nil, err
	}

	var lastErr error
	for _, p := range []Provider{r.Primary, r.Secondary} {
		if p == nil {
			continue
		}

		draft, err := r.generateWith(ctx, p, cand, b.Model())
		if err == nil {
			actual := r.pricing().Cost(draft.Model, draft.PromptTokens, draft.CompletionTokens)
			b.Commit(projected, actual)
			return &Result{Draft: draft, Provider: p.Name(), Cost: actual}, nil
		}

		var genErr *GenerationError
		if errors.As(err, &genErr) && !genErr.Transient {
			b.Release(projected)
			return nil, err
		}
		lastErr = err
		logger.Warn("provider exhausted, falling back", "provider", p.Name(), "error", err)
	}

	b.Release(projected)
	return nil, fmt.Errorf("%w: %v", ErrProvidersExhausted, lastErr)
}

// generateWith runs the bounded retry loop against one provider. Only
// transient failures are retried; the backoff grows linearly like the
// retry helper this loop replaced.
func (r *Router) generateWith(ctx context.Context, p Provider, cand topic.Candidate, model string) (*Draft, error) {
	attempts := r.retries()
	var lastErr *GenerationError

	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if r.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		}
		draft, err := p.DraftArticle(callCtx, model, cand)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return draft, nil
		}

		lastErr = &GenerationError{Provider: p.Name(), Transient: isTransient(err), Err: err}
		if !lastErr.Transient {
			return nil, lastErr
		}
		logger.Debug("transient provider failure",
			"provider", p.Name(), "attempt", attempt, "error", err)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &GenerationError{Provider: p.Name(), Transient: true, Err: ctx.Err()}
		case <-time.After(time.Duration(attempt) * r.RetryDelay):
		}
	}
	return nil, lastErr
}

// isTransient classifies a provider failure. Timeouts, rate limits and
// 5xx-class responses are worth retrying; auth and invalid-request errors
// are not.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == 429 || gErr.Code >= 500
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode == 429 || oaErr.StatusCode >= 500
	}

	// Unclassified errors are treated as transient so a flaky provider
	// does not silently mark candidates failed.
	return !errors.Is(err, context.Canceled)
}
