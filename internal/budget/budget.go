// Package budget enforces the per-run generation ceiling: a cap on the
// number of articles and an optional monetary limit. All checks and
// decrements happen under one lock as a reserve/commit pair, so concurrent
// workers can never jointly overspend.
package budget

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBudgetExceeded is an expected run-ending condition, not an operator
// failure: it stops further generation without failing the run.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Budget is constructed once per run and consumed monotonically.
type Budget struct {
	mu sync.Mutex

	maxArticles      int
	articlesReserved int
	articlesUsed     int

	costLimit    float64 // 0 means unlimited
	costReserved float64
	costSpent    float64

	model string
}

// New creates a run budget. costLimit <= 0 disables the monetary ceiling.
func New(maxArticles int, costLimit float64, model string) *Budget {
	return &Budget{maxArticles: maxArticles, costLimit: costLimit, model: model}
}

// Model is the configured model tier for this run.
func (b *Budget) Model() string { return b.model }

// Reserve claims one article slot plus the projected cost before any
// provider call is made. It fails with ErrBudgetExceeded when either
// ceiling would be crossed, without touching the budget.
func (b *Budget) Reserve(projectedCost float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.articlesUsed+b.articlesReserved >= b.maxArticles {
		return fmt.Errorf("%w: article cap %d reached", ErrBudgetExceeded, b.maxArticles)
	}
	if b.costLimit > 0 && b.costSpent+b.costReserved+projectedCost > b.costLimit {
		return fmt.Errorf("%w: projected %.4f over limit %.4f (spent %.4f)",
			ErrBudgetExceeded, projectedCost, b.costLimit, b.costSpent)
	}

	b.articlesReserved++
	b.costReserved += projectedCost
	return nil
}

// Commit converts a reservation into spend using the actual cost reported
// by the provider. The article slot is consumed permanently.
func (b *Budget) Commit(projectedCost, actualCost float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.articlesReserved--
	b.costReserved -= projectedCost
	b.articlesUsed++
	b.costSpent += actualCost
}

// Release returns a failed reservation to the pool.
func (b *Budget) Release(projectedCost float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.articlesReserved--
	b.costReserved -= projectedCost
}

// Remaining reports unreserved article slots.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxArticles - b.articlesUsed - b.articlesReserved
}

// Spent is the committed cost so far.
func (b *Budget) Spent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.costSpent
}

// Used is the number of committed generations.
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.articlesUsed
}
