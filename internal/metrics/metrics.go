package metrics

import (
	"sync"
	"time"
)

// Metrics accumulates run statistics for the monitoring endpoints.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	CandidatesCollected int64
	DuplicatesSkipped   int64
	ArticlesPublished   int64
	GenerationsFailed   int64
	IndexRebuilds       int64
	TotalCostUSD        float64

	// Timings
	LastRunDuration    time.Duration
	AverageRunDuration time.Duration
	TotalRunDuration   time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddCandidatesCollected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesCollected += int64(n)
}

func (m *Metrics) AddDuplicatesSkipped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesSkipped += int64(n)
}

func (m *Metrics) AddArticlesPublished(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesPublished += int64(n)
}

func (m *Metrics) AddGenerationsFailed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationsFailed += int64(n)
}

func (m *Metrics) IncrementIndexRebuilds() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IndexRebuilds++
}

func (m *Metrics) AddCost(usd float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalCostUSD += usd
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++

	if m.RunCount > 0 {
		m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"candidates_collected":    m.CandidatesCollected,
		"duplicates_skipped":      m.DuplicatesSkipped,
		"articles_published":      m.ArticlesPublished,
		"generations_failed":      m.GenerationsFailed,
		"index_rebuilds":          m.IndexRebuilds,
		"total_cost_usd":          m.TotalCostUSD,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
