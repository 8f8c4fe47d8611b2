package run

import (
	"time"

	"github.com/openpress/openpress/internal/topic"
)

// State is the orchestrator's position in the run lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateFiltering  State = "filtering"
	StateGenerating State = "generating"
	StateCommitting State = "committing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// TopicOutcome is the per-topic line of a run report.
type TopicOutcome struct {
	Title     string       `json:"title"`
	Signature string       `json:"signature"`
	Status    topic.Status `json:"status"`
	Provider  string       `json:"provider,omitempty"`
	CostUSD   float64      `json:"cost_usd,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// Report summarizes one run. It is produced even when the run fails, with
// partial statistics up to the failure point.
type Report struct {
	RunID     string         `json:"run_id"`
	State     State          `json:"state"`
	Collected int            `json:"collected"`
	Skipped   int            `json:"skipped"`
	Published int            `json:"published"`
	Failed    int            `json:"failed"`
	CostUSD   float64        `json:"cost_usd"`
	Elapsed   time.Duration  `json:"elapsed_ns"`
	StartedAt time.Time      `json:"started_at"`
	Topics    []TopicOutcome `json:"topics"`
	Error     string         `json:"error,omitempty"`
}
