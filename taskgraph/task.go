package taskgraph

import (
	"time"

	"github.com/BaSui01/crewflow/types"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBlocked    Status = "blocked"
	StatusEscalated  Status = "escalated"
)

// Terminal reports whether a task in this status will never run again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBlocked, StatusEscalated:
		return true
	default:
		return false
	}
}

// ResultMetrics captures execution cost for one attempt.
type ResultMetrics struct {
	Duration  time.Duration `json:"duration"`
	Tokens    int           `json:"tokens,omitempty"`
	ToolCalls int           `json:"tool_calls,omitempty"`
}

// Result is the output payload of one task execution.
type Result struct {
	TaskID         string        `json:"task_id"`
	Output         any           `json:"output,omitempty"`
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	Metrics        ResultMetrics `json:"metrics"`
	ReviewDecision string        `json:"review_decision,omitempty"`
}

// Task is one node of the crew task graph. Tasks live in a flat table inside
// the Manager; dependencies are ids into that table, never object references.
type Task struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
	Priority       types.Priority `json:"priority"`
	Capabilities   []string       `json:"required_capabilities,omitempty"`
	Status         Status         `json:"status"`
	DependsOn      []string       `json:"depends_on,omitempty"`
	Assignee       string         `json:"assignee,omitempty"`
	Result         *Result        `json:"result,omitempty"`
	Retries        int            `json:"retries"`
	MaxRetries     int            `json:"max_retries"`
	Timeout        time.Duration  `json:"timeout,omitempty"`
	Seq            int            `json:"seq"`
	StartedAt      time.Time      `json:"started_at,omitzero"`
	FinishedAt     time.Time      `json:"finished_at,omitzero"`
	LastError      string         `json:"last_error,omitempty"`
}
