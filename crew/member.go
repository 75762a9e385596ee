package crew

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/crewflow/taskgraph"
	"github.com/BaSui01/crewflow/types"
)

// MemberStatus is the lifecycle state of a crew member during a run.
type MemberStatus string

const (
	MemberIdle    MemberStatus = "idle"
	MemberActive  MemberStatus = "active"
	MemberBlocked MemberStatus = "blocked"
	MemberError   MemberStatus = "error"
)

// RoleManager marks the reviewing member of a hierarchical crew.
const RoleManager = "manager"

// Member is a live agent instance bound to a registered agent type. Status
// and load are mutated only by the owning coordinator.
type Member struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Goal         string          `json:"goal,omitempty"`
	AgentType    types.AgentType `json:"agent_type"`
	Tier         types.Tier      `json:"tier"`
	Priority     types.Priority  `json:"priority"`
	Capabilities []string        `json:"capabilities,omitempty"`
	Status       MemberStatus    `json:"status"`
	InstanceID   string          `json:"instance_id,omitempty"`
	Load         int             `json:"load"`
}

// IsManager reports whether the member holds the manager role.
func (m *Member) IsManager() bool {
	return strings.EqualFold(m.Role, RoleManager)
}

// HasCapabilities reports whether the member covers every required
// capability.
func (m *Member) HasCapabilities(required []string) bool {
	for _, req := range required {
		found := false
		for _, c := range m.Capabilities {
			if c == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CompletionRequest is the opaque payload handed to a language model.
type CompletionRequest struct {
	System   string         `json:"system,omitempty"`
	Prompt   string         `json:"prompt"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CompletionResponse is the model's answer.
type CompletionResponse struct {
	Output string `json:"output"`
	Tokens int    `json:"tokens,omitempty"`
}

// LanguageModelClient produces a completion for a prompt. The orchestration
// core treats the call as opaque: a result or a failure.
type LanguageModelClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ToolInvoker invokes a named external tool during task execution.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}

// Executor turns a task into a result on behalf of a member. The coordinator
// never interprets the output; it only routes it through review and into the
// graph.
type Executor interface {
	ExecuteTask(ctx context.Context, member *Member, task taskgraph.Task) (taskgraph.Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, member *Member, task taskgraph.Task) (taskgraph.Result, error)

// ExecuteTask implements Executor.
func (f ExecutorFunc) ExecuteTask(ctx context.Context, member *Member, task taskgraph.Task) (taskgraph.Result, error) {
	return f(ctx, member, task)
}

// ModelExecutor executes tasks by prompting a language model in the voice of
// the assigned member. Tools, when present, are exposed to callers through
// the Invoker for the model integration to use.
type ModelExecutor struct {
	Client  LanguageModelClient
	Invoker ToolInvoker
}

// ExecuteTask implements Executor.
func (e *ModelExecutor) ExecuteTask(ctx context.Context, member *Member, task taskgraph.Task) (taskgraph.Result, error) {
	start := time.Now()

	var sb strings.Builder
	sb.WriteString("Task: " + task.Title + "\n")
	if task.Description != "" {
		sb.WriteString(task.Description + "\n")
	}
	if task.ExpectedOutput != "" {
		sb.WriteString("Expected output: " + task.ExpectedOutput + "\n")
	}

	system := "You are " + member.Name + ", role: " + member.Role
	if member.Goal != "" {
		system += ". Goal: " + member.Goal
	}

	resp, err := e.Client.Complete(ctx, CompletionRequest{
		System: system,
		Prompt: sb.String(),
		Metadata: map[string]any{
			"task_id":   task.ID,
			"member_id": member.ID,
		},
	})
	if err != nil {
		return taskgraph.Result{
			TaskID:  task.ID,
			Success: false,
			Error:   err.Error(),
			Metrics: taskgraph.ResultMetrics{Duration: time.Since(start)},
		}, err
	}

	return taskgraph.Result{
		TaskID:  task.ID,
		Output:  resp.Output,
		Success: true,
		Metrics: taskgraph.ResultMetrics{
			Duration: time.Since(start),
			Tokens:   resp.Tokens,
		},
	}, nil
}
