package crew

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/events"
	"github.com/BaSui01/crewflow/taskgraph"
)

// ProcessType defines how a crew works through its task set.
type ProcessType string

const (
	ProcessSequential   ProcessType = "sequential"
	ProcessHierarchical ProcessType = "hierarchical"
	ProcessConsensus    ProcessType = "consensus"
)

// Valid reports whether p is a known process type.
func (p ProcessType) Valid() bool {
	switch p {
	case ProcessSequential, ProcessHierarchical, ProcessConsensus:
		return true
	}
	return false
}

// Crew is a named group of members collaborating under one process type.
// The member list is ordered; roster order breaks scheduling ties.
type Crew struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Process     ProcessType `json:"process"`
	Members     []*Member   `json:"members"`

	logger *zap.Logger
}

// CrewConfig configures a crew.
type CrewConfig struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Process     ProcessType `json:"process" yaml:"process"`
}

// NewCrew creates an empty crew.
func NewCrew(cfg CrewConfig, logger *zap.Logger) *Crew {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Process == "" {
		cfg.Process = ProcessSequential
	}
	return &Crew{
		ID:          uuid.NewString(),
		Name:        cfg.Name,
		Description: cfg.Description,
		Process:     cfg.Process,
		logger:      logger.With(zap.String("component", "crew"), zap.String("crew", cfg.Name)),
	}
}

// AddMember appends a member to the roster. Missing ids are generated;
// status starts idle.
func (c *Crew) AddMember(m Member) *Member {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = MemberIdle
	}
	member := &m
	c.Members = append(c.Members, member)
	c.logger.Info("added crew member",
		zap.String("member_id", member.ID),
		zap.String("role", member.Role),
		zap.String("agent_type", string(member.AgentType)),
	)
	return member
}

// Member returns the member with the given id.
func (c *Crew) Member(id string) (*Member, bool) {
	for _, m := range c.Members {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Managers returns every member holding the manager role, in roster order.
func (c *Crew) Managers() []*Member {
	var out []*Member
	for _, m := range c.Members {
		if m.IsManager() {
			out = append(out, m)
		}
	}
	return out
}

// FailedTask is one terminal failure inside a CrewResult.
type FailedTask struct {
	TaskID string           `json:"task_id"`
	Status taskgraph.Status `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

// RunMetrics summarizes a finished run.
type RunMetrics struct {
	Duration   time.Duration `json:"duration"`
	TasksTotal int           `json:"tasks_total"`
	Completed  int           `json:"completed"`
	Failed     int           `json:"failed"`
	Escalated  int           `json:"escalated"`
	Blocked    int           `json:"blocked"`
	Tokens     int           `json:"tokens,omitempty"`
}

// CrewResult is the terminal outcome of one kickoff. Success is true only
// when every task completed; partial results are always present, a failed
// sibling never discards completed work.
type CrewResult struct {
	RunID       string                      `json:"run_id"`
	CrewID      string                      `json:"crew_id"`
	Success     bool                        `json:"success"`
	TaskResults map[string]taskgraph.Result `json:"task_results"`
	FailedTasks []FailedTask                `json:"failed_tasks,omitempty"`
	Metrics     RunMetrics                  `json:"metrics"`
	Events      []events.Event              `json:"events,omitempty"`
}
