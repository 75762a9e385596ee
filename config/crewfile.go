package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/crewflow/crew"
	"github.com/BaSui01/crewflow/taskgraph"
	"github.com/BaSui01/crewflow/types"
)

// CrewFile is a declarative crew definition: the roster plus the task
// graph of one run. It is the YAML input to the crewflow CLI.
type CrewFile struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	// Process is one of sequential, hierarchical, consensus.
	Process string       `yaml:"process"`
	Members []MemberSpec `yaml:"members"`
	Tasks   []TaskSpec   `yaml:"tasks"`
}

// MemberSpec declares one crew member.
type MemberSpec struct {
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	Goal         string   `yaml:"goal"`
	AgentType    string   `yaml:"agent_type"`
	Priority     string   `yaml:"priority"`
	Capabilities []string `yaml:"capabilities"`
}

// TaskSpec declares one task in the run's graph.
type TaskSpec struct {
	ID             string        `yaml:"id"`
	Title          string        `yaml:"title"`
	Description    string        `yaml:"description"`
	ExpectedOutput string        `yaml:"expected_output"`
	Priority       string        `yaml:"priority"`
	DependsOn      []string      `yaml:"depends_on"`
	Capabilities   []string      `yaml:"capabilities"`
	MaxRetries     int           `yaml:"max_retries"`
	Timeout        time.Duration `yaml:"timeout"`
}

// LoadCrewFile reads and validates a crew definition file.
func LoadCrewFile(path string) (*CrewFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crew file: %w", err)
	}
	return ParseCrewFile(data)
}

// ParseCrewFile parses and validates a crew definition.
func ParseCrewFile(data []byte) (*CrewFile, error) {
	var cf CrewFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse crew file: %w", err)
	}
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Validate checks the crew definition for structural problems. Agent type
// resolution and process-specific roster rules are left to the
// coordinator, which owns the registry.
func (cf *CrewFile) Validate() error {
	var errs []string

	if cf.Name == "" {
		errs = append(errs, "crew name is required")
	}
	if p := crew.ProcessType(cf.Process); cf.Process != "" && !p.Valid() {
		errs = append(errs, fmt.Sprintf("unknown process %q", cf.Process))
	}
	if len(cf.Members) == 0 {
		errs = append(errs, "at least one member is required")
	}
	for i, m := range cf.Members {
		if m.Role == "" {
			errs = append(errs, fmt.Sprintf("member[%d]: role is required", i))
		}
		if m.AgentType == "" {
			errs = append(errs, fmt.Sprintf("member[%d]: agent_type is required", i))
		}
		if m.Priority != "" && !types.Priority(m.Priority).Valid() {
			errs = append(errs, fmt.Sprintf("member[%d]: unknown priority %q", i, m.Priority))
		}
	}

	if len(cf.Tasks) == 0 {
		errs = append(errs, "at least one task is required")
	}
	ids := make(map[string]bool, len(cf.Tasks))
	for i, t := range cf.Tasks {
		if t.ID == "" {
			errs = append(errs, fmt.Sprintf("task[%d]: id is required", i))
			continue
		}
		if ids[t.ID] {
			errs = append(errs, fmt.Sprintf("task[%d]: duplicate id %q", i, t.ID))
		}
		ids[t.ID] = true
		if t.Priority != "" && !types.Priority(t.Priority).Valid() {
			errs = append(errs, fmt.Sprintf("task %s: unknown priority %q", t.ID, t.Priority))
		}
	}
	for _, t := range cf.Tasks {
		for _, dep := range t.DependsOn {
			if !ids[dep] {
				errs = append(errs, fmt.Sprintf("task %s: unknown dependency %q", t.ID, dep))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid crew file: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Crew materializes the roster into a crew.
func (cf *CrewFile) Crew(logger *zap.Logger) *crew.Crew {
	c := crew.NewCrew(crew.CrewConfig{
		Name:        cf.Name,
		Description: cf.Description,
		Process:     crew.ProcessType(cf.Process),
	}, logger)
	for _, m := range cf.Members {
		c.AddMember(crew.Member{
			Name:         m.Name,
			Role:         m.Role,
			Goal:         m.Goal,
			AgentType:    types.AgentType(m.AgentType),
			Priority:     types.Priority(m.Priority),
			Capabilities: m.Capabilities,
		})
	}
	return c
}

// TaskList materializes the declared tasks for graph construction.
func (cf *CrewFile) TaskList() []taskgraph.Task {
	tasks := make([]taskgraph.Task, 0, len(cf.Tasks))
	for _, t := range cf.Tasks {
		tasks = append(tasks, taskgraph.Task{
			ID:             t.ID,
			Title:          t.Title,
			Description:    t.Description,
			ExpectedOutput: t.ExpectedOutput,
			Priority:       types.Priority(t.Priority),
			Capabilities:   t.Capabilities,
			DependsOn:      t.DependsOn,
			MaxRetries:     t.MaxRetries,
			Timeout:        t.Timeout,
		})
	}
	return tasks
}
