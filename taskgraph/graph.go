package taskgraph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/types"
)

// DefaultMaxRetries bounds how often a failed task is re-queued before it
// escalates.
const DefaultMaxRetries = 2

// Manager owns the task graph of one crew run: a flat task table plus
// dependency adjacency keyed by task id. All mutation goes through the
// owning coordinator's run loop; the internal lock only guards against
// concurrent result submission from worker goroutines.
type Manager struct {
	tasks      map[string]*Task
	order      []string            // insertion order of task ids
	dependents map[string][]string // dependency id -> ids that depend on it
	logger     *zap.Logger
	mu         sync.Mutex
}

// NewManager creates an empty task graph manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tasks:      make(map[string]*Task),
		dependents: make(map[string][]string),
		logger:     logger.With(zap.String("component", "task_graph")),
	}
}

// BuildGraph validates and installs the submitted tasks as the new graph.
// The operation is all-or-nothing: duplicate ids, unknown dependencies, or a
// dependency cycle reject the whole submission and no task becomes
// schedulable.
func (m *Manager) BuildGraph(tasks []Task) error {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return types.NewError(types.ErrInvalidCrewConfig, "task with empty id")
		}
		if seen[t.ID] {
			return types.NewErrorf(types.ErrInvalidCrewConfig, "duplicate task id: %s", t.ID)
		}
		seen[t.ID] = true
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if !seen[dep] {
				return types.NewErrorf(types.ErrInvalidCrewConfig,
					"task %s depends on unknown task %s", t.ID, dep).WithTask(t.ID)
			}
			if dep == t.ID {
				return types.NewErrorf(types.ErrDependencyCycle, "task %s depends on itself", t.ID).WithTask(t.ID)
			}
		}
	}
	if cycle := findCycle(tasks); cycle != nil {
		return types.NewErrorf(types.ErrDependencyCycle, "dependency cycle: %s", formatCycle(cycle))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks = make(map[string]*Task, len(tasks))
	m.order = make([]string, 0, len(tasks))
	m.dependents = make(map[string][]string)

	for i, t := range tasks {
		task := t
		task.Seq = i
		task.Status = StatusPending
		if task.Priority == "" {
			task.Priority = types.PriorityMedium
		}
		if task.MaxRetries == 0 {
			task.MaxRetries = DefaultMaxRetries
		}
		m.tasks[task.ID] = &task
		m.order = append(m.order, task.ID)
		for _, dep := range task.DependsOn {
			m.dependents[dep] = append(m.dependents[dep], task.ID)
		}
	}

	m.logger.Info("task graph built", zap.Int("tasks", len(tasks)))
	return nil
}

// findCycle runs Kahn's topological sort and, when tasks remain unsorted,
// returns the ids stuck in the cycle (in insertion order).
func findCycle(tasks []Task) []string {
	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string)
	for _, t := range tasks {
		indegree[t.ID] += 0
		for _, dep := range t.DependsOn {
			indegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	var queue []string
	for _, t := range tasks {
		if indegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	sorted := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted++
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if sorted == len(tasks) {
		return nil
	}
	var cycle []string
	for _, t := range tasks {
		if indegree[t.ID] > 0 {
			cycle = append(cycle, t.ID)
		}
	}
	return cycle
}

func formatCycle(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}

// Get returns a copy of the task.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Tasks returns copies of all tasks in insertion order.
func (m *Manager) Tasks() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.tasks[id])
	}
	return out
}

// Len returns the number of tasks in the graph.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// NextSchedulable returns the pending tasks whose dependencies are all
// completed, ordered by priority (critical first) then insertion order. The
// ordering is deterministic for a given graph.
func (m *Manager) NextSchedulable() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Task
	for _, id := range m.order {
		t := m.tasks[id]
		if t.Status != StatusPending {
			continue
		}
		if m.depsCompleted(t) {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (m *Manager) depsCompleted(t *Task) bool {
	for _, dep := range t.DependsOn {
		if d, ok := m.tasks[dep]; !ok || d.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Assign moves a pending task to assigned. Fails with
// DEPENDENCY_NOT_SATISFIED while any dependency is incomplete; the task
// stays pending so the scheduler can retry when a dependency completes.
func (m *Manager) Assign(id, memberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.task(id)
	if err != nil {
		return err
	}
	if t.Status != StatusPending {
		return badTransition(t, StatusAssigned)
	}
	if !m.depsCompleted(t) {
		return types.NewErrorf(types.ErrDependencyNotSatisfied,
			"task %s has incomplete dependencies", id).WithTask(id).WithRetryable(true)
	}
	t.Status = StatusAssigned
	t.Assignee = memberID
	return nil
}

// Unassign returns an assigned task to the pending pool, e.g. after a
// rejected delegation.
func (m *Manager) Unassign(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.task(id)
	if err != nil {
		return err
	}
	if t.Status != StatusAssigned {
		return badTransition(t, StatusPending)
	}
	t.Status = StatusPending
	t.Assignee = ""
	return nil
}

// Start moves an assigned task to in_progress and records the start time
// used for timeout enforcement.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.task(id)
	if err != nil {
		return err
	}
	if t.Status != StatusAssigned {
		return badTransition(t, StatusInProgress)
	}
	t.Status = StatusInProgress
	t.StartedAt = time.Now()
	return nil
}

// Complete finishes an in_progress task with a successful result. A result
// with Success=false is rejected; use Fail for those.
func (m *Manager) Complete(id string, result Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.task(id)
	if err != nil {
		return err
	}
	if t.Status != StatusInProgress {
		return badTransition(t, StatusCompleted)
	}
	if !result.Success {
		return types.NewErrorf(types.ErrInvalidTransition,
			"task %s: completion requires a successful result", id).WithTask(id)
	}
	result.TaskID = id
	t.Status = StatusCompleted
	t.Result = &result
	t.FinishedAt = time.Now()
	return nil
}

// Fail records a failed attempt. While the retry budget lasts the task is
// re-queued to pending; once exhausted it escalates. Returns the resulting
// status.
func (m *Manager) Fail(id string, reason string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failLocked(id, reason)
}

func (m *Manager) failLocked(id, reason string) (Status, error) {
	t, err := m.task(id)
	if err != nil {
		return "", err
	}
	if t.Status != StatusInProgress && t.Status != StatusAssigned {
		return "", badTransition(t, StatusFailed)
	}

	t.LastError = reason
	t.Retries++
	if t.Retries <= t.MaxRetries {
		t.Status = StatusPending
		t.Assignee = ""
		t.StartedAt = time.Time{}
		m.logger.Debug("task re-queued after failure",
			zap.String("task_id", id),
			zap.Int("retries", t.Retries),
			zap.String("reason", reason),
		)
		return StatusPending, nil
	}

	t.Status = StatusEscalated
	t.FinishedAt = time.Now()
	return StatusEscalated, nil
}

// FailTerminal marks a task failed with no re-queue, e.g. on run
// cancellation.
func (m *Manager) FailTerminal(id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.task(id)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return badTransition(t, StatusFailed)
	}
	t.Status = StatusFailed
	t.LastError = reason
	t.FinishedAt = time.Now()
	return nil
}

// Escalate moves a task to escalated, bypassing the retry budget, when an
// escalation trigger fires.
func (m *Manager) Escalate(id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.task(id)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return badTransition(t, StatusEscalated)
	}
	t.Status = StatusEscalated
	t.LastError = reason
	t.FinishedAt = time.Now()
	return nil
}

// BlockDependents marks every transitive dependent of the given task as
// blocked. Called when a task reached a terminal state other than completed,
// so downstream work can never be scheduled. Returns the blocked ids.
func (m *Manager) BlockDependents(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var blocked []string
	queue := append([]string(nil), m.dependents[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		t, ok := m.tasks[next]
		if !ok || t.Status.Terminal() {
			continue
		}
		t.Status = StatusBlocked
		t.LastError = fmt.Sprintf("dependency %s did not complete", id)
		t.FinishedAt = time.Now()
		blocked = append(blocked, next)
		queue = append(queue, m.dependents[next]...)
	}
	return blocked
}

// CheckTimeouts fails every in_progress task whose timeout elapsed. Returns
// the affected ids with their resulting status (re-queued or escalated).
func (m *Manager) CheckTimeouts(now time.Time, defaultTimeout time.Duration) map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Status)
	for _, id := range m.order {
		t := m.tasks[id]
		if t.Status != StatusInProgress {
			continue
		}
		timeout := t.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		if now.Sub(t.StartedAt) <= timeout {
			continue
		}
		status, err := m.failLocked(id, "execution timeout")
		if err != nil {
			continue
		}
		out[id] = status
	}
	return out
}

// AllTerminal reports whether every task reached a terminal status.
func (m *Manager) AllTerminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// Counts returns the number of tasks per status.
func (m *Manager) Counts() map[Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Status]int)
	for _, t := range m.tasks {
		out[t.Status]++
	}
	return out
}

func (m *Manager) task(id string) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, types.NewErrorf(types.ErrInvalidTransition, "unknown task: %s", id)
	}
	return t, nil
}

func badTransition(t *Task, to Status) error {
	return types.NewErrorf(types.ErrInvalidTransition,
		"task %s: cannot transition %s -> %s", t.ID, t.Status, to).WithTask(t.ID)
}
