package taskgraph

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/crewflow/types"
)

// genDAG generates an acyclic task set: each task may only depend on tasks
// with a smaller index, so the set is acyclic by construction.
func genDAG(t *rapid.T) []Task {
	n := rapid.IntRange(1, 12).Draw(t, "n")
	tasks := make([]Task, n)
	priorities := []types.Priority{types.PriorityCritical, types.PriorityHigh, types.PriorityMedium, types.PriorityLow}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("t%d", i)
		var deps []string
		for j := 0; j < i; j++ {
			if rapid.Bool().Draw(t, fmt.Sprintf("dep_%d_%d", i, j)) {
				deps = append(deps, fmt.Sprintf("t%d", j))
			}
		}
		tasks[i] = Task{
			ID:        id,
			Priority:  priorities[rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("prio_%d", i))],
			DependsOn: deps,
		}
	}
	return tasks
}

// Property: every acyclic graph builds, and draining NextSchedulable while
// completing each returned task yields every task exactly once, never before
// its dependencies.
func TestProperty_AcyclicGraphDrainsCompletely(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tasks := genDAG(rt)
		m := NewManager(zap.NewNop())
		if err := m.BuildGraph(tasks); err != nil {
			rt.Fatalf("acyclic graph rejected: %v", err)
		}

		scheduled := make(map[string]bool)
		completed := make(map[string]bool)
		for {
			batch := m.NextSchedulable()
			if len(batch) == 0 {
				break
			}
			for _, tk := range batch {
				if scheduled[tk.ID] {
					rt.Fatalf("task %s scheduled twice", tk.ID)
				}
				scheduled[tk.ID] = true
				for _, dep := range tk.DependsOn {
					if !completed[dep] {
						rt.Fatalf("task %s scheduled before dependency %s", tk.ID, dep)
					}
				}
				if err := m.Assign(tk.ID, "m"); err != nil {
					rt.Fatalf("assign %s: %v", tk.ID, err)
				}
				if err := m.Start(tk.ID); err != nil {
					rt.Fatalf("start %s: %v", tk.ID, err)
				}
				if err := m.Complete(tk.ID, Result{Success: true}); err != nil {
					rt.Fatalf("complete %s: %v", tk.ID, err)
				}
				completed[tk.ID] = true
			}
		}

		if len(completed) != len(tasks) {
			rt.Fatalf("drained %d of %d tasks", len(completed), len(tasks))
		}
	})
}

// Property: injecting a back edge into an otherwise acyclic graph always
// fails with DEPENDENCY_CYCLE and leaves the graph empty.
func TestProperty_CycleAlwaysRejected(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tasks := genDAG(rt)
		if len(tasks) < 2 {
			rt.Skip("need at least two tasks for a back edge")
		}

		// Add a dependency from an earlier task to a later one that already
		// (transitively or directly) depends on it.
		from := rapid.IntRange(0, len(tasks)-2).Draw(rt, "from")
		to := rapid.IntRange(from+1, len(tasks)-1).Draw(rt, "to")
		tasks[to].DependsOn = append(tasks[to].DependsOn, tasks[from].ID)
		tasks[from].DependsOn = append(tasks[from].DependsOn, tasks[to].ID)

		m := NewManager(zap.NewNop())
		err := m.BuildGraph(tasks)
		if err == nil {
			rt.Fatalf("cyclic graph accepted")
		}
		if types.GetErrorCode(err) != types.ErrDependencyCycle {
			rt.Fatalf("expected DEPENDENCY_CYCLE, got %v", err)
		}
		if m.Len() != 0 {
			rt.Fatalf("cyclic submission left %d tasks schedulable", m.Len())
		}
	})
}

// Property: NextSchedulable is deterministic: two managers built from the
// same task list return identical schedules.
func TestProperty_SchedulingDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tasks := genDAG(rt)

		m1 := NewManager(zap.NewNop())
		m2 := NewManager(zap.NewNop())
		if err := m1.BuildGraph(tasks); err != nil {
			rt.Fatalf("build: %v", err)
		}
		if err := m2.BuildGraph(tasks); err != nil {
			rt.Fatalf("build: %v", err)
		}

		for {
			b1 := m1.NextSchedulable()
			b2 := m2.NextSchedulable()
			if len(b1) != len(b2) {
				rt.Fatalf("schedules diverged: %d vs %d", len(b1), len(b2))
			}
			if len(b1) == 0 {
				break
			}
			for i := range b1 {
				if b1[i].ID != b2[i].ID {
					rt.Fatalf("schedule order diverged at %d: %s vs %s", i, b1[i].ID, b2[i].ID)
				}
				for _, m := range []*Manager{m1, m2} {
					if err := m.Assign(b1[i].ID, "m"); err != nil {
						rt.Fatalf("assign: %v", err)
					}
					if err := m.Start(b1[i].ID); err != nil {
						rt.Fatalf("start: %v", err)
					}
					if err := m.Complete(b1[i].ID, Result{Success: true}); err != nil {
						rt.Fatalf("complete: %v", err)
					}
				}
			}
		}
	})
}
