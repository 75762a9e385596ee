package taskgraph

import (
	"github.com/BaSui01/crewflow/types"
)

// StateVersion is the current schema version of the persisted task graph
// state. Snapshots newer than this are rejected, never silently accepted.
const StateVersion = 1

// Snapshot is the serializable form of the task graph, including in-flight
// status, so a run can be inspected or resumed after a restart.
type Snapshot struct {
	Version int    `json:"version"`
	Tasks   []Task `json:"tasks"`
}

// Snapshot captures the graph at the current schema version. Tasks appear in
// insertion order.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{Version: StateVersion, Tasks: m.Tasks()}
}

// Restore replaces the graph with the snapshot contents. The snapshot's
// structure is re-validated (ids, dependencies, acyclicity) and statuses are
// restored as persisted; in_progress tasks come back as assigned so the run
// loop restarts them instead of waiting on a result that will never arrive.
func (m *Manager) Restore(snap Snapshot) error {
	if snap.Version > StateVersion {
		return types.NewErrorf(types.ErrSnapshotVersionMismatch,
			"task graph snapshot version %d is newer than supported version %d", snap.Version, StateVersion)
	}
	if snap.Version < 1 {
		return types.NewErrorf(types.ErrSnapshotVersionMismatch,
			"task graph snapshot version %d is not valid", snap.Version)
	}

	statuses := make(map[string]Status, len(snap.Tasks))
	retries := make(map[string]int, len(snap.Tasks))
	results := make(map[string]*Result, len(snap.Tasks))
	assignees := make(map[string]string, len(snap.Tasks))
	for _, t := range snap.Tasks {
		statuses[t.ID] = t.Status
		retries[t.ID] = t.Retries
		results[t.ID] = t.Result
		assignees[t.ID] = t.Assignee
	}

	if err := m.BuildGraph(snap.Tasks); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		t := m.tasks[id]
		t.Retries = retries[id]
		t.Result = results[id]
		switch statuses[id] {
		case StatusInProgress:
			t.Status = StatusAssigned
			t.Assignee = assignees[id]
		case "":
			t.Status = StatusPending
		default:
			t.Status = statuses[id]
			t.Assignee = assignees[id]
		}
	}
	return nil
}
