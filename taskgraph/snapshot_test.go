package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/types"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	m := buildManager(t, task("a"), task("b", "a"), task("c", "a"))
	runToCompleted(t, m, "a")
	require.NoError(t, m.Assign("b", "m2"))

	snap := m.Snapshot()
	assert.Equal(t, StateVersion, snap.Version)
	require.Len(t, snap.Tasks, 3)

	restored := NewManager(zap.NewNop())
	require.NoError(t, restored.Restore(snap))

	a, _ := restored.Get("a")
	assert.Equal(t, StatusCompleted, a.Status)
	require.NotNil(t, a.Result)

	b, _ := restored.Get("b")
	assert.Equal(t, StatusAssigned, b.Status)
	assert.Equal(t, "m2", b.Assignee)

	c, _ := restored.Get("c")
	assert.Equal(t, StatusPending, c.Status)
}

func TestSnapshot_InProgressComesBackAssigned(t *testing.T) {
	m := buildManager(t, task("a"))
	require.NoError(t, m.Assign("a", "m1"))
	require.NoError(t, m.Start("a"))

	restored := NewManager(zap.NewNop())
	require.NoError(t, restored.Restore(m.Snapshot()))

	a, _ := restored.Get("a")
	assert.Equal(t, StatusAssigned, a.Status)
	assert.Equal(t, "m1", a.Assignee)
}

func TestSnapshot_RejectsNewerVersion(t *testing.T) {
	m := NewManager(zap.NewNop())
	err := m.Restore(Snapshot{Version: StateVersion + 1})
	require.Error(t, err)
	assert.Equal(t, types.ErrSnapshotVersionMismatch, types.GetErrorCode(err))
}

func TestSnapshot_RejectsInvalidVersion(t *testing.T) {
	m := NewManager(zap.NewNop())
	err := m.Restore(Snapshot{Version: 0})
	require.Error(t, err)
	assert.Equal(t, types.ErrSnapshotVersionMismatch, types.GetErrorCode(err))
}
