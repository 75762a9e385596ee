package crewflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/crewflow/crew"
	"github.com/BaSui01/crewflow/taskgraph"
	"github.com/BaSui01/crewflow/types"
)

func TestNew_RunsSequentialCrew(t *testing.T) {
	c := NewCrew(CrewConfig{Name: "facade-crew"}, nil)
	c.AddMember(Member{Name: "Dev", Role: "engineer", AgentType: types.AgentDeveloper})

	exec := crew.ExecutorFunc(func(_ context.Context, m *Member, task taskgraph.Task) (taskgraph.Result, error) {
		return taskgraph.Result{TaskID: task.ID, Success: true, Output: "done"}, nil
	})

	coord, err := New(c, exec)
	require.NoError(t, err)

	res, err := coord.Kickoff(context.Background(), []taskgraph.Task{
		{ID: "A", Title: "first"},
		{ID: "B", Title: "second", DependsOn: []string{"A"}},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.TaskResults, 2)
}

func TestNew_RejectsUnknownAgentType(t *testing.T) {
	c := NewCrew(CrewConfig{Name: "bad-crew"}, nil)
	c.AddMember(Member{Name: "X", Role: "wizard", AgentType: "wizard"})

	_, err := New(c, crew.ExecutorFunc(func(_ context.Context, _ *Member, task taskgraph.Task) (taskgraph.Result, error) {
		return taskgraph.Result{TaskID: task.ID}, nil
	}))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownAgentType))
}
