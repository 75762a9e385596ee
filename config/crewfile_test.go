package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/crewflow/crew"
	"github.com/BaSui01/crewflow/types"
)

const sampleCrewYAML = `
name: release-crew
description: Ships the weekly release.
process: hierarchical
members:
  - name: Morgan
    role: manager
    goal: Coordinate the release.
    agent_type: coordinator
  - name: Dev One
    role: engineer
    agent_type: developer
    priority: high
    capabilities: [code, review]
tasks:
  - id: build
    title: Build the release
    priority: high
    capabilities: [code]
  - id: verify
    title: Verify the build
    depends_on: [build]
    max_retries: 1
`

func TestParseCrewFile(t *testing.T) {
	cf, err := ParseCrewFile([]byte(sampleCrewYAML))
	require.NoError(t, err)

	assert.Equal(t, "release-crew", cf.Name)
	assert.Equal(t, "hierarchical", cf.Process)
	require.Len(t, cf.Members, 2)
	require.Len(t, cf.Tasks, 2)
	assert.Equal(t, []string{"code", "review"}, cf.Members[1].Capabilities)
}

func TestLoadCrewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCrewYAML), 0o600))

	cf, err := LoadCrewFile(path)
	require.NoError(t, err)
	assert.Equal(t, "release-crew", cf.Name)

	_, err = LoadCrewFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestCrewFile_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CrewFile)
		want   string
	}{
		{"missing name", func(cf *CrewFile) { cf.Name = "" }, "crew name is required"},
		{"bad process", func(cf *CrewFile) { cf.Process = "roundrobin" }, "unknown process"},
		{"no members", func(cf *CrewFile) { cf.Members = nil }, "at least one member"},
		{"member without role", func(cf *CrewFile) { cf.Members[0].Role = "" }, "role is required"},
		{"member without type", func(cf *CrewFile) { cf.Members[0].AgentType = "" }, "agent_type is required"},
		{"bad member priority", func(cf *CrewFile) { cf.Members[1].Priority = "urgent" }, "unknown priority"},
		{"no tasks", func(cf *CrewFile) { cf.Tasks = nil }, "at least one task"},
		{"task without id", func(cf *CrewFile) { cf.Tasks[0].ID = "" }, "id is required"},
		{"duplicate task id", func(cf *CrewFile) { cf.Tasks[1].ID = cf.Tasks[0].ID }, "duplicate id"},
		{"unknown dependency", func(cf *CrewFile) { cf.Tasks[1].DependsOn = []string{"ghost"} }, "unknown dependency"},
		{"bad task priority", func(cf *CrewFile) { cf.Tasks[0].Priority = "asap" }, "unknown priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cf, err := ParseCrewFile([]byte(sampleCrewYAML))
			require.NoError(t, err)
			tc.mutate(cf)
			err = cf.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCrewFile_Materialize(t *testing.T) {
	cf, err := ParseCrewFile([]byte(sampleCrewYAML))
	require.NoError(t, err)

	c := cf.Crew(nil)
	assert.Equal(t, crew.ProcessHierarchical, c.Process)
	require.Len(t, c.Members, 2)
	assert.True(t, c.Members[0].IsManager())
	assert.Equal(t, types.AgentDeveloper, c.Members[1].AgentType)
	assert.Equal(t, types.PriorityHigh, c.Members[1].Priority)
	assert.NotEmpty(t, c.Members[0].ID)

	tasks := cf.TaskList()
	require.Len(t, tasks, 2)
	assert.Equal(t, "build", tasks[0].ID)
	assert.Equal(t, []string{"code"}, tasks[0].Capabilities)
	assert.Equal(t, []string{"build"}, tasks[1].DependsOn)
	assert.Equal(t, 1, tasks[1].MaxRetries)
}
