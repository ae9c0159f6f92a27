package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "cross_channel.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "cross_channel", s.Name)
	assert.Equal(t, uint64(1), s.Seed)
	require.Len(t, s.Recipes, 1)
	assert.Equal(t, "Soup", s.Recipes[0].Name)
	require.Len(t, s.Steps, 5)
	assert.Equal(t, ChannelWS, s.Steps[0].Channel)
	require.NotNil(t, s.Steps[2].Args)
	assert.Equal(t, "Pie", s.Steps[2].Args.Name)
	require.NotNil(t, s.Steps[1].Expect.Broadcasts)
	assert.Empty(t, *s.Steps[1].Expect.Broadcasts)
	assert.Len(t, s.Assertions, 3)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\nstepz: []\n", "failed to parse YAML"},
		{"missing name", "steps:\n  - channel: http\n", "missing required field: name"},
		{"no steps", "name: x\n", "has no steps"},
		{"unknown channel", "name: x\nsteps:\n  - channel: smoke\n", `unknown channel "smoke"`},
		{"bad method", "name: x\nsteps:\n  - channel: http\n    method: PATCHY\n", "unsupported method"},
		{"ws without body", "name: x\nsteps:\n  - channel: ws\n", "ws step needs a body"},
		{"unknown tool", "name: x\nsteps:\n  - channel: rpc\n    tool: DeleteRecipe\n", `unknown tool "DeleteRecipe"`},
		{"add without args", "name: x\nsteps:\n  - channel: rpc\n    tool: AddRecipe\n", "AddRecipe needs args"},
		{"unknown assertion", "name: x\nsteps:\n  - channel: http\nassertions:\n  - type: vibes\n", `unknown type "vibes"`},
		{"count without event", "name: x\nsteps:\n  - channel: http\nassertions:\n  - type: broadcast_count\n", "needs event"},
		{"order without events", "name: x\nsteps:\n  - channel: http\nassertions:\n  - type: broadcast_order\n", "needs events"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenarioFilesAllParse(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = ParseScenario(data)
		assert.NoError(t, err, f)
	}
}
