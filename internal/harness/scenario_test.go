package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Testdata(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/state_sync.yaml")
	require.NoError(t, err)

	assert.Equal(t, "state_sync", s.Name)
	require.Len(t, s.Contexts, 2)
	assert.Equal(t, "1", s.Contexts[0].ParticipantID())
	assert.Equal(t, ActionBootstrap, s.Steps[0].Action)
	assert.Equal(t, int64(1), s.Steps[5].MS)
	assert.Equal(t, map[string]string{"color": "red"}, s.Assertions[4].State)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: disk
description: "d"
contexts: [{ name: a }]
steps: [{ context: a, action: bootstrap }]
`), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "a", s.Contexts[0].ParticipantID(), "id defaults to the context name")
	assert.Empty(t, s.Assertions)
}

func TestParseScenario_Invalid(t *testing.T) {
	const head = "name: n\ndescription: d\ncontexts: [{ name: a }]\n"

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", head + "steps: [{ context: a, action: tick }]\nassertion: []\n", "failed to parse YAML"},
		{"missing name", "description: d\ncontexts: [{ name: a }]\nsteps: [{ context: a, action: tick }]\n", "name is required"},
		{"missing description", "name: n\ncontexts: [{ name: a }]\nsteps: [{ context: a, action: tick }]\n", "description is required"},
		{"no contexts", "name: n\ndescription: d\nsteps: [{ action: advance, ms: 1 }]\n", "contexts list is required"},
		{"no steps", head, "steps list is required"},
		{"duplicate context", "name: n\ndescription: d\ncontexts: [{ name: a }, { name: a }]\nsteps: [{ context: a, action: tick }]\n", "duplicate context"},
		{"unknown action", head + "steps: [{ context: a, action: explode }]\n", "unknown action"},
		{"unknown context", head + "steps: [{ context: b, action: tick }]\n", "unknown context"},
		{"missing context", head + "steps: [{ action: tick }]\n", "context is required"},
		{"advance without ms", head + "steps: [{ action: advance }]\n", "ms must be positive"},
		{"set without key", head + "steps: [{ context: a, action: set, value: v }]\n", "key is required for set"},
		{"empty submit", head + "steps: [{ context: a, action: submit }]\n", "submit needs updates or removals"},
		{"unknown assertion", head + "steps: [{ context: a, action: tick }]\nassertions: [{ type: vibes }]\n", "unknown assertion type"},
		{"trace assertion without topic", head + "steps: [{ context: a, action: tick }]\nassertions: [{ type: trace_count, context: a }]\n", "topic is required"},
		{"trace assertion without context", head + "steps: [{ context: a, action: tick }]\nassertions: [{ type: trace_count, topic: t }]\n", "context is required"},
		{"order without topics", head + "steps: [{ context: a, action: tick }]\nassertions: [{ type: trace_order, context: a }]\n", "topics list is required"},
		{"final_state without state", head + "steps: [{ context: a, action: tick }]\nassertions: [{ type: final_state }]\n", "state is required"},
		{"participants without ids", head + "steps: [{ context: a, action: tick }]\nassertions: [{ type: participants }]\n", "ids is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_EmptyCollectionsAllowed(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: n
description: d
contexts: [{ name: a }]
steps: [{ context: a, action: tick }]
assertions:
  - { type: final_state, state: {} }
  - { type: participants, ids: [] }
`))
	require.NoError(t, err)
	assert.NotNil(t, s.Assertions[0].State)
	assert.NotNil(t, s.Assertions[1].IDs)
}
