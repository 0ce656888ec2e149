package reviewgate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/vistaflow/pipeline/rulegate"
)

// Contract tests validate that gate responses serialize to JSON in a way the
// pipeline dashboard can rely on. allowed is a required boolean; omitempty
// would drop the field on a blocked action, which reads as "allowed" on the
// other side.

func TestGateResponseContract_Blocked(t *testing.T) {
	outcome := rulegate.Evaluate([]rulegate.TriggeredRule{
		{ID: "no-delete-approved", Stage: rulegate.StageLaw},
	}, rulegate.Inputs{})
	resp := FromOutcome(outcome)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	v, exists := raw["allowed"]
	require.True(t, exists, "allowed must always be present in JSON")
	assert.Equal(t, false, v)

	_, exists = raw["classified"]
	assert.True(t, exists, "classified must always be present in JSON")
}

func TestGateResponseContract_Allowed(t *testing.T) {
	outcome := rulegate.Evaluate(nil, rulegate.Inputs{})
	resp := FromOutcome(outcome)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, true, raw["allowed"])
	// Nothing outstanding means requirements is omitted, not an empty array.
	_, exists := raw["requirements"]
	assert.False(t, exists, "requirements should be omitted when nothing is outstanding")
}
