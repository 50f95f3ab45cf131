package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnFSM_RejectsInvalidTransition(t *testing.T) {
	m := newTurnFSM("t1", nil)
	err := m.transition(StateGenerating, "skip ahead")
	require.Error(t, err)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StateIdle, invalid.From)
	assert.Equal(t, StateGenerating, invalid.To)
	assert.Equal(t, StateIdle, m.current)
}

func TestTurnFSM_NotifiesListener(t *testing.T) {
	var got []StateChange
	m := newTurnFSM("t1", StateListenerFunc(func(ev StateChange) { got = append(got, ev) }))
	require.NoError(t, m.transition(StateAcquiring, "text"))
	require.NoError(t, m.transition(StatePrompting, "ready"))

	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TurnID)
	assert.Equal(t, StateIdle, got[0].FromState)
	assert.Equal(t, StatePrompting, got[1].ToState)
	assert.Equal(t, "ready", got[1].Reason)
}

func TestTranscodingOnlyFromAcquiring(t *testing.T) {
	for from := range validTransitions {
		if from == StateAcquiring {
			continue
		}
		assert.False(t, transitionValid(from, StateTranscoding), "%s -> transcoding", from)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "generating", StateGenerating.String())
	assert.Equal(t, "state(42)", State(42).String())
}
