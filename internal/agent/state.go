package agent

import (
	"fmt"
	"time"
)

// State is a stage of a single turn.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateTranscoding
	StateTranscribing
	StatePrompting
	StateGenerating
	StateResponding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateTranscoding:
		return "transcoding"
	case StateTranscribing:
		return "transcribing"
	case StatePrompting:
		return "prompting"
	case StateGenerating:
		return "generating"
	case StateResponding:
		return "responding"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StateChange represents a state transition event.
type StateChange struct {
	TurnID    string
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes turn state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// StateListenerFunc adapts a function to StateListener.
type StateListenerFunc func(StateChange)

func (f StateListenerFunc) OnStateChange(event StateChange) { f(event) }

// InvalidTransitionError reports a transition outside the table.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid turn transition %s -> %s", e.From, e.To)
}

var validTransitions = map[State][]State{
	StateIdle:         {StateAcquiring},
	StateAcquiring:    {StateTranscoding, StateTranscribing, StatePrompting, StateResponding},
	StateTranscoding:  {StateTranscribing, StateResponding},
	StateTranscribing: {StatePrompting, StateResponding},
	StatePrompting:    {StateGenerating},
	StateGenerating:   {StateResponding},
	StateResponding:   {StateIdle},
}

func transitionValid(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// turnFSM tracks one turn. It is owned by a single goroutine.
type turnFSM struct {
	id       string
	current  State
	listener StateListener
}

func newTurnFSM(id string, listener StateListener) *turnFSM {
	return &turnFSM{id: id, current: StateIdle, listener: listener}
}

func (m *turnFSM) transition(to State, reason string) error {
	if !transitionValid(m.current, to) {
		return &InvalidTransitionError{From: m.current, To: to}
	}
	event := StateChange{
		TurnID:    m.id,
		FromState: m.current,
		ToState:   to,
		Timestamp: time.Now(),
		Reason:    reason,
	}
	m.current = to
	if m.listener != nil {
		m.listener.OnStateChange(event)
	}
	return nil
}
