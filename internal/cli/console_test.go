package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadiek/jarvis/internal/agent"
	"github.com/chadiek/jarvis/internal/errorsx"
)

type scriptedRunner struct {
	mu      sync.Mutex
	inputs  []agent.TurnInput
	respond func(in agent.TurnInput) agent.TurnResult
}

func (r *scriptedRunner) Greet(context.Context) (string, bool) { return agent.Greeting, true }

func (r *scriptedRunner) Turn(_ context.Context, in agent.TurnInput) agent.TurnResult {
	r.mu.Lock()
	r.inputs = append(r.inputs, in)
	r.mu.Unlock()
	return r.respond(in)
}

func echoRunner() *scriptedRunner {
	return &scriptedRunner{respond: func(in agent.TurnInput) agent.TurnResult {
		if strings.EqualFold(in.Text, agent.DefaultFarewell) {
			return agent.TurnResult{Utterance: in.Text, Farewell: true}
		}
		return agent.TurnResult{Utterance: in.Text, DisplayText: "answer to " + in.Text}
	}}
}

func TestConsole_FarewellEndsLoop(t *testing.T) {
	runner := echoRunner()
	var out bytes.Buffer
	in := strings.NewReader("hello\nthank you for your help\nnever asked\n")

	require.NoError(t, New(runner, in, &out, false, nil).Run(context.Background()))

	require.Len(t, runner.inputs, 2)
	text := out.String()
	assert.Contains(t, text, "Jarvis: "+agent.Greeting)
	assert.Contains(t, text, "You: hello")
	assert.Contains(t, text, "Jarvis: answer to hello")
	assert.NotContains(t, text, "never asked")
}

func TestConsole_BackendFailureContinues(t *testing.T) {
	calls := 0
	runner := &scriptedRunner{respond: func(in agent.TurnInput) agent.TurnResult {
		calls++
		if calls == 1 {
			return agent.TurnResult{Utterance: in.Text, DisplayText: agent.ApologyBackend, ErrorKind: errorsx.BackendError}
		}
		return agent.TurnResult{Utterance: in.Text, DisplayText: "fine now"}
	}}
	var out bytes.Buffer
	in := strings.NewReader("first\nsecond\n")

	require.NoError(t, New(runner, in, &out, false, nil).Run(context.Background()))
	assert.Len(t, runner.inputs, 2)
	assert.Contains(t, out.String(), "Jarvis: "+agent.ApologyBackend)
	assert.Contains(t, out.String(), "Jarvis: fine now")
}

func TestConsole_EmptyLineListens(t *testing.T) {
	runner := &scriptedRunner{respond: func(in agent.TurnInput) agent.TurnResult {
		if in.Audio != nil {
			return agent.TurnResult{DisplayText: agent.ApologyNotHeard, ErrorKind: errorsx.Unintelligible}
		}
		return agent.TurnResult{Utterance: in.Text, DisplayText: "ok"}
	}}
	var out bytes.Buffer
	require.NoError(t, New(runner, strings.NewReader("\nhi\n"), &out, false, nil).Run(context.Background()))

	require.Len(t, runner.inputs, 2)
	require.NotNil(t, runner.inputs[0].Audio)
	assert.Equal(t, agent.Microphone, runner.inputs[0].Audio.Source)
	assert.Nil(t, runner.inputs[0].Audio.Stop)
	assert.Contains(t, out.String(), "Jarvis: "+agent.ApologyNotHeard)
}

func TestConsole_PushToTalkStopsOnEnter(t *testing.T) {
	stopped := make(chan bool, 1)
	runner := &scriptedRunner{respond: func(in agent.TurnInput) agent.TurnResult {
		if in.Audio != nil {
			select {
			case <-in.Audio.Stop:
				stopped <- true
			case <-time.After(2 * time.Second):
				stopped <- false
			}
			return agent.TurnResult{Utterance: "spoken words", DisplayText: "heard you"}
		}
		return agent.TurnResult{Utterance: in.Text, DisplayText: "ok"}
	}}

	pr, pw := io.Pipe()
	var out safeBuffer
	done := make(chan error, 1)
	go func() { done <- New(runner, pr, &out, true, nil).Run(context.Background()) }()

	_, _ = pw.Write([]byte("\n"))
	_, _ = pw.Write([]byte("\n"))
	assert.True(t, <-stopped)
	require.NoError(t, pw.Close())
	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "You: spoken words")
}

func TestConsole_PushToTalkKeepsLineTypedWhileAnswering(t *testing.T) {
	recorded := make(chan struct{})
	answer := make(chan struct{})
	runner := &scriptedRunner{respond: func(in agent.TurnInput) agent.TurnResult {
		if in.Audio != nil {
			in.Audio.Captured()
			close(recorded)
			<-answer
			return agent.TurnResult{Utterance: "spoken words", DisplayText: "heard you"}
		}
		return agent.TurnResult{Utterance: in.Text, DisplayText: "answer to " + in.Text}
	}}

	pr, pw := io.Pipe()
	var out safeBuffer
	done := make(chan error, 1)
	go func() { done <- New(runner, pr, &out, true, nil).Run(context.Background()) }()

	_, _ = pw.Write([]byte("\n"))
	<-recorded
	_, _ = pw.Write([]byte("what now\n"))
	close(answer)
	require.NoError(t, pw.Close())
	require.NoError(t, <-done)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.inputs, 2)
	assert.Equal(t, "what now", runner.inputs[1].Text)
	assert.Contains(t, out.String(), "Jarvis: answer to what now")
}

func TestConsole_ContextCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(echoRunner(), pr, io.Discard, false, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
