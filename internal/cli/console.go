// Package cli runs the interactive question/answer loop.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/agent"
)

// Prompt is shown before every turn.
const Prompt = "Type your question, or press Enter to speak: "

// Runner is the orchestrator surface the console drives.
type Runner interface {
	Greet(ctx context.Context) (string, bool)
	Turn(ctx context.Context, in agent.TurnInput) agent.TurnResult
}

// Console reads lines from in and writes the conversation to out.
type Console struct {
	runner Runner
	in     io.Reader
	out    io.Writer
	ptt    bool
	log    *zap.Logger
}

// New builds a Console. With ptt set an empty line starts recording and
// the next Enter stops it.
func New(runner Runner, in io.Reader, out io.Writer, ptt bool, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{runner: runner, in: in, out: out, ptt: ptt, log: log}
}

// Run greets the user and loops until the farewell phrase, end of input or
// ctx cancellation. Failed turns print their apology and the loop goes on.
func (c *Console) Run(ctx context.Context) error {
	lines := readLines(c.in)

	greeting, _ := c.runner.Greet(ctx)
	fmt.Fprintln(c.out, "Jarvis: "+greeting)

	var (
		pending    string
		hasPending bool
	)
	for {
		fmt.Fprint(c.out, Prompt)
		var line string
		if hasPending {
			line, hasPending = strings.TrimSpace(pending), false
			fmt.Fprintln(c.out, line)
		} else {
			select {
			case <-ctx.Done():
				fmt.Fprintln(c.out)
				return ctx.Err()
			case l, ok := <-lines:
				if !ok {
					fmt.Fprintln(c.out)
					return nil
				}
				line = strings.TrimSpace(l)
			}
		}

		var res agent.TurnResult
		if line == "" {
			res, pending, hasPending = c.listen(ctx, lines)
		} else {
			res = c.runner.Turn(ctx, agent.TextInput(line))
		}

		if res.Utterance != "" {
			fmt.Fprintln(c.out, "You: "+res.Utterance)
		}
		if res.Farewell {
			c.log.Info("farewell received, exiting")
			return nil
		}
		if res.DisplayText != "" {
			fmt.Fprintln(c.out, "Jarvis: "+res.DisplayText)
		}
		if res.Failed() {
			c.log.Debug("turn failed", zap.String("kind", string(res.ErrorKind)))
		}
	}
}

// listen runs a microphone turn. In push-to-talk mode the next line read
// while recording ends the capture. A line typed after recording stopped is
// returned so the main loop can run it as the next turn.
func (c *Console) listen(ctx context.Context, lines <-chan string) (agent.TurnResult, string, bool) {
	if !c.ptt {
		fmt.Fprintln(c.out, "Listening...")
		return c.runner.Turn(ctx, agent.LiveInput(nil)), "", false
	}

	fmt.Fprintln(c.out, "Recording... press Enter to stop.")
	stop := make(chan struct{})
	captured := make(chan struct{})
	var once sync.Once
	markCaptured := func() { once.Do(func() { close(captured) }) }
	watcherDone := make(chan struct{})
	var (
		leftover    string
		hasLeftover bool
	)
	go func() {
		defer close(watcherDone)
		defer close(stop)
		select {
		case l, ok := <-lines:
			if !ok {
				return
			}
			select {
			case <-captured:
				leftover, hasLeftover = l, true
			default:
			}
		case <-captured:
		case <-ctx.Done():
		}
	}()

	in := agent.LiveInput(stop)
	in.Audio.Captured = markCaptured
	res := c.runner.Turn(ctx, in)
	markCaptured()
	<-watcherDone
	return res, leftover, hasLeftover
}

// readLines feeds lines from r until EOF.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}
