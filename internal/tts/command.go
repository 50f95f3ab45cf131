package tts

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

type flavor int

const (
	flavorSay flavor = iota
	flavorEspeak
)

// ErrNoSpeechCommand means neither say nor espeak-ng is installed.
var ErrNoSpeechCommand = errors.New("no speech command found (tried say, espeak-ng, espeak)")

// CommandEngine speaks through the platform speech command: say on macOS,
// espeak-ng elsewhere. Text is passed on stdin.
type CommandEngine struct {
	path   string
	flavor flavor
	voice  Voice

	mu      sync.Mutex
	running *exec.Cmd
}

// LookupSpeechCommand finds the first available speech binary.
func LookupSpeechCommand() (string, error) {
	for _, name := range []string{"say", "espeak-ng", "espeak"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrNoSpeechCommand
}

// NewCommandEngine builds an engine around the binary at path.
func NewCommandEngine(path string, voice Voice) *CommandEngine {
	f := flavorEspeak
	if filepath.Base(path) == "say" {
		f = flavorSay
	}
	return &CommandEngine{path: path, flavor: f, voice: voice}
}

// SystemFactory returns a factory for the detected speech command.
func SystemFactory() EngineFactory {
	return func(v Voice) (Engine, error) {
		path, err := LookupSpeechCommand()
		if err != nil {
			return nil, err
		}
		return NewCommandEngine(path, v), nil
	}
}

// args returns the command line and the stdin payload for text.
func (e *CommandEngine) args(text string) ([]string, string) {
	switch e.flavor {
	case flavorSay:
		args := []string{"-r", strconv.Itoa(e.voice.Rate)}
		if e.voice.ID != "" {
			args = append(args, "-v", e.voice.ID)
		}
		// say has no volume flag; the embedded command scales the utterance.
		return append(args, "-f", "-"), fmt.Sprintf("[[volm %.2f]] %s", e.voice.Volume, text)
	default:
		args := []string{
			"-s", strconv.Itoa(e.voice.Rate),
			"-a", strconv.Itoa(int(e.voice.Volume * 200)),
		}
		if e.voice.ID != "" {
			args = append(args, "-v", e.voice.ID)
		}
		return append(args, "--stdin"), text
	}
}

// Say blocks until the utterance has been spoken or ctx is done.
func (e *CommandEngine) Say(ctx context.Context, text string) error {
	args, stdin := e.args(text)
	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Stdin = strings.NewReader(stdin)

	e.mu.Lock()
	if e.running != nil {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = cmd
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = nil
		e.mu.Unlock()
	}()

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(e.path), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Close stops an utterance still in progress.
func (e *CommandEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running != nil && e.running.Process != nil {
		return e.running.Process.Kill()
	}
	return nil
}
