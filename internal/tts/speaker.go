// Package tts speaks answers through a system speech command or a hosted
// voice, one utterance at a time.
package tts

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/errorsx"
)

// ErrAlreadyRunning is returned by an engine asked to speak while it is
// still busy with a previous utterance.
var ErrAlreadyRunning = errors.New("tts engine already running")

// Voice selects how text is rendered.
type Voice struct {
	ID     string
	Volume float64
	Rate   int
}

// VoiceFrom extracts the voice knobs of a runtime config.
func VoiceFrom(cfg config.RuntimeConfig) Voice {
	return Voice{ID: cfg.VoiceID, Volume: cfg.Volume, Rate: cfg.Rate}
}

// Engine renders text to the audio output.
type Engine interface {
	Say(ctx context.Context, text string) error
	Close() error
}

// EngineFactory builds a fresh engine for one utterance.
type EngineFactory func(Voice) (Engine, error)

// Speaker serializes playback and scopes one engine per utterance.
type Speaker struct {
	mu      sync.Mutex
	factory EngineFactory
	voice   Voice
	log     *zap.Logger
}

func NewSpeaker(factory EngineFactory, voice Voice, log *zap.Logger) *Speaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Speaker{factory: factory, voice: voice, log: log}
}

// Speak renders text. The engine is always released, even when playback
// fails. A busy engine is not an error; everything else is SynthesisError.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, err := s.factory(s.voice)
	if err != nil {
		return errorsx.Wrap(err, errorsx.SynthesisError)
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			s.log.Warn("release tts engine", zap.Error(cerr))
		}
	}()

	if err := eng.Say(ctx, text); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.log.Debug("tts engine busy, skipping utterance")
			return nil
		}
		return errorsx.Wrap(err, errorsx.SynthesisError)
	}
	return nil
}
