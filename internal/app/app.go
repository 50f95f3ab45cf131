// Package app wires the assistant's dependency graph from configuration.
package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/agent"
	"github.com/chadiek/jarvis/internal/audio"
	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/events"
	"github.com/chadiek/jarvis/internal/llm"
	"github.com/chadiek/jarvis/internal/logging"
	"github.com/chadiek/jarvis/internal/transcript"
	"github.com/chadiek/jarvis/internal/tts"
)

// Mode selects the front-end being built.
type Mode int

const (
	ModeCLI Mode = iota
	ModeServer
)

// App holds the constructed graph.
type App struct {
	Assistant *agent.Assistant
	Speaker   *tts.Speaker

	closers []func() error
}

// Build constructs every collaborator once and injects them into the
// orchestrator. The microphone is only opened by the CLI.
func Build(cfg config.Config, mode Mode, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{}

	gen, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}

	var mic transcript.Capturer
	if mode == ModeCLI {
		mic = audio.NewMicrophone(nil, logging.Component(log, "microphone"))
	}
	transcriber := transcript.NewTranscriber(NewRecognizer(cfg), mic, logging.Component(log, "transcript"))

	a.Speaker = tts.NewSpeaker(NewEngineFactory(cfg), tts.VoiceFrom(cfg.Runtime), logging.Component(log, "tts"))

	var publisher agent.Publisher = events.Nop{}
	if cfg.Events.NATSURL != "" {
		p, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logging.Component(log, "events"))
		if err != nil {
			return nil, err
		}
		publisher = p
		a.closers = append(a.closers, p.Close)
	}

	opts := agent.Options{
		RecognitionTimeout: cfg.RecognitionTimeout,
		GenerationTimeout:  cfg.GenerationTimeout,
		CaptureLimit:       cfg.CaptureLimit,
		PushToTalk:         cfg.PTT,
		Speak:              mode == ModeCLI || cfg.Speak,
	}
	if mode == ModeCLI {
		opts.Farewell = agent.DefaultFarewell
	}

	a.Assistant = agent.New(agent.Deps{
		Config:      cfg.Runtime,
		Transcoder:  audio.NewTranscoder(logging.Component(log, "transcoder")),
		Transcriber: transcriber,
		Generator:   gen,
		Speaker:     a.Speaker,
		Events:      publisher,
	}, opts, logging.Component(log, "agent"))
	return a, nil
}

// NewGenerator selects the backend once for the process lifetime.
func NewGenerator(cfg config.Config) (agent.Generator, error) {
	switch cfg.Backend {
	case config.BackendRemote:
		return llm.NewHuggingFaceClient(cfg.HuggingFace.APIKey, cfg.HuggingFace.URL), nil
	case config.BackendLocal:
		c, err := llm.NewOllamaClient(cfg.Ollama.Host, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// NewRecognizer selects the speech recognition provider.
func NewRecognizer(cfg config.Config) transcript.Recognizer {
	rc := cfg.Recognizer
	if rc.Provider == config.RecognizerDeepgram {
		return transcript.NewDeepgramClient(rc.DeepgramKey, rc.DeepgramModel, rc.Language)
	}
	return transcript.NewWhisperClient(rc.OpenAIKey, rc.OpenAIBaseURL, rc.Language, nil)
}

// NewEngineFactory selects the speech engine.
func NewEngineFactory(cfg config.Config) tts.EngineFactory {
	if cfg.TTS.Engine == config.EngineElevenLabs {
		return tts.ElevenLabsFactory(cfg.TTS.ElevenLabsKey, cfg.TTS.ElevenLabsModel)
	}
	return tts.SystemFactory()
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
