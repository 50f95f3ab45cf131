// Package agent drives one request/response cycle of the assistant:
// acquire input, transcode and transcribe audio, build the prompt,
// generate, then respond.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/audio"
	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/errorsx"
	"github.com/chadiek/jarvis/internal/events"
	"github.com/chadiek/jarvis/internal/prompt"
)

// Fixed user-facing texts.
const (
	Greeting          = "Hello, I am Jarvis. How can I help you today?"
	DefaultFarewell   = "thank you for your help"
	ApologyNotHeard   = "I'm sorry, I didn't understand that."
	ApologyBackend    = "I'm sorry, I couldn't process that request."
	ApologyService    = "Speech recognition service error."
	ApologyFormat     = "Unsupported audio format. Please use WebM."
	ApologyProcessing = "An error occurred while processing the audio file."
)

// Apology maps a failure kind to its fixed user-facing text.
func Apology(kind errorsx.Kind) string {
	switch kind {
	case errorsx.Unintelligible, errorsx.EmptyInput:
		return ApologyNotHeard
	case errorsx.ServiceError:
		return ApologyService
	case errorsx.BackendError:
		return ApologyBackend
	case errorsx.UnsupportedFormat:
		return ApologyFormat
	}
	return ApologyProcessing
}

// Options tunes the orchestrator.
type Options struct {
	RecognitionTimeout time.Duration
	GenerationTimeout  time.Duration
	CaptureLimit       time.Duration
	// PushToTalk disables silence detection on live capture.
	PushToTalk bool
	// Speak renders every answer through the Speaker.
	Speak bool
	// Farewell ends the conversation when typed or said; empty disables it.
	Farewell string
}

// Deps are the collaborators of an Assistant. Transcoder, Transcriber,
// Speaker, Events and Listener are optional.
type Deps struct {
	Config      config.RuntimeConfig
	Transcoder  Transcoder
	Transcriber Transcriber
	Generator   Generator
	Speaker     Speaker
	Events      Publisher
	Listener    StateListener
}

// Assistant is the turn orchestrator shared by every front-end.
type Assistant struct {
	cfg  config.RuntimeConfig
	deps Deps
	opts Options
	log  *zap.Logger
}

// New builds an Assistant.
func New(deps Deps, opts Options, log *zap.Logger) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RecognitionTimeout <= 0 {
		opts.RecognitionTimeout = 30 * time.Second
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 60 * time.Second
	}
	if opts.CaptureLimit <= 0 {
		opts.CaptureLimit = audio.DefaultCaptureLimit
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	return &Assistant{cfg: deps.Config, deps: deps, opts: opts, log: log}
}

// Config returns the runtime config every turn uses.
func (a *Assistant) Config() config.RuntimeConfig { return a.cfg }

// Greet speaks the greeting and returns it.
func (a *Assistant) Greet(ctx context.Context) (string, bool) {
	return Greeting, a.say(ctx, Greeting)
}

// Turn runs one full cycle. It never fails: every fault ends in a fixed
// apology with ErrorKind set.
func (a *Assistant) Turn(ctx context.Context, in TurnInput) TurnResult {
	start := time.Now()
	res := TurnResult{TurnID: uuid.NewString()}
	log := a.log.With(zap.String("turn_id", res.TurnID), zap.String("session_id", a.cfg.SessionID))
	fsm := newTurnFSM(res.TurnID, a.deps.Listener)
	step := func(to State, reason string) {
		if err := fsm.transition(to, reason); err != nil {
			log.Error("turn state", zap.Error(err))
		}
	}

	step(StateAcquiring, sourceName(in))
	utterance, err := a.acquire(ctx, in, step)
	if err != nil {
		return a.finish(ctx, log, fsm, start, in, a.fail(log, res, err, errorsx.ServiceError))
	}
	res.Utterance = utterance

	if a.isFarewell(utterance) {
		res.Farewell = true
		step(StateResponding, "farewell")
		return a.finish(ctx, log, fsm, start, in, res)
	}

	step(StatePrompting, "utterance ready")
	p := prompt.Build(a.cfg.Ability, utterance)

	step(StateGenerating, "prompt built")
	gctx, cancel := context.WithTimeout(ctx, a.opts.GenerationTimeout)
	answer, err := a.deps.Generator.Generate(gctx, p, a.cfg)
	cancel()
	if err != nil {
		step(StateResponding, "generation failed")
		return a.finish(ctx, log, fsm, start, in, a.fail(log, res, err, errorsx.BackendError))
	}

	step(StateResponding, "answer ready")
	res.DisplayText = answer
	res.Spoken = a.say(ctx, answer)
	return a.finish(ctx, log, fsm, start, in, res)
}

// acquire resolves the input to an utterance, moving through the audio
// states as needed. On failure the FSM is left in Responding.
func (a *Assistant) acquire(ctx context.Context, in TurnInput, step func(State, string)) (string, error) {
	if in.Audio == nil {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			step(StateResponding, "empty input")
			return "", errorsx.New(errorsx.EmptyInput, "no utterance provided")
		}
		return text, nil
	}
	if a.deps.Transcriber == nil {
		step(StateResponding, "no transcriber")
		return "", errorsx.New(errorsx.ServiceError, "speech recognition not configured")
	}

	rctx, cancel := context.WithTimeout(ctx, a.opts.RecognitionTimeout)
	defer cancel()

	switch in.Audio.Source {
	case UploadedFile:
		if !audio.AcceptsMIME(in.Audio.MIMEType) {
			step(StateResponding, "unsupported format")
			return "", audio.ErrUnsupportedMIME
		}
		if a.deps.Transcoder == nil {
			step(StateResponding, "no transcoder")
			return "", errorsx.New(errorsx.UnsupportedFormat, "audio uploads not supported")
		}
		step(StateTranscoding, "upload received")
		clip, err := a.deps.Transcoder.Transcode(in.Audio.Data, in.Audio.MIMEType)
		if err != nil {
			step(StateResponding, "transcode failed")
			return "", errorsx.Wrap(err, errorsx.UnsupportedFormat)
		}
		step(StateTranscribing, "clip ready")
		text, err := a.deps.Transcriber.TranscribeClip(rctx, clip)
		if err != nil {
			step(StateResponding, "transcription failed")
			return "", err
		}
		return text, nil
	default:
		step(StateTranscribing, "live capture")
		text, err := a.deps.Transcriber.TranscribeLive(rctx, audio.CaptureOptions{
			Limit:         a.opts.CaptureLimit,
			Stop:          in.Audio.Stop,
			StopOnSilence: !a.opts.PushToTalk,
			OnCaptured:    in.Audio.Captured,
		})
		if err != nil {
			step(StateResponding, "transcription failed")
			return "", err
		}
		return text, nil
	}
}

func (a *Assistant) fail(log *zap.Logger, res TurnResult, err error, fallback errorsx.Kind) TurnResult {
	kind := errorsx.KindOr(err, fallback)
	log.Warn("turn failed", zap.String("kind", string(kind)), zap.Error(err))
	res.ErrorKind = kind
	res.DisplayText = Apology(kind)
	return res
}

// finish speaks a pending apology, returns to Idle and publishes the event.
func (a *Assistant) finish(ctx context.Context, log *zap.Logger, fsm *turnFSM, start time.Time, in TurnInput, res TurnResult) TurnResult {
	if res.Failed() {
		res.Spoken = a.say(ctx, res.DisplayText)
	}
	if err := fsm.transition(StateIdle, "turn complete"); err != nil {
		log.Error("turn state", zap.Error(err))
	}
	elapsed := time.Since(start)
	log.Info("turn complete",
		zap.String("error_kind", string(res.ErrorKind)),
		zap.Bool("spoken", res.Spoken),
		zap.Bool("farewell", res.Farewell),
		zap.Duration("elapsed", elapsed))

	ev := events.TurnEvent{
		ID:         res.TurnID,
		SessionID:  a.cfg.SessionID,
		Source:     sourceName(in),
		Utterance:  res.Utterance,
		Answer:     res.DisplayText,
		ErrorKind:  string(res.ErrorKind),
		Spoken:     res.Spoken,
		Farewell:   res.Farewell,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if err := a.deps.Events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn("publish turn event", zap.Error(err))
	}
	return res
}

// say speaks text when speaking is enabled; synthesis faults are logged
// and never fail the turn.
func (a *Assistant) say(ctx context.Context, text string) bool {
	if !a.opts.Speak || a.deps.Speaker == nil || text == "" {
		return false
	}
	if err := a.deps.Speaker.Speak(ctx, text); err != nil {
		a.log.Warn("speech synthesis failed", zap.String("kind", string(errorsx.KindOr(err, errorsx.SynthesisError))), zap.Error(err))
		return false
	}
	return true
}

func (a *Assistant) isFarewell(utterance string) bool {
	return a.opts.Farewell != "" && strings.EqualFold(strings.TrimSpace(utterance), a.opts.Farewell)
}

func sourceName(in TurnInput) string {
	if in.Audio == nil {
		return "text"
	}
	if in.Audio.Source == UploadedFile {
		return "upload"
	}
	return "microphone"
}
