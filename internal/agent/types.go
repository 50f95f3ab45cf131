package agent

import (
	"context"

	"github.com/chadiek/jarvis/internal/audio"
	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/errorsx"
	"github.com/chadiek/jarvis/internal/events"
)

// Transcoder normalizes an uploaded recording.
type Transcoder interface {
	Transcode(data []byte, declaredMIME string) (audio.Clip, error)
}

// Transcriber converts speech to text.
type Transcriber interface {
	TranscribeClip(ctx context.Context, clip audio.Clip) (string, error)
	TranscribeLive(ctx context.Context, opts audio.CaptureOptions) (string, error)
}

// Generator is a minimal interface to generate a single response for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg config.RuntimeConfig) (string, error)
}

// Speaker renders text as speech.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Publisher receives a record of every completed turn.
type Publisher interface {
	Publish(ctx context.Context, ev events.TurnEvent) error
}

// Source tells where audio input comes from.
type Source int

const (
	Microphone Source = iota + 1
	UploadedFile
)

// AudioInput is a spoken utterance.
type AudioInput struct {
	Data     []byte
	Source   Source
	MIMEType string
	// Stop ends a live capture early (push-to-talk).
	Stop <-chan struct{}
	// Captured is called once the microphone stops recording.
	Captured func()
}

// TurnInput carries exactly one of Text or Audio.
type TurnInput struct {
	Text  string
	Audio *AudioInput
}

// TextInput is a typed utterance.
func TextInput(text string) TurnInput { return TurnInput{Text: text} }

// UploadInput is a recorded file with its declared MIME type.
func UploadInput(data []byte, mimeType string) TurnInput {
	return TurnInput{Audio: &AudioInput{Data: data, Source: UploadedFile, MIMEType: mimeType}}
}

// LiveInput captures from the microphone; stop may be nil.
func LiveInput(stop <-chan struct{}) TurnInput {
	return TurnInput{Audio: &AudioInput{Source: Microphone, Stop: stop}}
}

// TurnResult is what a front-end shows and says.
type TurnResult struct {
	TurnID      string
	Utterance   string
	DisplayText string
	Spoken      bool
	ErrorKind   errorsx.Kind
	Farewell    bool
}

// Failed reports whether the turn ended in an apology.
func (r TurnResult) Failed() bool { return r.ErrorKind != errorsx.KindNone }
