// Package transcript turns speech clips into text through a hosted
// recognition service.
package transcript

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/audio"
	"github.com/chadiek/jarvis/internal/errorsx"
)

var (
	ErrEmptyTranscript = errorsx.New(errorsx.Unintelligible, "empty transcript")
	ErrNoMicrophone    = errorsx.New(errorsx.ServiceError, "no microphone configured")
	ErrMissingKey      = errors.New("missing api key")
)

// Recognizer sends a canonical clip to a speech service.
type Recognizer interface {
	Recognize(ctx context.Context, clip audio.Clip) (string, error)
}

// Capturer records a bounded clip from a live input.
type Capturer interface {
	Capture(ctx context.Context, opts audio.CaptureOptions) (audio.Clip, error)
}

// Transcriber combines a recognizer with an optional microphone and
// classifies every failure as Unintelligible or ServiceError.
type Transcriber struct {
	rec Recognizer
	mic Capturer
	log *zap.Logger
}

// NewTranscriber builds a Transcriber. mic may be nil when live capture is
// not available (HTTP service).
func NewTranscriber(rec Recognizer, mic Capturer, log *zap.Logger) *Transcriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transcriber{rec: rec, mic: mic, log: log}
}

// TranscribeClip recognizes an already normalized clip.
func (t *Transcriber) TranscribeClip(ctx context.Context, clip audio.Clip) (string, error) {
	if clip.Empty() {
		return "", ErrEmptyTranscript
	}
	text, err := t.rec.Recognize(ctx, clip)
	if err != nil {
		t.log.Warn("recognition failed", zap.Duration("clip", clip.Duration()), zap.Error(err))
		return "", errorsx.Wrap(err, errorsx.ServiceError)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	t.log.Debug("recognized", zap.String("text", text))
	return text, nil
}

// TranscribeLive captures from the microphone, then recognizes the clip.
func (t *Transcriber) TranscribeLive(ctx context.Context, opts audio.CaptureOptions) (string, error) {
	if t.mic == nil {
		return "", ErrNoMicrophone
	}
	clip, err := t.mic.Capture(ctx, opts)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ServiceError)
	}
	return t.TranscribeClip(ctx, clip)
}
