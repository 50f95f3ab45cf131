package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/errorsx"
)

// Capture defaults.
const (
	DefaultCaptureLimit = 5 * time.Second
	// Trailing silence that ends a capture once speech was heard.
	DefaultSilenceHold = 800 * time.Millisecond
)

var ErrNoSpeech = errorsx.New(errorsx.Unintelligible, "no speech detected")

// CaptureOptions bounds a single microphone capture.
type CaptureOptions struct {
	// Limit caps the recording length. Zero means DefaultCaptureLimit.
	Limit time.Duration
	// Stop ends the capture early when closed (push-to-talk).
	Stop <-chan struct{}
	// StopOnSilence ends the capture after trailing silence.
	StopOnSilence bool
	// OnCaptured, when set, is called once recording has ended, before the
	// clip is recognized. It runs on every return path.
	OnCaptured func()
}

// Source delivers little-endian 16-bit mono PCM at SampleRate to onData
// until the returned stop function is called.
type Source interface {
	Open(onData func(pcm []byte)) (stop func(), err error)
}

// Microphone records from a Source, one capture at a time process-wide.
type Microphone struct {
	src  Source
	sem  chan struct{}
	log  *zap.Logger
	hold time.Duration
}

// NewMicrophone wraps src. A nil src uses the default input device.
func NewMicrophone(src Source, log *zap.Logger) *Microphone {
	if src == nil {
		src = DeviceSource{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Microphone{src: src, sem: make(chan struct{}, 1), log: log, hold: DefaultSilenceHold}
}

// Capture records until the limit, the stop signal, trailing silence (when
// enabled) or ctx cancellation, whichever comes first. A capture without
// any speech energy fails with Unintelligible; device faults with
// ServiceError.
func (m *Microphone) Capture(ctx context.Context, opts CaptureOptions) (Clip, error) {
	if opts.OnCaptured != nil {
		defer opts.OnCaptured()
	}
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return Clip{}, errorsx.Wrap(ctx.Err(), errorsx.ServiceError)
	}
	defer func() { <-m.sem }()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultCaptureLimit
	}
	state := newCaptureState(limit, m.hold, opts.StopOnSilence)

	var (
		mu       sync.Mutex
		finished = make(chan struct{})
		once     sync.Once
	)
	stop, err := m.src.Open(func(pcm []byte) {
		mu.Lock()
		done := state.push(pcm)
		mu.Unlock()
		if done {
			once.Do(func() { close(finished) })
		}
	})
	if err != nil {
		m.log.Error("open microphone", zap.Error(err))
		return Clip{}, errorsx.Wrap(fmt.Errorf("open microphone: %w", err), errorsx.ServiceError)
	}

	timer := time.NewTimer(limit)
	defer timer.Stop()
	var ctxErr error
	select {
	case <-finished:
	case <-timer.C:
	case <-opts.Stop:
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}
	stop()

	if ctxErr != nil {
		return Clip{}, errorsx.Wrap(ctxErr, errorsx.ServiceError)
	}

	mu.Lock()
	pcm, heard := state.samples(), state.heardVoice
	mu.Unlock()
	m.log.Debug("capture finished",
		zap.Int("samples", len(pcm)),
		zap.Bool("voice", heard))
	if !heard {
		return Clip{}, ErrNoSpeech
	}
	clip, err := NewClip(pcm, SampleRate)
	if err != nil {
		return Clip{}, errorsx.Wrap(err, errorsx.ServiceError)
	}
	return clip, nil
}

// captureState accumulates PCM and decides when a capture is complete.
// Durations are counted in samples so the decision does not depend on
// callback timing.
type captureState struct {
	buf           []byte
	maxBytes      int
	holdSamples   int
	stopOnSilence bool

	heardVoice     bool
	silenceSamples int
}

func newCaptureState(limit, hold time.Duration, stopOnSilence bool) *captureState {
	return &captureState{
		maxBytes:      int(limit.Seconds()*SampleRate) * 2,
		holdSamples:   int(hold.Seconds() * SampleRate),
		stopOnSilence: stopOnSilence,
	}
}

// push appends a chunk and reports whether capture should end.
func (s *captureState) push(pcm []byte) bool {
	if room := s.maxBytes - len(s.buf); len(pcm) > room {
		pcm = pcm[:max(room, 0)]
	}
	s.buf = append(s.buf, pcm...)
	if HasVoice(pcm) {
		s.heardVoice = true
		s.silenceSamples = 0
	} else if s.heardVoice {
		s.silenceSamples += len(pcm) / 2
	}
	if len(s.buf) >= s.maxBytes {
		return true
	}
	return s.stopOnSilence && s.heardVoice && s.silenceSamples >= s.holdSamples
}

func (s *captureState) samples() []int16 { return BytesToPCM(s.buf) }

// DeviceSource captures from the system default input device.
type DeviceSource struct{}

// Open starts the default capture device in the canonical format.
func (DeviceSource) Open(onData func(pcm []byte)) (func(), error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	release := func() {
		_ = mctx.Uninit()
		mctx.Free()
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = Channels
	cfg.SampleRate = SampleRate
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			chunk := make([]byte, len(input))
			copy(chunk, input)
			onData(chunk)
		},
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		release()
		return nil, fmt.Errorf("start capture device: %w", err)
	}
	return func() {
		_ = device.Stop()
		device.Uninit()
		release()
	}, nil
}
