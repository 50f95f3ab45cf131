package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/errorsx"
)

// fakeSource plays chunks synchronously from a goroutine once opened.
type fakeSource struct {
	chunks  [][]byte
	openErr error
	stopped chan struct{}
}

func (f *fakeSource) Open(onData func([]byte)) (func(), error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.stopped = make(chan struct{})
	go func() {
		for _, c := range f.chunks {
			select {
			case <-f.stopped:
				return
			default:
				onData(c)
			}
		}
	}()
	return func() { close(f.stopped) }, nil
}

func chunks(n int, voiced bool) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		if voiced {
			out[i] = pcmBytes(sine(1600, SampleRate, 300, 6000))
		} else {
			out[i] = pcmBytes(make([]int16, 1600))
		}
	}
	return out
}

func TestCaptureState_StopsAfterTrailingSilence(t *testing.T) {
	s := newCaptureState(5*time.Second, 200*time.Millisecond, true)
	for _, c := range chunks(3, false) {
		assert.False(t, s.push(c), "silence before speech never ends capture")
	}
	assert.False(t, s.push(chunks(1, true)[0]))
	assert.False(t, s.push(chunks(1, false)[0]))
	assert.True(t, s.push(chunks(1, false)[0]))
	assert.True(t, s.heardVoice)
}

func TestCaptureState_RespectsLimit(t *testing.T) {
	s := newCaptureState(200*time.Millisecond, time.Second, false)
	assert.False(t, s.push(chunks(1, true)[0]))
	assert.True(t, s.push(chunks(1, true)[0]))
	assert.True(t, s.push(chunks(1, true)[0]), "full buffer stays full")
	assert.Len(t, s.samples(), 200*SampleRate/1000)
}

func TestCaptureState_PushToTalkIgnoresSilence(t *testing.T) {
	s := newCaptureState(5*time.Second, 100*time.Millisecond, false)
	s.push(chunks(1, true)[0])
	for _, c := range chunks(5, false) {
		assert.False(t, s.push(c))
	}
}

func TestMicrophone_CapturesSpeech(t *testing.T) {
	src := &fakeSource{chunks: append(chunks(4, true), chunks(10, false)...)}
	mic := NewMicrophone(src, zap.NewNop())

	clip, err := mic.Capture(context.Background(), CaptureOptions{Limit: 2 * time.Second, StopOnSilence: true})
	require.NoError(t, err)
	assert.False(t, clip.Empty())
	assert.Equal(t, SampleRate, clip.SampleRate)
}

func TestMicrophone_SilenceIsUnintelligible(t *testing.T) {
	src := &fakeSource{chunks: chunks(3, false)}
	mic := NewMicrophone(src, zap.NewNop())

	_, err := mic.Capture(context.Background(), CaptureOptions{Limit: 100 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSpeech)
	assert.True(t, errorsx.Is(err, errorsx.Unintelligible))
}

func TestMicrophone_DeviceErrorIsServiceError(t *testing.T) {
	mic := NewMicrophone(&fakeSource{openErr: errors.New("no device")}, nil)
	_, err := mic.Capture(context.Background(), CaptureOptions{})
	require.Error(t, err)
	assert.True(t, errorsx.Is(err, errorsx.ServiceError))
}

func TestMicrophone_StopSignal(t *testing.T) {
	src := &fakeSource{chunks: chunks(2, true)}
	mic := NewMicrophone(src, zap.NewNop())
	stop := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(stop)
	}()

	start := time.Now()
	clip, err := mic.Capture(context.Background(), CaptureOptions{Limit: 10 * time.Second, Stop: stop})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, clip.Empty())
}

func TestMicrophone_OnCapturedRunsOnEveryPath(t *testing.T) {
	for name, src := range map[string]*fakeSource{
		"speech":  {chunks: append(chunks(4, true), chunks(10, false)...)},
		"silence": {chunks: chunks(3, false)},
		"device":  {openErr: errors.New("no device")},
	} {
		t.Run(name, func(t *testing.T) {
			calls := 0
			mic := NewMicrophone(src, zap.NewNop())
			_, _ = mic.Capture(context.Background(), CaptureOptions{
				Limit:         100 * time.Millisecond,
				StopOnSilence: true,
				OnCaptured:    func() { calls++ },
			})
			assert.Equal(t, 1, calls)
		})
	}
}

func TestMicrophone_CanceledWhileBusy(t *testing.T) {
	mic := NewMicrophone(&fakeSource{}, nil)
	mic.sem <- struct{}{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mic.Capture(ctx, CaptureOptions{})
	require.Error(t, err)
	assert.True(t, errorsx.Is(err, errorsx.ServiceError))
}
