// Package audio normalizes captured and uploaded speech into the canonical
// clip format consumed by speech recognizers: 16 kHz mono 16-bit PCM WAV.
package audio

import (
	"bytes"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Canonical clip format.
const (
	SampleRate = 16000
	Channels   = 1
	BitDepth   = 16

	wavFormatPCM = 1
)

// Clip is a normalized speech recording.
type Clip struct {
	WAV        []byte
	Samples    int
	SampleRate int
}

// Duration reports the length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Samples) * time.Second / time.Duration(c.SampleRate)
}

// Empty reports whether the clip carries no samples.
func (c Clip) Empty() bool { return c.Samples == 0 }

// NewClip encodes mono 16-bit samples at rate into a WAV clip.
func NewClip(pcm []int16, rate int) (Clip, error) {
	data, err := EncodeWAV(pcm, rate)
	if err != nil {
		return Clip{}, err
	}
	return Clip{WAV: data, Samples: len(pcm), SampleRate: rate}, nil
}

// EncodeWAV writes mono 16-bit samples as a RIFF/WAVE file. The encoder
// needs to seek back to patch chunk sizes, so it goes through a temp file.
func EncodeWAV(pcm []int16, rate int) ([]byte, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", rate)
	}
	f, err := os.CreateTemp("", "jarvis-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, rate, BitDepth, Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: rate},
		Data:           make([]int, len(pcm)),
		SourceBitDepth: BitDepth,
	}
	for i, s := range pcm {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewind wav: %w", err)
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	return out.Bytes(), nil
}

// Downmix averages interleaved channels into a single channel.
func Downmix(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}
	out := make([]int16, len(interleaved)/channels)
	for i := range out {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(interleaved[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}
