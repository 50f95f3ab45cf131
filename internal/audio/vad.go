package audio

import (
	"encoding/binary"
	"math"
)

// VoiceRMS is the energy above which a frame counts as speech.
const VoiceRMS = 250.0

// minFrameSamples is 10ms at 16 kHz.
const minFrameSamples = 160

// RMS returns the root mean square of 16-bit samples.
func RMS(pcm []int16) float64 {
	if len(pcm) == 0 {
		return 0
	}
	var sumSquares float64
	for _, v := range pcm {
		sumSquares += float64(v) * float64(v)
	}
	return math.Sqrt(sumSquares / float64(len(pcm)))
}

// HasVoice reports whether a little-endian 16-bit PCM buffer carries speech
// energy. Short buffers never do.
func HasVoice(pcm []byte) bool {
	if len(pcm) < minFrameSamples*2 {
		return false
	}
	// sample sparsely on big chunks
	step := 1
	if len(pcm) > 3200 {
		step = 2
	}
	var sumSquares float64
	count := 0
	for i := 0; i+1 < len(pcm); i += 2 * step {
		v := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		sumSquares += float64(v) * float64(v)
		count++
	}
	if count == 0 {
		return false
	}
	return math.Sqrt(sumSquares/float64(count)) >= VoiceRMS
}

// BytesToPCM reinterprets little-endian 16-bit bytes as samples.
func BytesToPCM(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}
