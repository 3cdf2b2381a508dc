// Package audio holds sample buffers and format conversion for synthesized
// speech.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Clip is a fixed-length buffer of normalized float samples in [-1, 1].
// Samples are interleaved when Channels > 1.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// NewMonoClip wraps mono samples at sampleRate.
func NewMonoClip(samples []float32, sampleRate int) Clip {
	return Clip{Samples: samples, SampleRate: sampleRate, Channels: 1}
}

// Frames returns the number of sample frames (samples per channel).
func (c Clip) Frames() int {
	if c.Channels <= 1 {
		return len(c.Samples)
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playback length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Empty reports whether the clip has no samples.
func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}

// Float32ToPCM16 converts float samples to 16-bit signed little-endian PCM,
// clamping values outside [-1, 1].
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(math.Round(v*math.MaxInt16))))
	}
	return out
}

// PCM16ToFloat32 converts 16-bit signed little-endian PCM to float samples.
// A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return out
}
