package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
)

// Discord voice takes 20ms frames of 48kHz stereo s16le.
const (
	DiscordSampleRate = 48000
	DiscordChannels   = 2
	DiscordFrameSize  = 960
	DiscordFrameBytes = DiscordFrameSize * DiscordChannels * 2
)

var (
	// ErrFFmpegNotFound is returned when ffmpeg is not installed.
	ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")
	// ErrResampleFailed wraps ffmpeg's stderr when it exits non-zero.
	ErrResampleFailed = errors.New("audio resample failed")
	// ErrEmptyClip is returned for a clip with no samples or no rate.
	ErrEmptyClip = errors.New("clip has no samples")
)

// Format describes raw s16le PCM output.
type Format struct {
	SampleRate int
	Channels   int
}

// DiscordFormat is the only format Discord voice accepts.
var DiscordFormat = Format{SampleRate: DiscordSampleRate, Channels: DiscordChannels}

// Converter resamples clips by piping raw float samples through ffmpeg.
type Converter struct {
	ffmpeg string
}

// NewConverter looks up ffmpeg in PATH.
func NewConverter() (*Converter, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, ErrFFmpegNotFound
	}
	return &Converter{ffmpeg: path}, nil
}

// NewConverterWithPath uses the ffmpeg binary at path.
func NewConverterWithPath(path string) *Converter {
	return &Converter{ffmpeg: path}
}

// Path returns the ffmpeg binary the converter runs.
func (c *Converter) Path() string {
	return c.ffmpeg
}

// Resample converts clip to s16le PCM in format.
func (c *Converter) Resample(ctx context.Context, clip Clip, format Format) ([]byte, error) {
	if clip.Empty() || clip.SampleRate <= 0 {
		return nil, ErrEmptyClip
	}
	channels := clip.Channels
	if channels < 1 {
		channels = 1
	}

	cmd := exec.CommandContext(ctx, c.ffmpeg,
		"-loglevel", "error",
		"-f", "f32le",
		"-ar", strconv.Itoa(clip.SampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(float32LE(clip.Samples))

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrResampleFailed, bytes.TrimSpace(stderr.Bytes()))
	}
	return out.Bytes(), nil
}

// DiscordPCM resamples clip to 48kHz stereo.
func (c *Converter) DiscordPCM(ctx context.Context, clip Clip) ([]byte, error) {
	return c.Resample(ctx, clip, DiscordFormat)
}

func float32LE(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}

// FrameReader splits Discord PCM into whole frames. The last frame is
// padded with silence.
type FrameReader struct {
	pcm []byte
	pos int
}

// NewFrameReader reads frames from pcm.
func NewFrameReader(pcm []byte) *FrameReader {
	return &FrameReader{pcm: pcm}
}

// Next returns the next frame, or io.EOF once the data is used up.
func (r *FrameReader) Next() ([]byte, error) {
	rest := len(r.pcm) - r.pos
	switch {
	case rest <= 0:
		return nil, io.EOF
	case rest < DiscordFrameBytes:
		frame := make([]byte, DiscordFrameBytes)
		copy(frame, r.pcm[r.pos:])
		r.pos = len(r.pcm)
		return frame, nil
	}
	frame := r.pcm[r.pos : r.pos+DiscordFrameBytes]
	r.pos += DiscordFrameBytes
	return frame, nil
}

// Frames returns how many frames Next will yield in total.
func (r *FrameReader) Frames() int {
	return (len(r.pcm) + DiscordFrameBytes - 1) / DiscordFrameBytes
}
