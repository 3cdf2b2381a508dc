// Package wav reads and writes 16-bit PCM WAV files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgnsrekt/murmur/internal/audio"
)

// WAV format constants.
const (
	// HeaderSize is the size of a canonical WAV header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1

	// BitsPerSample is the bit depth written by EncodeClip.
	BitsPerSample = 16
)

var (
	// ErrInvalidWAV is returned when data is not a RIFF/WAVE file.
	ErrInvalidWAV = errors.New("invalid WAV data")
	// ErrUnsupportedFormat is returned for anything but 16-bit PCM.
	ErrUnsupportedFormat = errors.New("unsupported WAV format")
)

// WrapRawPCM adds a canonical 44-byte header to raw PCM data.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	le := binary.LittleEndian
	header := make([]byte, HeaderSize, HeaderSize+dataSize)

	copy(header[0:4], "RIFF")
	le.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	le.PutUint32(header[16:20], 16)
	le.PutUint16(header[20:22], FormatPCM)
	le.PutUint16(header[22:24], uint16(channels))
	le.PutUint32(header[24:28], uint32(sampleRate))
	le.PutUint32(header[28:32], uint32(byteRate))
	le.PutUint16(header[32:34], uint16(blockAlign))
	le.PutUint16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	le.PutUint32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// EncodeClip renders a clip as a 16-bit PCM WAV file.
func EncodeClip(clip audio.Clip) []byte {
	channels := clip.Channels
	if channels < 1 {
		channels = 1
	}
	return WrapRawPCM(audio.Float32ToPCM16(clip.Samples), clip.SampleRate, channels, BitsPerSample)
}

// Decode parses a 16-bit PCM WAV file into a clip.
// Unknown chunks are skipped.
func Decode(data []byte) (audio.Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return audio.Clip{}, ErrInvalidWAV
	}

	le := binary.LittleEndian
	var (
		sampleRate, channels, bits, format int
		haveFmt                            bool
		pcm                                []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(le.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8:]
		if size > len(body) {
			size = len(body)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return audio.Clip{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			format = int(le.Uint16(body[0:2]))
			channels = int(le.Uint16(body[2:4]))
			sampleRate = int(le.Uint32(body[4:8]))
			bits = int(le.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			pcm = body[:size]
		}

		pos += 8 + size
		if size%2 != 0 {
			pos++
		}
	}

	if !haveFmt || pcm == nil {
		return audio.Clip{}, fmt.Errorf("%w: missing fmt or data chunk", ErrInvalidWAV)
	}
	if format != FormatPCM || bits != BitsPerSample {
		return audio.Clip{}, fmt.Errorf("%w: format %d, %d bits", ErrUnsupportedFormat, format, bits)
	}

	return audio.Clip{
		Samples:    audio.PCM16ToFloat32(pcm),
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}
