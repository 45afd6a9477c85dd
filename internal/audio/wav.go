// Package audio implements the signal-processing half of the pipeline:
// decoding and encoding mono PCM16 WAV, peak normalization, crossfade
// stitching of generated chunks, and ffmpeg-based format transcoding.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	wavHeaderSize  = 44
	bytesPerSample = 2
)

// ErrNotWAV is returned when decoded bytes lack a RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a WAV payload")

// Buffer is a decoded mono waveform: 16-bit signed samples at Rate Hz.
// Buffers are ephemeral; one is created per generated chunk and discarded
// once merged into the stitched result.
type Buffer struct {
	Rate    int
	Samples []int16
}

// DurationMs returns the buffer length in milliseconds.
func (b Buffer) DurationMs() int {
	if b.Rate == 0 {
		return 0
	}
	return len(b.Samples) * 1000 / b.Rate
}

// DecodeWAV parses a 16-bit PCM WAV payload into a mono Buffer. Stereo input
// is downmixed by averaging the channels, since every backend is asked for
// single-channel audio and the stitcher operates on mono.
func DecodeWAV(data []byte) (Buffer, error) {
	if len(data) < wavHeaderSize {
		return Buffer{}, ErrNotWAV
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Buffer{}, ErrNotWAV
	}

	// Walk the chunk list; fmt and data are not guaranteed to be adjacent.
	var (
		rate     int
		channels int
		bits     int
		pcm      []byte
	)
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Buffer{}, fmt.Errorf("audio: fmt chunk too small (%d bytes)", size)
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return Buffer{}, fmt.Errorf("audio: unsupported WAV format code %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned.
		offset = body + size + size%2
	}

	if rate == 0 || pcm == nil {
		return Buffer{}, ErrNotWAV
	}
	if bits != 16 {
		return Buffer{}, fmt.Errorf("audio: unsupported bit depth %d (want 16)", bits)
	}
	if channels < 1 || channels > 2 {
		return Buffer{}, fmt.Errorf("audio: unsupported channel count %d", channels)
	}

	frames := len(pcm) / (bytesPerSample * channels)
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		if channels == 1 {
			samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
		} else {
			l := int16(binary.LittleEndian.Uint16(pcm[i*2*bytesPerSample:]))
			r := int16(binary.LittleEndian.Uint16(pcm[i*2*bytesPerSample+bytesPerSample:]))
			samples[i] = int16((int32(l) + int32(r)) / 2)
		}
	}

	return Buffer{Rate: rate, Samples: samples}, nil
}

// EncodeWAV serializes a Buffer into a canonical 44-byte-header mono PCM16
// WAV payload.
func EncodeWAV(b Buffer) []byte {
	dataSize := len(b.Samples) * bytesPerSample
	byteRate := b.Rate * bytesPerSample

	out := make([]byte, wavHeaderSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(out[24:28], uint32(b.Rate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], bytesPerSample)
	binary.LittleEndian.PutUint16(out[34:36], 16)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[wavHeaderSize+i*bytesPerSample:], uint16(s))
	}

	return out
}

// WrapPCM wraps raw little-endian mono PCM16 bytes in a WAV header. Used for
// backends that return headerless PCM streams.
func WrapPCM(pcm []byte, rate int) []byte {
	samples := make([]int16, len(pcm)/bytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
	}
	return EncodeWAV(Buffer{Rate: rate, Samples: samples})
}
