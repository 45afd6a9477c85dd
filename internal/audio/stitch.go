package audio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// Peak alignment target: 90% of int16 full scale. Normalizing every chunk to
// the same peak equalizes loudness across backends and guards against
// clipping from hot backend output.
const (
	maxSample      = 32767
	minSample      = -32768
	normalizedPeak = 0.9 * maxSample
)

// Normalize scales the buffer so its peak reaches 90% of full scale.
// Silent buffers pass through unchanged.
func Normalize(b Buffer) Buffer {
	var peak int32
	for _, s := range b.Samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return b
	}

	factor := normalizedPeak / float64(peak)
	out := make([]int16, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = clampSample(float64(s) * factor)
	}
	return Buffer{Rate: b.Rate, Samples: out}
}

// Stitch combines ordered WAV chunks into one continuous waveform. Every
// chunk is peak-normalized, resampled to the first chunk's rate when rates
// differ, and joined with a linear crossfade of crossfadeMs at each boundary
// to eliminate audible seams. Input order is left-to-right speech order and
// must be preserved by callers.
func Stitch(chunks [][]byte, crossfadeMs int) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	first, err := decodeNormalized(chunks[0])
	if err != nil {
		return nil, err
	}
	if len(chunks) == 1 {
		return EncodeWAV(first), nil
	}

	log.Debug().
		Int("chunks", len(chunks)).
		Int("crossfade_ms", crossfadeMs).
		Msg("stitching audio chunks")

	result := first
	for i, raw := range chunks[1:] {
		next, err := decodeNormalized(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode chunk %d: %w", i+1, err)
		}
		if next.Rate != result.Rate {
			next = Resample(next, result.Rate)
		}
		result = crossfade(result, next, crossfadeMs)
	}

	return EncodeWAV(result), nil
}

// StitchWithGaps joins chunks with gapMs of silence between them instead of
// crossfading. Suited to dialogue-style concatenation where a pause, not a
// blend, is wanted.
func StitchWithGaps(chunks [][]byte, gapMs int) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	result, err := decodeNormalized(chunks[0])
	if err != nil {
		return nil, err
	}
	if len(chunks) == 1 {
		return EncodeWAV(result), nil
	}

	gap := make([]int16, gapMs*result.Rate/1000)
	for i, raw := range chunks[1:] {
		next, err := decodeNormalized(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode chunk %d: %w", i+1, err)
		}
		if next.Rate != result.Rate {
			next = Resample(next, result.Rate)
		}
		result.Samples = append(result.Samples, gap...)
		result.Samples = append(result.Samples, next.Samples...)
	}

	return EncodeWAV(result), nil
}

// Resample converts a buffer to the target rate using linear interpolation.
func Resample(b Buffer, targetRate int) Buffer {
	if b.Rate == targetRate || len(b.Samples) == 0 {
		return Buffer{Rate: targetRate, Samples: b.Samples}
	}

	n := int(float64(len(b.Samples)) * float64(targetRate) / float64(b.Rate))
	out := make([]int16, n)
	ratio := float64(b.Rate) / float64(targetRate)

	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		if idx >= len(b.Samples)-1 {
			out[i] = b.Samples[len(b.Samples)-1]
			continue
		}
		s0 := float64(b.Samples[idx])
		s1 := float64(b.Samples[idx+1])
		out[i] = int16(s0 + frac*(s1-s0))
	}

	return Buffer{Rate: targetRate, Samples: out}
}

// crossfade merges two same-rate buffers with a linear fade-out over a's
// tail summed against a linear fade-in over b's head. A zero-length window
// (short buffers, or crossfadeMs 0) degrades to plain concatenation.
func crossfade(a, b Buffer, crossfadeMs int) Buffer {
	window := crossfadeMs * a.Rate / 1000
	window = min(window, len(a.Samples), len(b.Samples))

	if window <= 0 {
		return Buffer{Rate: a.Rate, Samples: append(a.Samples, b.Samples...)}
	}

	out := make([]int16, 0, len(a.Samples)+len(b.Samples)-window)
	out = append(out, a.Samples[:len(a.Samples)-window]...)

	tail := a.Samples[len(a.Samples)-window:]
	head := b.Samples[:window]
	steps := float64(window - 1)
	if steps == 0 {
		steps = 1
	}
	for i := 0; i < window; i++ {
		fadeOut := 1.0 - float64(i)/steps
		fadeIn := 1.0 - fadeOut
		blended := float64(tail[i])*fadeOut + float64(head[i])*fadeIn
		out = append(out, clampSample(blended))
	}

	out = append(out, b.Samples[window:]...)
	return Buffer{Rate: a.Rate, Samples: out}
}

func decodeNormalized(wav []byte) (Buffer, error) {
	b, err := DecodeWAV(wav)
	if err != nil {
		return Buffer{}, err
	}
	return Normalize(b), nil
}

// clampSample converts a float sample back to int16 with hard clamping so
// blending overflow cannot wrap around.
func clampSample(v float64) int16 {
	if v > maxSample {
		return maxSample
	}
	if v < minSample {
		return minSample
	}
	return int16(math.Round(v))
}
