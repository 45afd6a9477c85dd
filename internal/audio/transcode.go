package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Transcoding defaults. ffmpeg runs as a subprocess on temp files; stdin/out
// piping is avoided because some muxers (mp4/aac) need seekable output.
const (
	defaultFFmpegPath    = "ffmpeg"
	defaultFFmpegTimeout = 60 * time.Second
	tempFilePerm         = 0o600
)

// Content types for every format the proxy can return.
var contentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"opus": "audio/opus",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"pcm":  "audio/pcm",
}

// ContentType maps a response format to its MIME type.
func ContentType(format string) string {
	if ct, ok := contentTypes[strings.ToLower(format)]; ok {
		return ct
	}
	return "audio/mpeg"
}

// IsSupportedFormat reports whether format is one the proxy can produce.
func IsSupportedFormat(format string) bool {
	_, ok := contentTypes[strings.ToLower(format)]
	return ok
}

// Transcoder converts lossless WAV output into the caller's requested
// format via ffmpeg.
type Transcoder struct {
	FFmpegPath string
	Timeout    time.Duration
}

// NewTranscoder returns a Transcoder using ffmpeg from PATH.
func NewTranscoder() *Transcoder {
	return &Transcoder{FFmpegPath: defaultFFmpegPath, Timeout: defaultFFmpegTimeout}
}

// Transcode converts WAV bytes to the target format. WAV in, WAV out is a
// pass-through. A non-zero ffmpeg exit or timeout surfaces as an error; the
// caller decides whether to discard the lossless original.
func (t *Transcoder) Transcode(ctx context.Context, wav []byte, format string) ([]byte, error) {
	format = strings.ToLower(format)
	if format == "wav" {
		return wav, nil
	}
	if !IsSupportedFormat(format) {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	tempDir, err := os.MkdirTemp("", "unitts-transcode-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", tempDir).Msg("failed to remove temp directory")
		}
	}()

	inputPath := filepath.Join(tempDir, "input.wav")
	outputPath := filepath.Join(tempDir, "output."+outputExt(format))

	if err := os.WriteFile(inputPath, wav, tempFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	args := buildFFmpegArgs(inputPath, outputPath, format)
	cmd := exec.CommandContext(ctx, t.FFmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := string(out)
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, detail)
	}

	result, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcoded output: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("in_bytes", len(wav)).
		Int("out_bytes", len(result)).
		Msg("transcoded audio")

	return result, nil
}

// outputExt picks the container extension ffmpeg infers the muxer from.
func outputExt(format string) string {
	switch format {
	case "opus":
		return "opus"
	case "pcm":
		return "pcm"
	default:
		return format
	}
}

// buildFFmpegArgs assembles per-format codec flags.
func buildFFmpegArgs(inputPath, outputPath, format string) []string {
	args := []string{"-y", "-i", inputPath, "-vn"}

	switch format {
	case "mp3":
		args = append(args, "-codec:a", "libmp3lame", "-q:a", "2")
	case "opus":
		args = append(args, "-codec:a", "libopus", "-b:a", "128k")
	case "aac":
		args = append(args, "-codec:a", "aac", "-b:a", "128k")
	case "flac":
		args = append(args, "-codec:a", "flac")
	case "pcm":
		args = append(args, "-f", "s16le", "-acodec", "pcm_s16le")
	}

	return append(args, outputPath)
}
