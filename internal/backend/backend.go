// Package backend defines the capability contract every TTS backend adapter
// implements and the router that selects which backend serves a request.
// Adapters normalize each service's wire quirks (JSON envelopes, audio URLs,
// raw PCM) into plain audio bytes before anything reaches the pipeline.
package backend

import (
	"context"
	"errors"
	"time"
)

// Outbound call bounds. Probes must answer fast enough to sit on the request
// path; generation is allowed to run much longer on loaded GPU services.
const (
	ProbeTimeout    = 2 * time.Second
	GenerateTimeout = 120 * time.Second
)

var (
	// ErrNoBackendAvailable means every registered backend failed its probe.
	ErrNoBackendAvailable = errors.New("no TTS backend available")

	// ErrUnknownBackend means a name does not match any registered adapter.
	ErrUnknownBackend = errors.New("unknown backend")
)

// GenerateRequest carries one chunk of text to synthesize.
type GenerateRequest struct {
	// Text is the chunk to speak.
	Text string

	// Voice is a reference audio path for cloning backends, or a preset /
	// provider voice identifier otherwise.
	Voice string

	// Transcript is the transcript of the reference audio; empty for
	// preset-voice backends.
	Transcript string

	// Format is the desired output container ("wav" during chunked
	// generation, possibly the final format on the direct path).
	Format string
}

// Backend is the uniform capability contract over the heterogeneous fleet
// of local GPU services and cloud providers.
type Backend interface {
	// Name returns the stable identifier used as a routing key.
	Name() string

	// Port returns the service's default port; 0 for cloud services.
	Port() int

	// CostGB returns the approximate VRAM footprint; 0 for cloud services.
	CostGB() int

	// IsAvailable probes liveness. It never returns an error: network
	// failures read as unavailable so routing can always decide.
	IsAvailable(ctx context.Context) bool

	// Generate synthesizes one chunk and returns raw audio bytes in the
	// requested format.
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)

	// ListVoices returns the backend's advertised voice names, if any.
	ListVoices(ctx context.Context) []string
}
