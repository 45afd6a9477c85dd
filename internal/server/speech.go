package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/unitts/unitts/internal/audio"
	"github.com/unitts/unitts/internal/backend"
	"github.com/unitts/unitts/internal/chunker"
	"github.com/unitts/unitts/internal/profile"
)

// speechRequest is the OpenAI-compatible request body. Model and speed are
// accepted for compatibility and ignored.
type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// directFormats are the containers backends are asked to produce natively on
// the unchunked path; everything else goes through WAV plus a transcode.
var directFormats = map[string]bool{"wav": true, "mp3": true}

// resolution is the outcome of voice routing: the backend that must serve
// the request and the voice arguments to pass it.
type resolution struct {
	backend    backend.Backend
	voice      string
	transcript string
}

// errUnavailable is a routing failure that must surface as 503.
type errUnavailable struct{ msg string }

func (e errUnavailable) Error() string { return e.msg }

// errUnknownVoice is a routing failure that must surface as 400.
type errUnknownVoice struct{ msg string }

func (e errUnknownVoice) Error() string { return e.msg }

// handleSpeech drives the pipeline: route, maybe chunk, generate, maybe
// stitch, maybe transcode, respond.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeError(w, http.StatusBadRequest, "input text is required")
		return
	}
	if req.ResponseFormat == "" {
		req.ResponseFormat = "mp3"
	}
	if !audio.IsSupportedFormat(req.ResponseFormat) {
		writeError(w, http.StatusBadRequest, "unsupported response_format: "+req.ResponseFormat)
		return
	}

	res, err := s.resolveVoice(r, req.Voice)
	if err != nil {
		var unknown errUnknownVoice
		var unavailable errUnavailable
		switch {
		case errors.As(err, &unknown):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &unavailable), errors.Is(err, backend.ErrNoBackendAvailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	prof := profile.Get(res.backend.Name())
	words := chunker.WordCount(req.Input)
	needsChunk := prof.NeedsChunking && (words > prof.MaxWords || len(req.Input) > prof.MaxChars)

	var out []byte
	if needsChunk {
		out, err = s.generateChunked(r, req, res, prof)
	} else {
		out, err = s.generateDirect(r, req, res)
	}
	if err != nil {
		log.Error().Err(err).Str("backend", res.backend.Name()).Str("voice", req.Voice).Msg("generation failed")
		writeError(w, http.StatusInternalServerError, "Generation failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", audio.ContentType(req.ResponseFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// resolveVoice binds the request to a backend. Reserved voice namespaces win
// over everything; then the per-voice preference; then the router's general
// resolution over the cloned-voice library.
func (s *Server) resolveVoice(r *http.Request, voiceName string) (resolution, error) {
	ctx := r.Context()
	lower := strings.ToLower(voiceName)

	if _, ok := backend.KyutaiVoices[lower]; ok {
		return s.reserved(r, "kyutai", lower, fmt.Sprintf("Kyutai not available for emotion '%s'", voiceName))
	}
	if _, ok := backend.VibeVoiceVoices[lower]; ok {
		return s.reserved(r, "vibevoice", lower, fmt.Sprintf("VibeVoice not available for '%s'", voiceName))
	}
	if _, named := backend.ElevenLabsVoices[lower]; named || s.router.Preferred() == "elevenlabs" {
		return s.reserved(r, "elevenlabs", voiceName, "ElevenLabs not available")
	}
	if backend.PollyVoices[lower] {
		return s.reserved(r, "polly", lower, fmt.Sprintf("Polly not available for voice '%s'", voiceName))
	}
	if backend.IsGoogleVoiceName(voiceName) {
		return s.reserved(r, "gcloud", voiceName, fmt.Sprintf("Google TTS not available for voice '%s'", voiceName))
	}

	// Cloned voice: resolve the serving backend, then look up the reference.
	var serving backend.Backend
	if prefName := s.prefs.Get(voiceName); prefName != "" {
		if b, err := s.router.Get(prefName); err == nil && b.IsAvailable(ctx) {
			serving = b
		}
	}
	if serving == nil {
		b, err := s.router.Active(ctx)
		if err != nil {
			return resolution{}, err
		}
		serving = b
	}

	v, ok := s.voices.Get(voiceName)
	if !ok {
		return resolution{}, errUnknownVoice{fmt.Sprintf(
			"Voice '%s' not found. Available: %v", voiceName, s.voices.Suggest(10),
		)}
	}

	return resolution{backend: serving, voice: v.ReferencePath, transcript: v.Transcript}, nil
}

// reserved binds a reserved-namespace voice to its fixed backend, bypassing
// the router's active choice entirely.
func (s *Server) reserved(r *http.Request, backendName, voiceArg, unavailableMsg string) (resolution, error) {
	b, err := s.router.Get(backendName)
	if err != nil || !b.IsAvailable(r.Context()) {
		return resolution{}, errUnavailable{unavailableMsg}
	}
	return resolution{backend: b, voice: voiceArg}, nil
}

// generateDirect produces the whole input in one backend call, natively when
// the format is on the direct allow-list.
func (s *Server) generateDirect(r *http.Request, req speechRequest, res resolution) ([]byte, error) {
	log.Info().
		Str("backend", res.backend.Name()).
		Str("format", req.ResponseFormat).
		Int("chars", len(req.Input)).
		Msg("direct generation")

	if directFormats[req.ResponseFormat] {
		return res.backend.Generate(r.Context(), backend.GenerateRequest{
			Text:       req.Input,
			Voice:      res.voice,
			Transcript: res.transcript,
			Format:     req.ResponseFormat,
		})
	}

	wav, err := res.backend.Generate(r.Context(), backend.GenerateRequest{
		Text:       req.Input,
		Voice:      res.voice,
		Transcript: res.transcript,
		Format:     "wav",
	})
	if err != nil {
		return nil, err
	}
	return s.transcoder.Transcode(r.Context(), wav, req.ResponseFormat)
}

// generateChunked splits the input, generates every chunk as WAV, stitches
// with the profile crossfade, and transcodes to the requested format. Any
// chunk failure aborts the request; no partial audio is returned.
func (s *Server) generateChunked(r *http.Request, req speechRequest, res resolution, prof profile.Profile) ([]byte, error) {
	chunks := chunker.Split(req.Input, prof)

	log.Info().
		Str("backend", res.backend.Name()).
		Int("chunks", len(chunks)).
		Int("crossfade_ms", prof.CrossfadeMs).
		Msg("chunked generation")

	wavChunks := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		log.Debug().Int("chunk", i+1).Int("total", len(chunks)).Int("chars", len(chunk)).Msg("generating chunk")

		wav, err := res.backend.Generate(r.Context(), backend.GenerateRequest{
			Text:       chunk,
			Voice:      res.voice,
			Transcript: res.transcript,
			Format:     "wav",
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d failed: %w", i+1, len(chunks), err)
		}
		wavChunks = append(wavChunks, wav)
	}

	stitched, err := audio.Stitch(wavChunks, prof.CrossfadeMs)
	if err != nil {
		return nil, fmt.Errorf("failed to stitch chunks: %w", err)
	}

	if req.ResponseFormat == "wav" {
		return stitched, nil
	}
	return s.transcoder.Transcode(r.Context(), stitched, req.ResponseFormat)
}
