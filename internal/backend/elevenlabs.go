package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/unitts/unitts/internal/audio"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	// PCM rate requested when the pipeline needs lossless output.
	elevenLabsPCMRate = 22050
)

// ElevenLabsVoices maps friendly names to pre-made voice IDs. A request for
// any of these names routes to ElevenLabs regardless of the active backend.
var ElevenLabsVoices = map[string]string{
	"rachel": "21m00Tcm4TlvDq8ikWAM",
	"drew":   "29vD33N1CtxCmqQRPOHJ",
	"paul":   "5Q0t7uMcjvnagumLfvZi",
	"dave":   "CYw3kZ02Hs0563khs1Fj",
	"sarah":  "EXAVITQu4vr4xnSDxMaL",
	"adam":   "pNInz6obpgDQGcFmaJgB",
	"sam":    "yoZ06aMxZJJ28mfd3POQ",
}

const elevenLabsDefaultVoice = "adam"

// ElevenLabs is the zero-GPU cloud fallback backend.
type ElevenLabs struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      probeCache
}

// NewElevenLabs creates an ElevenLabs adapter. An empty key falls back to
// ELEVENLABS_API_KEY.
func NewElevenLabs(apiKey string) *ElevenLabs {
	if apiKey == "" {
		apiKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	return &ElevenLabs{
		apiKey:     apiKey,
		baseURL:    elevenLabsBaseURL,
		httpClient: &http.Client{Timeout: GenerateTimeout},
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }
func (e *ElevenLabs) Port() int    { return 0 }
func (e *ElevenLabs) CostGB() int  { return 0 }

// IsAvailable validates the API key against the user endpoint. The result is
// cached briefly: the probe is a billable round-trip to a cloud API.
func (e *ElevenLabs) IsAvailable(ctx context.Context) bool {
	if e.apiKey == "" {
		return false
	}
	return e.cache.check(ctx, func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, 5*ProbeTimeout/2)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/user", nil)
		if err != nil {
			return false
		}
		req.Header.Set("xi-api-key", e.apiKey)

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})
}

// ResolveVoiceID maps a friendly name to a voice ID, passes raw IDs through,
// and falls back to the default voice.
func (e *ElevenLabs) ResolveVoiceID(voice string) string {
	if len(voice) > 15 && isAlphanumeric(voice) {
		return voice
	}
	if id, ok := ElevenLabsVoices[strings.ToLower(voice)]; ok {
		return id
	}
	return ElevenLabsVoices[elevenLabsDefaultVoice]
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return s != ""
}

type elevenLabsRequest struct {
	Text          string                `json:"text"`
	ModelID       string                `json:"model_id"`
	VoiceSettings elevenLabsVoiceTuning `json:"voice_settings"`
}

type elevenLabsVoiceTuning struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Generate synthesizes one chunk. For WAV output the API is asked for raw
// PCM, which is wrapped in a header locally; mp3 is returned as-is.
func (e *ElevenLabs) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	voiceID := e.ResolveVoiceID(req.Voice)

	outputFormat := "mp3_44100_128"
	wantWAV := strings.EqualFold(req.Format, "wav")
	if wantWAV {
		outputFormat = fmt.Sprintf("pcm_%d", elevenLabsPCMRate)
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    req.Text,
		ModelID: "eleven_monolingual_v1",
		VoiceSettings: elevenLabsVoiceTuning{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", e.baseURL, voiceID, outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	log.Debug().
		Str("backend", e.Name()).
		Str("voice_id", voiceID).
		Str("output_format", outputFormat).
		Int("chars", len(req.Text)).
		Msg("generating speech")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, detail)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read elevenlabs response: %w", err)
	}

	if wantWAV {
		return audio.WrapPCM(data, elevenLabsPCMRate), nil
	}
	return data, nil
}

// ListVoices returns the known pre-made voice names, sorted for stable
// output.
func (e *ElevenLabs) ListVoices(ctx context.Context) []string {
	names := make([]string, 0, len(ElevenLabsVoices))
	for name := range ElevenLabsVoices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
