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
)

const defaultVibeVoiceURL = "http://localhost:8086"

// VibeVoiceVoices maps preset names to the service's speaker identifiers.
var VibeVoiceVoices = map[string]string{
	"emma":   "en-Emma_woman",
	"carter": "en-Carter_man",
	"davis":  "en-Davis_man",
	"frank":  "en-Frank_man",
	"grace":  "en-Grace_woman",
	"mike":   "en-Mike_man",
	"samuel": "in-Samuel_man",
}

// VibeVoice is a low-footprint streaming TTS service with preset speakers.
// It speaks an OpenAI-shaped speech API itself, which keeps this adapter
// thin.
type VibeVoice struct {
	baseURL    string
	httpClient *http.Client
}

// NewVibeVoice creates a VibeVoice adapter. An empty baseURL falls back to
// VIBEVOICE_URL, then to the default local port.
func NewVibeVoice(baseURL string) *VibeVoice {
	if baseURL == "" {
		baseURL = os.Getenv("VIBEVOICE_URL")
	}
	if baseURL == "" {
		baseURL = defaultVibeVoiceURL
	}
	return &VibeVoice{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: GenerateTimeout},
	}
}

func (v *VibeVoice) Name() string { return "vibevoice" }
func (v *VibeVoice) Port() int    { return 8086 }
func (v *VibeVoice) CostGB() int  { return 2 }

// IsAvailable checks the health endpoint and that the model is loaded; a
// booting service answers 200 before it can serve.
func (v *VibeVoice) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var health struct {
		ModelLoaded bool `json:"model_loaded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false
	}
	return health.ModelLoaded
}

type vibeVoiceRequest struct {
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	Model          string `json:"model"`
	ResponseFormat string `json:"response_format"`
}

func (v *VibeVoice) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	voice := strings.ToLower(req.Voice)
	speaker, ok := VibeVoiceVoices[voice]
	if !ok {
		speaker = req.Voice
	}

	body, err := json.Marshal(vibeVoiceRequest{
		Input:          req.Text,
		Voice:          speaker,
		Model:          "vibevoice-realtime-0.5b",
		ResponseFormat: req.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("backend", v.Name()).
		Str("voice", speaker).
		Int("chars", len(req.Text)).
		Msg("generating speech")

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vibevoice request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("vibevoice returned status %d: %s", resp.StatusCode, detail)
	}

	return io.ReadAll(resp.Body)
}

// ListVoices returns the preset speaker names, sorted for stable output.
func (v *VibeVoice) ListVoices(ctx context.Context) []string {
	names := make([]string, 0, len(VibeVoiceVoices))
	for name := range VibeVoiceVoices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
