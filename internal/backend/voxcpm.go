package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

const defaultVoxCPMURL = "http://localhost:7860"

// VoxCPM is a character-cloning backend fronted by a Gradio app. Unlike the
// other locals it answers generation calls with a JSON envelope holding a
// URL to the produced file; this adapter fetches that URL so the rest of the
// pipeline only ever sees audio bytes.
type VoxCPM struct {
	baseURL    string
	httpClient *http.Client
}

// NewVoxCPM creates a VoxCPM adapter. An empty baseURL falls back to
// VOXCPM_URL, then to the default local port.
func NewVoxCPM(baseURL string) *VoxCPM {
	if baseURL == "" {
		baseURL = os.Getenv("VOXCPM_URL")
	}
	if baseURL == "" {
		baseURL = defaultVoxCPMURL
	}
	return &VoxCPM{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: GenerateTimeout},
	}
}

func (v *VoxCPM) Name() string { return "voxcpm" }
func (v *VoxCPM) Port() int    { return 7860 }
func (v *VoxCPM) CostGB() int  { return 18 }

func (v *VoxCPM) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type voxCPMRequest struct {
	Text           string  `json:"text"`
	ReferenceAudio string  `json:"reference_audio"`
	ReferenceText  string  `json:"reference_text"`
	CFGValue       float64 `json:"cfg_value"`
	InferTimesteps int     `json:"inference_timesteps"`
	Normalize      bool    `json:"do_normalize"`
	Denoise        bool    `json:"denoise"`
}

type voxCPMResponse struct {
	AudioURL string `json:"audio_url"`
}

// Generate synthesizes one chunk and resolves the returned audio URL.
func (v *VoxCPM) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	refAudio, err := os.ReadFile(req.Voice)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference audio: %w", err)
	}

	payload := voxCPMRequest{
		Text:           req.Text,
		ReferenceAudio: base64.StdEncoding.EncodeToString(refAudio),
		ReferenceText:  req.Transcript,
		CFGValue:       2.0,
		InferTimesteps: 10,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("backend", v.Name()).
		Int("chars", len(req.Text)).
		Msg("generating speech")

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("voxcpm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voxcpm returned status %d: %s", resp.StatusCode, detail)
	}

	var envelope voxCPMResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode voxcpm response: %w", err)
	}
	if envelope.AudioURL == "" {
		return nil, fmt.Errorf("voxcpm returned no audio URL")
	}

	return v.fetchAudio(ctx, envelope.AudioURL)
}

// fetchAudio downloads the generated file referenced by the envelope.
func (v *VoxCPM) fetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	if strings.HasPrefix(audioURL, "/") {
		audioURL = v.baseURL + audioURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio fetch request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch generated audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio fetch returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// ListVoices returns nothing: cloning backends take any discovered voice.
func (v *VoxCPM) ListVoices(ctx context.Context) []string { return nil }
