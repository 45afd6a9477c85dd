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

	"github.com/rs/zerolog/log"
)

const defaultOpenAudioURL = "http://localhost:9877"

// OpenAudio is the Fish Speech zero-shot cloning backend: reference audio
// plus its transcript condition the generated voice.
type OpenAudio struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenAudio creates an OpenAudio adapter. An empty baseURL falls back to
// OPENAUDIO_URL, then to the default local port.
func NewOpenAudio(baseURL string) *OpenAudio {
	if baseURL == "" {
		baseURL = os.Getenv("OPENAUDIO_URL")
	}
	if baseURL == "" {
		baseURL = defaultOpenAudioURL
	}
	return &OpenAudio{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: GenerateTimeout},
	}
}

func (o *OpenAudio) Name() string { return "openaudio" }
func (o *OpenAudio) Port() int    { return 9877 }
func (o *OpenAudio) CostGB() int  { return 5 }

func (o *OpenAudio) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type openAudioReference struct {
	Audio string `json:"audio"`
	Text  string `json:"text"`
}

type openAudioRequest struct {
	Text       string               `json:"text"`
	Format     string               `json:"format"`
	References []openAudioReference `json:"references"`
}

// Generate synthesizes one chunk, cloning the voice from the reference audio
// file named in req.Voice.
func (o *OpenAudio) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	refAudio, err := os.ReadFile(req.Voice)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference audio: %w", err)
	}

	payload := openAudioRequest{
		Text:   req.Text,
		Format: req.Format,
		References: []openAudioReference{{
			Audio: base64.StdEncoding.EncodeToString(refAudio),
			Text:  req.Transcript,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("backend", o.Name()).
		Int("chars", len(req.Text)).
		Str("format", req.Format).
		Msg("generating speech")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openaudio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openaudio returned status %d: %s", resp.StatusCode, detail)
	}

	return io.ReadAll(resp.Body)
}

// ListVoices returns nothing: cloning backends take any discovered voice.
func (o *OpenAudio) ListVoices(ctx context.Context) []string { return nil }
