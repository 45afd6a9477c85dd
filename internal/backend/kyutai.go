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
	"sync"

	"github.com/rs/zerolog/log"
)

// KyutaiVoices are the emotion presets this backend exposes. Any of these
// names routes directly to Kyutai regardless of the active backend.
var KyutaiVoices = map[string]string{
	"happy":    "Cheerful and upbeat",
	"sad":      "Thoughtful and empathetic",
	"angry":    "Assertive and intense",
	"calm":     "Peaceful and soothing",
	"confused": "Curious and questioning",
	"fearful":  "Cautious and alert",
	"sleepy":   "Relaxed and drowsy",
	"neutral":  "Balanced and professional",
	"default":  "Default neutral voice",
}

// defaultKyutaiScanHosts is the static fleet list tried when neither an
// explicit host nor a cached discovery is usable.
var defaultKyutaiScanHosts = []string{
	"http://localhost:8899",
	"http://127.0.0.1:8899",
}

// Kyutai is the Moshi emotional TTS backend. The service may run on any of
// several fleet hosts, so host resolution is a three-step chain: explicit
// configured host, then the cached discovered host (30s TTL), then a scan
// of the static list.
type Kyutai struct {
	explicitHost string
	scanHosts    []string
	httpClient   *http.Client

	mu         sync.Mutex
	cachedHost string
	cache      probeCache
}

// NewKyutai creates a Kyutai adapter. An empty host falls back to
// KYUTAI_HOSTS (comma-separated scan list; first entry is the explicit
// host), then to the default scan list.
func NewKyutai(host string) *Kyutai {
	k := &Kyutai{
		explicitHost: host,
		scanHosts:    defaultKyutaiScanHosts,
		httpClient:   &http.Client{Timeout: GenerateTimeout},
	}

	if host == "" {
		if env := os.Getenv("KYUTAI_HOSTS"); env != "" {
			hosts := strings.Split(env, ",")
			for i := range hosts {
				hosts[i] = strings.TrimSpace(hosts[i])
			}
			k.explicitHost = hosts[0]
			k.scanHosts = hosts
		}
	}

	return k
}

func (k *Kyutai) Name() string { return "kyutai" }
func (k *Kyutai) Port() int    { return 8899 }
func (k *Kyutai) CostGB() int  { return 4 }

func (k *Kyutai) IsAvailable(ctx context.Context) bool {
	return k.cache.check(ctx, func(ctx context.Context) bool {
		_, err := k.resolveHost(ctx)
		return err == nil
	})
}

// resolveHost finds a live host: explicit > cached discovery > static scan.
func (k *Kyutai) resolveHost(ctx context.Context) (string, error) {
	if k.explicitHost != "" && k.probeHost(ctx, k.explicitHost) {
		return k.explicitHost, nil
	}

	k.mu.Lock()
	cached := k.cachedHost
	k.mu.Unlock()
	if cached != "" && k.probeHost(ctx, cached) {
		return cached, nil
	}

	for _, host := range k.scanHosts {
		if k.probeHost(ctx, host) {
			k.mu.Lock()
			k.cachedHost = host
			k.mu.Unlock()
			log.Debug().Str("host", host).Msg("discovered kyutai host")
			return host, nil
		}
	}

	return "", fmt.Errorf("no kyutai host reachable")
}

func (k *Kyutai) probeHost(ctx context.Context, host string) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/", nil)
	if err != nil {
		return false
	}
	resp, err := k.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type kyutaiRequest struct {
	Text        string `json:"text"`
	Voice       string `json:"voice"`
	ReturnAudio bool   `json:"return_audio"`
}

// Generate synthesizes one chunk with an emotion preset. The service either
// returns audio bytes directly or a JSON envelope with an audio URL; both
// shapes are normalized to bytes here.
func (k *Kyutai) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	host, err := k.resolveHost(ctx)
	if err != nil {
		k.cache.invalidate()
		return nil, err
	}

	emotion := strings.ToLower(req.Voice)
	if _, ok := KyutaiVoices[emotion]; !ok {
		emotion = "default"
	}

	body, err := json.Marshal(kyutaiRequest{Text: req.Text, Voice: emotion, ReturnAudio: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, host+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("backend", k.Name()).
		Str("emotion", emotion).
		Int("chars", len(req.Text)).
		Msg("generating speech")

	resp, err := k.httpClient.Do(httpReq)
	if err != nil {
		k.cache.invalidate()
		return nil, fmt.Errorf("kyutai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kyutai returned status %d: %s", resp.StatusCode, detail)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "audio/") {
		return io.ReadAll(resp.Body)
	}

	var envelope struct {
		AudioURL string `json:"audio_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode kyutai response: %w", err)
	}
	if envelope.AudioURL == "" {
		return nil, fmt.Errorf("kyutai returned no audio")
	}

	fetchReq, err := http.NewRequestWithContext(ctx, http.MethodGet, host+envelope.AudioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio fetch request: %w", err)
	}
	fetchResp, err := k.httpClient.Do(fetchReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kyutai audio: %w", err)
	}
	defer fetchResp.Body.Close()

	if fetchResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kyutai audio fetch returned status %d", fetchResp.StatusCode)
	}
	return io.ReadAll(fetchResp.Body)
}

// ListVoices returns the emotion preset names, sorted for stable output.
func (k *Kyutai) ListVoices(ctx context.Context) []string {
	names := make([]string, 0, len(KyutaiVoices))
	for name := range KyutaiVoices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
