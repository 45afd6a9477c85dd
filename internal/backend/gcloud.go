package backend

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog/log"
)

// gcloudVoicePattern matches Google voice names like "en-US-Neural2-D";
// voices shaped this way route to this backend.
var gcloudVoicePattern = regexp.MustCompile(`^[a-z]{2,3}-[A-Z]{2}-`)

// IsGoogleVoiceName reports whether a voice identifier belongs to the
// Google Cloud TTS namespace.
func IsGoogleVoiceName(voice string) bool {
	return gcloudVoicePattern.MatchString(voice)
}

// gcloudClient is the slice of the texttospeech client used here, extracted
// for test substitution.
type gcloudClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error)
	Close() error
}

// GCloud is the Google Cloud Text-to-Speech backend. Authentication comes
// from GOOGLE_APPLICATION_CREDENTIALS or Application Default Credentials.
type GCloud struct {
	client       gcloudClient
	projectID    string
	defaultVoice string
	cache        probeCache
}

// NewGCloud creates a Google Cloud TTS adapter.
func NewGCloud(ctx context.Context, projectID string) (*GCloud, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create google tts client: %w", err)
	}

	return &GCloud{
		client:       client,
		projectID:    projectID,
		defaultVoice: "en-US-Neural2-D",
	}, nil
}

func (g *GCloud) Name() string { return "gcloud" }
func (g *GCloud) Port() int    { return 0 }
func (g *GCloud) CostGB() int  { return 0 }

// IsAvailable verifies credentials with a voice listing, cached briefly.
func (g *GCloud) IsAvailable(ctx context.Context) bool {
	return g.cache.check(ctx, func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, 5*ProbeTimeout/2)
		defer cancel()

		_, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
		return err == nil
	})
}

// Generate synthesizes one chunk. LINEAR16 output carries a WAV header, so
// WAV requests need no local wrapping; everything else is synthesized MP3.
func (g *GCloud) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	voice := req.Voice
	if !IsGoogleVoiceName(voice) {
		voice = g.defaultVoice
	}

	// Language code is embedded in the voice name: en-US-Neural2-D -> en-US.
	parts := strings.SplitN(voice, "-", 3)
	languageCode := "en-US"
	if len(parts) >= 2 {
		languageCode = parts[0] + "-" + parts[1]
	}

	encoding := texttospeechpb.AudioEncoding_MP3
	if strings.EqualFold(req.Format, "wav") {
		encoding = texttospeechpb.AudioEncoding_LINEAR16
	}

	log.Debug().
		Str("backend", g.Name()).
		Str("voice", voice).
		Str("language", languageCode).
		Int("chars", len(req.Text)).
		Msg("generating speech")

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: encoding,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google tts synthesis failed: %w", err)
	}

	return resp.AudioContent, nil
}

// ListVoices returns the service's voice names; empty on error.
func (g *GCloud) ListVoices(ctx context.Context) []string {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		log.Warn().Err(err).Msg("failed to list google tts voices")
		return nil
	}

	names := make([]string, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		names = append(names, v.Name)
	}
	return names
}

// Close releases the underlying gRPC connection.
func (g *GCloud) Close() error {
	return g.client.Close()
}
