package backend

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/unitts/unitts/internal/audio"
)

// pollyPCMRate is the sample rate requested for lossless output. Polly's
// pcm format caps at 16kHz.
const pollyPCMRate = 16000

// PollyVoices is the reserved namespace of Polly voice IDs; a request for
// any of these routes to Polly regardless of the active backend.
var PollyVoices = map[string]bool{
	"joanna": true, "matthew": true, "amy": true, "brian": true,
	"emma": true, "ivy": true, "kendra": true, "kimberly": true,
	"salli": true, "joey": true, "justin": true, "ruth": true,
	"stephen": true,
}

// pollyClient is the narrow slice of the Polly API this adapter uses,
// extracted so tests can substitute a mock.
type pollyClient interface {
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Polly is the Amazon Polly cloud backend.
type Polly struct {
	client pollyClient
	region string
	cache  probeCache
}

// NewPolly creates a Polly adapter using ambient AWS credentials.
func NewPolly(ctx context.Context, region string) (*Polly, error) {
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Polly{client: polly.NewFromConfig(cfg), region: region}, nil
}

func (p *Polly) Name() string { return "polly" }
func (p *Polly) Port() int    { return 0 }
func (p *Polly) CostGB() int  { return 0 }

// IsAvailable verifies credentials by listing voices. Cached briefly since
// it is a billable cloud round-trip.
func (p *Polly) IsAvailable(ctx context.Context) bool {
	return p.cache.check(ctx, func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, 5*ProbeTimeout/2)
		defer cancel()

		_, err := p.client.DescribeVoices(ctx, &polly.DescribeVoicesInput{})
		return err == nil
	})
}

// Generate synthesizes one chunk. WAV requests use Polly's raw PCM output
// wrapped locally; everything else is synthesized as mp3.
func (p *Polly) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	voice := pollyVoiceID(req.Voice)
	wantWAV := strings.EqualFold(req.Format, "wav")

	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(req.Text),
		VoiceId:      pollytypes.VoiceId(voice),
		Engine:       pollytypes.EngineNeural,
		OutputFormat: pollytypes.OutputFormatMp3,
	}
	if wantWAV {
		input.OutputFormat = pollytypes.OutputFormatPcm
		input.SampleRate = aws.String(fmt.Sprintf("%d", pollyPCMRate))
	}

	log.Debug().
		Str("backend", p.Name()).
		Str("voice", voice).
		Bool("pcm", wantWAV).
		Int("chars", len(req.Text)).
		Msg("generating speech")

	out, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("polly synthesis failed: %w", err)
	}
	defer out.AudioStream.Close()

	data, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("failed to read polly audio stream: %w", err)
	}

	if wantWAV {
		return audio.WrapPCM(data, pollyPCMRate), nil
	}
	return data, nil
}

// pollyVoiceID title-cases known lowercase names; Polly voice IDs are
// capitalized ("joanna" -> "Joanna").
func pollyVoiceID(voice string) string {
	if PollyVoices[strings.ToLower(voice)] {
		return cases.Title(language.English).String(strings.ToLower(voice))
	}
	if voice == "" {
		return "Joanna"
	}
	return voice
}

// ListVoices queries Polly for its voice inventory; on error it falls back
// to the static reserved set.
func (p *Polly) ListVoices(ctx context.Context) []string {
	out, err := p.client.DescribeVoices(ctx, &polly.DescribeVoicesInput{})
	if err != nil {
		log.Warn().Err(err).Msg("failed to list polly voices")
		names := make([]string, 0, len(PollyVoices))
		for name := range PollyVoices {
			names = append(names, name)
		}
		return names
	}

	names := make([]string, 0, len(out.Voices))
	for _, v := range out.Voices {
		names = append(names, strings.ToLower(string(v.Id)))
	}
	return names
}
