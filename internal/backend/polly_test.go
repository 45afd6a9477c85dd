package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unitts/unitts/internal/audio"
)

type mockPollyClient struct {
	mock.Mock
}

func (m *mockPollyClient) DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*polly.DescribeVoicesOutput), args.Error(1)
}

func (m *mockPollyClient) SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*polly.SynthesizeSpeechOutput), args.Error(1)
}

func TestPollyVoiceID(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"joanna", "Joanna"},
		{"Matthew", "Matthew"},
		{"STEPHEN", "Stephen"},
		{"", "Joanna"},
		{"Custom", "Custom"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pollyVoiceID(tt.voice), "voice %q", tt.voice)
	}
}

func TestPolly_Generate_MP3(t *testing.T) {
	client := &mockPollyClient{}
	client.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(in *polly.SynthesizeSpeechInput) bool {
		return in.OutputFormat == pollytypes.OutputFormatMp3 &&
			in.VoiceId == pollytypes.VoiceId("Joanna")
	})).Return(&polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(bytes.NewReader([]byte("mp3 bytes"))),
	}, nil)

	p := &Polly{client: client}
	data, err := p.Generate(context.Background(), GenerateRequest{Text: "hi", Voice: "joanna", Format: "mp3"})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 bytes"), data)
	client.AssertExpectations(t)
}

func TestPolly_Generate_WAVWrapsPCM(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0x02, 0x00}

	client := &mockPollyClient{}
	client.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(in *polly.SynthesizeSpeechInput) bool {
		return in.OutputFormat == pollytypes.OutputFormatPcm &&
			in.SampleRate != nil && *in.SampleRate == "16000"
	})).Return(&polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(bytes.NewReader(pcm)),
	}, nil)

	p := &Polly{client: client}
	data, err := p.Generate(context.Background(), GenerateRequest{Text: "hi", Voice: "ruth", Format: "wav"})
	require.NoError(t, err)

	buf, err := audio.DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, pollyPCMRate, buf.Rate)
	assert.Len(t, buf.Samples, 2)
}

func TestPolly_Generate_Error(t *testing.T) {
	client := &mockPollyClient{}
	client.On("SynthesizeSpeech", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	p := &Polly{client: client}
	_, err := p.Generate(context.Background(), GenerateRequest{Text: "hi", Voice: "joanna", Format: "mp3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polly synthesis failed")
}

func TestPolly_IsAvailable(t *testing.T) {
	client := &mockPollyClient{}
	client.On("DescribeVoices", mock.Anything, mock.Anything).Return(&polly.DescribeVoicesOutput{}, nil).Once()

	p := &Polly{client: client}
	assert.True(t, p.IsAvailable(context.Background()))
	// Second call is served from the probe cache.
	assert.True(t, p.IsAvailable(context.Background()))
	client.AssertExpectations(t)
}

func TestPolly_ListVoices_FallbackOnError(t *testing.T) {
	client := &mockPollyClient{}
	client.On("DescribeVoices", mock.Anything, mock.Anything).Return(nil, errors.New("no credentials"))

	p := &Polly{client: client}
	voices := p.ListVoices(context.Background())
	assert.Len(t, voices, len(PollyVoices))
	assert.Contains(t, voices, "joanna")
}

func TestPolly_ListVoices(t *testing.T) {
	client := &mockPollyClient{}
	client.On("DescribeVoices", mock.Anything, mock.Anything).Return(&polly.DescribeVoicesOutput{
		Voices: []pollytypes.Voice{
			{Id: pollytypes.VoiceIdJoanna},
			{Id: pollytypes.VoiceIdMatthew},
		},
	}, nil)

	p := &Polly{client: client}
	voices := p.ListVoices(context.Background())
	assert.Equal(t, []string{"joanna", "matthew"}, voices)
}
