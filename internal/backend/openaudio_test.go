package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempReference(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.wav")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOpenAudio_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := NewOpenAudio(server.URL)
	assert.True(t, b.IsAvailable(context.Background()))
}

func TestOpenAudio_IsAvailable_Down(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	server.Close() // closed server: connection refused

	b := NewOpenAudio(server.URL)
	assert.False(t, b.IsAvailable(context.Background()))
}

func TestOpenAudio_Generate(t *testing.T) {
	refPath := writeTempReference(t, []byte("fake reference audio"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/tts", r.URL.Path)

		var payload openAudioRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello there", payload.Text)
		assert.Equal(t, "wav", payload.Format)
		require.Len(t, payload.References, 1)

		decoded, err := base64.StdEncoding.DecodeString(payload.References[0].Audio)
		require.NoError(t, err)
		assert.Equal(t, []byte("fake reference audio"), decoded)
		assert.Equal(t, "the transcript", payload.References[0].Text)

		w.Write([]byte("generated audio"))
	}))
	defer server.Close()

	b := NewOpenAudio(server.URL)
	data, err := b.Generate(context.Background(), GenerateRequest{
		Text:       "hello there",
		Voice:      refPath,
		Transcript: "the transcript",
		Format:     "wav",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("generated audio"), data)
}

func TestOpenAudio_Generate_MissingReference(t *testing.T) {
	b := NewOpenAudio("http://localhost:1")
	_, err := b.Generate(context.Background(), GenerateRequest{
		Text:  "hello",
		Voice: filepath.Join(t.TempDir(), "nope.wav"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference audio")
}

func TestOpenAudio_Generate_ServerError(t *testing.T) {
	refPath := writeTempReference(t, []byte("ref"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	b := NewOpenAudio(server.URL)
	_, err := b.Generate(context.Background(), GenerateRequest{Text: "hello", Voice: refPath, Format: "wav"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
