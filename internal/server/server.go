// Package server exposes the OpenAI-compatible HTTP surface and the request
// orchestrator that drives routing, chunking, stitching, and transcoding.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/unitts/unitts/internal/audio"
	"github.com/unitts/unitts/internal/backend"
	"github.com/unitts/unitts/internal/voice"
)

const (
	serviceName    = "unified-tts"
	serviceVersion = "0.1.0"

	defaultHost = "0.0.0.0"
	defaultPort = 8000
)

// Config holds the listener settings.
type Config struct {
	Host string
	Port int
}

// ConfigFromEnv reads UNIFIED_TTS_HOST and UNIFIED_TTS_PORT, with defaults.
func ConfigFromEnv() Config {
	cfg := Config{Host: defaultHost, Port: defaultPort}
	if host := os.Getenv("UNIFIED_TTS_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("UNIFIED_TTS_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Port = n
		} else {
			log.Warn().Str("port", port).Msg("ignoring invalid UNIFIED_TTS_PORT")
		}
	}
	return cfg
}

// Server wires the router, voice library, preference store, and transcoder
// behind the HTTP API.
type Server struct {
	cfg        Config
	router     *backend.Router
	voices     *voice.Manager
	prefs      *voice.Prefs
	transcoder *audio.Transcoder
}

// New assembles a server over its collaborators.
func New(cfg Config, router *backend.Router, voices *voice.Manager, prefs *voice.Prefs, transcoder *audio.Transcoder) *Server {
	return &Server{
		cfg:        cfg,
		router:     router,
		voices:     voices,
		prefs:      prefs,
		transcoder: transcoder,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("GET /v1/voices", s.handleVoices)
	mux.HandleFunc("POST /v1/voices/refresh", s.handleVoicesRefresh)
	mux.HandleFunc("GET /v1/backends", s.handleBackends)
	mux.HandleFunc("POST /v1/backends/switch", s.handleBackendSwitch)
	mux.HandleFunc("GET /v1/voice-prefs", s.handleVoicePrefs)
	mux.HandleFunc("POST /v1/voice-prefs/{voice}", s.handleVoicePrefSet)
	mux.HandleFunc("DELETE /v1/voice-prefs/{voice}", s.handleVoicePrefDelete)
	mux.HandleFunc("POST /v1/audio/speech", s.handleSpeech)

	return requestLogger(mux)
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Info().Msg("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags every request with an ID and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// writeJSON renders v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError renders an error body in the shape clients of OpenAI-style
// APIs expect.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
