package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	activeName := ""
	if active, err := s.router.Active(r.Context()); err == nil {
		activeName = active.Name()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service":        serviceName,
		"version":        serviceVersion,
		"active_backend": activeName,
		"voice_count":    len(s.voices.Names()),
		"endpoints": map[string]string{
			"speech":   "POST /v1/audio/speech",
			"voices":   "GET /v1/voices",
			"backends": "GET /v1/backends",
			"health":   "GET /health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active, err := s.router.Active(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "No backend available",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": active.Name(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	type model struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}

	models := []model{
		{ID: "tts-1", Object: "model", OwnedBy: serviceName},
		{ID: "tts-1-hd", Object: "model", OwnedBy: serviceName},
	}
	for _, b := range s.router.Backends() {
		models = append(models, model{ID: b.Name(), Object: "model", OwnedBy: serviceName})
	}

	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": models})
}

// handleVoices lists the cloned voice library plus the active backend's
// advertised voices.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	names := s.voices.Names()
	backendName := ""
	if active, err := s.router.Active(r.Context()); err == nil {
		backendName = active.Name()
		names = append(names, active.ListVoices(r.Context())...)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"voices":  names,
		"count":   len(names),
		"backend": backendName,
	})
}

func (s *Server) handleVoicesRefresh(w http.ResponseWriter, r *http.Request) {
	count := s.voices.Refresh()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "voice_count": count})
}

func (s *Server) handleBackends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backends": s.router.List(r.Context()),
		"active":   s.router.Preferred(),
	})
}

func (s *Server) handleBackendSwitch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Backend string `json:"backend"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.router.SetPreferred(req.Backend); err != nil {
		writeError(w, http.StatusBadRequest, "Unknown backend: "+req.Backend)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "preferred": req.Backend})
}

func (s *Server) handleVoicePrefs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"preferences": s.prefs.All()})
}

func (s *Server) handleVoicePrefSet(w http.ResponseWriter, r *http.Request) {
	voiceName := r.PathValue("voice")

	var req struct {
		Backend string `json:"backend"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := s.router.Get(req.Backend); err != nil {
		writeError(w, http.StatusBadRequest, "Unknown backend: "+req.Backend)
		return
	}

	if err := s.prefs.Set(voiceName, req.Backend); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save preference")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"voice":   voiceName,
		"backend": req.Backend,
	})
}

func (s *Server) handleVoicePrefDelete(w http.ResponseWriter, r *http.Request) {
	voiceName := r.PathValue("voice")
	removed := s.prefs.Get(voiceName) != ""

	if err := s.prefs.Remove(voiceName); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove preference")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "removed": removed})
}
