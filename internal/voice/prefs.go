package voice

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Prefs is the per-voice backend preference store, persisted as a flat JSON
// map of lowercased voice name to backend name. Preferences outrank the
// router's default choice but lose to reserved voice namespaces.
type Prefs struct {
	path string

	mu    sync.Mutex
	prefs map[string]string
}

// DefaultPrefsPath returns the store location: UNIFIED_TTS_PREFS_FILE or
// ~/.unified-tts/voice_preferences.json.
func DefaultPrefsPath() string {
	if path := os.Getenv("UNIFIED_TTS_PREFS_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".unified-tts/voice_preferences.json"
	}
	return filepath.Join(home, ".unified-tts", "voice_preferences.json")
}

// NewPrefs loads the store at path. An empty path falls back to
// DefaultPrefsPath. A missing or unreadable file starts empty.
func NewPrefs(path string) *Prefs {
	if path == "" {
		path = DefaultPrefsPath()
	}
	p := &Prefs{path: path, prefs: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("failed to read voice preferences")
		}
		return p
	}
	if err := json.Unmarshal(data, &p.prefs); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring malformed voice preferences")
		p.prefs = make(map[string]string)
	}
	return p
}

// Get returns the preferred backend for a voice ("" when none is set).
func (p *Prefs) Get(voice string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs[strings.ToLower(voice)]
}

// Set records a preference and persists the store.
func (p *Prefs) Set(voice, backend string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prefs[strings.ToLower(voice)] = backend
	return p.save()
}

// Remove deletes a preference and persists the store. Removing an absent
// voice is a no-op.
func (p *Prefs) Remove(voice string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.ToLower(voice)
	if _, ok := p.prefs[key]; !ok {
		return nil
	}
	delete(p.prefs, key)
	return p.save()
}

// All returns a copy of every stored preference.
func (p *Prefs) All() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]string, len(p.prefs))
	for k, v := range p.prefs {
		out[k] = v
	}
	return out
}

// save writes the store; callers hold p.mu.
func (p *Prefs) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(p.prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
