// Package voice manages the library of cloneable voices discovered on disk
// and the per-voice backend preference store.
package voice

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// referenceNames are the accepted reference audio filenames inside a voice
// directory, tried in order.
var referenceNames = []string{"reference.wav", "reference.mp3", "reference.flac"}

const transcriptName = "transcript.txt"

// Voice is one discovered cloneable voice: a reference recording plus its
// transcript.
type Voice struct {
	Name          string
	ReferencePath string
	Transcript    string
	HasTranscript bool
}

// Manager scans a directory of voice folders and serves lookups. A voice
// folder is <dir>/<name>/ holding a reference recording and, ideally, a
// transcript; folders without a reference recording are skipped.
type Manager struct {
	dir string

	mu     sync.RWMutex
	voices map[string]Voice
}

// DefaultDir returns the voice library location: UNIFIED_TTS_VOICE_DIR or
// ~/.unified-tts/voices.
func DefaultDir() string {
	if dir := os.Getenv("UNIFIED_TTS_VOICE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".unified-tts/voices"
	}
	return filepath.Join(home, ".unified-tts", "voices")
}

// NewManager creates a manager over dir and performs an initial scan. An
// empty dir falls back to DefaultDir. A missing directory is not an error;
// the library is simply empty until Refresh finds it.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = DefaultDir()
	}
	m := &Manager{dir: dir, voices: make(map[string]Voice)}
	m.Refresh()
	return m
}

// Dir returns the scanned directory.
func (m *Manager) Dir() string { return m.dir }

// Refresh rescans the voice directory and replaces the in-memory library.
// Returns the number of voices found.
func (m *Manager) Refresh() int {
	found := make(map[string]Voice)

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dir", m.dir).Msg("failed to read voice directory")
		}
		m.mu.Lock()
		m.voices = found
		m.mu.Unlock()
		return 0
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		voiceDir := filepath.Join(m.dir, entry.Name())

		refPath := ""
		for _, ref := range referenceNames {
			candidate := filepath.Join(voiceDir, ref)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				refPath = candidate
				break
			}
		}
		if refPath == "" {
			log.Debug().Str("voice", name).Msg("skipping voice folder without reference audio")
			continue
		}

		v := Voice{Name: name, ReferencePath: refPath}
		if data, err := os.ReadFile(filepath.Join(voiceDir, transcriptName)); err == nil {
			v.Transcript = strings.TrimSpace(string(data))
			v.HasTranscript = v.Transcript != ""
		}
		if !v.HasTranscript {
			log.Warn().Str("voice", name).Msg("voice has no transcript, clone quality will suffer")
		}

		found[name] = v
	}

	m.mu.Lock()
	m.voices = found
	m.mu.Unlock()

	log.Info().Int("count", len(found)).Str("dir", m.dir).Msg("voice library refreshed")
	return len(found)
}

// Get looks up a voice by name (case-insensitive).
func (m *Manager) Get(name string) (Voice, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.voices[strings.ToLower(name)]
	return v, ok
}

// Names returns the discovered voice names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.voices))
	for name := range m.voices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns up to n known voice names for error messages.
func (m *Manager) Suggest(n int) []string {
	names := m.Names()
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// Describe renders a one-line summary for listings.
func (v Voice) Describe() string {
	transcript := "no transcript"
	if v.HasTranscript {
		transcript = fmt.Sprintf("%d chars transcript", len(v.Transcript))
	}
	return fmt.Sprintf("%s (%s, %s)", v.Name, filepath.Base(v.ReferencePath), transcript)
}
