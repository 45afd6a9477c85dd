package voice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	p := NewPrefs(path)
	assert.Empty(t, p.Get("alice"))

	require.NoError(t, p.Set("Alice", "voxcpm"))
	assert.Equal(t, "voxcpm", p.Get("alice"), "keys are lowercased")
	assert.Equal(t, "voxcpm", p.Get("ALICE"))

	// A fresh load sees the persisted value.
	reloaded := NewPrefs(path)
	assert.Equal(t, "voxcpm", reloaded.Get("alice"))
}

func TestPrefsRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	p := NewPrefs(path)
	require.NoError(t, p.Set("bob", "kyutai"))
	require.NoError(t, p.Remove("BOB"))
	assert.Empty(t, p.Get("bob"))

	// Removing an absent voice is a no-op.
	require.NoError(t, p.Remove("nobody"))

	reloaded := NewPrefs(path)
	assert.Empty(t, reloaded.Get("bob"))
}

func TestPrefsAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	p := NewPrefs(path)
	require.NoError(t, p.Set("a", "openaudio"))
	require.NoError(t, p.Set("b", "elevenlabs"))

	all := p.All()
	assert.Equal(t, map[string]string{"a": "openaudio", "b": "elevenlabs"}, all)

	// The returned map is a copy.
	all["a"] = "tampered"
	assert.Equal(t, "openaudio", p.Get("a"))
}

func TestPrefsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	p := NewPrefs(path)
	assert.Empty(t, p.All())
	require.NoError(t, p.Set("alice", "voxcpm"), "store recovers by rewriting")
}

func TestPrefsCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.json")

	p := NewPrefs(path)
	require.NoError(t, p.Set("alice", "voxcpm"))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
