package voice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeVoiceDir(t *testing.T, root, name, refName, transcript string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if refName != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, refName), []byte("audio"), 0o644))
	}
	if transcript != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "transcript.txt"), []byte(transcript), 0o644))
	}
}

func TestManagerScan(t *testing.T) {
	root := t.TempDir()
	makeVoiceDir(t, root, "Alice", "reference.wav", "hello from alice\n")
	makeVoiceDir(t, root, "bob", "reference.mp3", "")
	makeVoiceDir(t, root, "empty", "", "orphan transcript")

	m := NewManager(root)

	assert.Equal(t, []string{"alice", "bob"}, m.Names())

	alice, ok := m.Get("ALICE")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, "alice", alice.Name)
	assert.Equal(t, "hello from alice", alice.Transcript)
	assert.True(t, alice.HasTranscript)
	assert.Equal(t, filepath.Join(root, "Alice", "reference.wav"), alice.ReferencePath)

	bob, ok := m.Get("bob")
	require.True(t, ok)
	assert.False(t, bob.HasTranscript, "voice without transcript is kept but flagged")

	_, ok = m.Get("empty")
	assert.False(t, ok, "folder without reference audio is skipped")
}

func TestManagerRefresh(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)
	assert.Empty(t, m.Names())

	makeVoiceDir(t, root, "carol", "reference.flac", "hi")
	assert.Equal(t, 1, m.Refresh())

	carol, ok := m.Get("carol")
	require.True(t, ok)
	assert.Equal(t, "hi", carol.Transcript)
}

func TestManagerMissingDirectory(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Empty(t, m.Names())
	assert.Equal(t, 0, m.Refresh())
}

func TestManagerReferencePriority(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "dana")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reference.mp3"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reference.wav"), []byte("a"), 0o644))

	m := NewManager(root)
	dana, ok := m.Get("dana")
	require.True(t, ok)
	assert.Equal(t, "reference.wav", filepath.Base(dana.ReferencePath), "wav wins over mp3")
}

func TestManagerSuggest(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		makeVoiceDir(t, root, name, "reference.wav", "t")
	}

	m := NewManager(root)
	assert.Len(t, m.Suggest(2), 2)
	assert.Len(t, m.Suggest(10), 3)
}
