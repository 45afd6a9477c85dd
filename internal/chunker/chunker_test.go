package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitts/unitts/internal/profile"
)

func testProfile() profile.Profile {
	return profile.Profile{
		MaxWords:      10,
		MaxChars:      60,
		OptimalWords:  8,
		NeedsChunking: true,
		CrossfadeMs:   50,
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	assert.Nil(t, Split("", testProfile()))
	assert.Nil(t, Split("   \n\t ", testProfile()))
}

func TestSplit_ShortTextUnchanged(t *testing.T) {
	text := "Hello there. Short enough."
	chunks := Split(text, testProfile())
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_NoChunkingBackend(t *testing.T) {
	p := profile.Profile{MaxWords: 5, MaxChars: 10, NeedsChunking: false}
	long := strings.Repeat("word ", 100)
	chunks := Split(long, p)
	require.Len(t, chunks, 1)
	assert.Equal(t, long, chunks[0])
}

func TestSplit_BreaksAtSentenceBoundaries(t *testing.T) {
	text := "The quick brown fox jumps over the dog. A second sentence follows here now. And then a third one arrives."
	chunks := Split(text, testProfile())

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, WordCount(c), 10, "chunk %q", c)
		assert.LessOrEqual(t, len(c), 60, "chunk %q", c)
	}
	assert.True(t, strings.HasSuffix(chunks[0], "dog."), "chunk should end at sentence boundary: %q", chunks[0])
}

func TestSplit_LongSentenceFallsBackToCommas(t *testing.T) {
	text := "one two three four, five six seven eight, nine ten eleven twelve, thirteen fourteen fifteen sixteen"
	chunks := Split(text, testProfile())

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, WordCount(c), 10, "chunk %q", c)
	}
}

func TestSplit_ForceSplitTerminates(t *testing.T) {
	// No punctuation anywhere: only the hard word split applies.
	text := strings.TrimSpace(strings.Repeat("word ", 47))
	chunks := Split(text, testProfile())

	require.Equal(t, 5, len(chunks))
	for i, c := range chunks {
		if i < len(chunks)-1 {
			assert.Equal(t, 10, WordCount(c))
		}
	}
}

func TestSplit_PreservesAllWordsInOrder(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"sentences", "First sentence is here. Second one follows! Third asks a question? Fourth wraps it all up nicely and goes on a bit longer."},
		{"commas", "alpha beta gamma delta epsilon, zeta eta theta iota kappa, lambda mu nu xi omicron pi rho"},
		{"no punctuation", strings.TrimSpace(strings.Repeat("stone ", 35))},
		{"mixed", "Short one. Then a very long sentence without any stops that keeps going and going and going beyond every limit, finally a clause."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, testProfile())
			joined := strings.Join(chunks, " ")
			assert.Equal(t, strings.Fields(tt.text), strings.Fields(joined))
		})
	}
}

func TestSplit_ChunksNonEmpty(t *testing.T) {
	text := "A.  B!  C?  " + strings.Repeat("dense prose with no breaks ", 10)
	for _, c := range Split(text, testProfile()) {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 3, WordCount("one two three"))
	assert.Equal(t, 3, WordCount("  one\ttwo \n three "))
}
