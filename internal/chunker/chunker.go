// Package chunker splits long text into fragments that respect a backend's
// word and character limits. Most local TTS models degrade or refuse beyond
// 50-100 words, so text is cut at natural boundaries (sentences, then
// clauses) and the audio stitcher recombines the generated chunks.
package chunker

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/unitts/unitts/internal/profile"
)

var (
	sentenceSep = regexp.MustCompile(`[.!?]+\s+`)
	clauseSep   = regexp.MustCompile(`,\s+`)
)

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Split cuts text into ordered chunks that each satisfy the profile's
// MaxChars and MaxWords limits. Text already within limits is returned as a
// single chunk. Empty or whitespace-only input yields no chunks. The only
// case that may break mid-clause is the hard word-count fallback for a
// clause with no separators at all.
func Split(text string, p profile.Profile) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if !p.NeedsChunking {
		return []string{text}
	}

	if len(text) <= p.MaxChars && WordCount(text) <= p.MaxWords {
		return []string{text}
	}

	log.Debug().
		Int("chars", len(text)).
		Int("words", WordCount(text)).
		Int("max_chars", p.MaxChars).
		Int("max_words", p.MaxWords).
		Msg("chunking text")

	chunks := accumulate(splitKeepingSep(text, sentenceSep), p.MaxChars, p.MaxWords, splitLongSentence)

	log.Debug().Int("chunks", len(chunks)).Msg("text chunked")
	return chunks
}

// splitLongSentence breaks a single over-limit sentence at comma boundaries,
// falling back to a hard split by word count when a clause is still too big.
func splitLongSentence(sentence string, maxChars, maxWords int) []string {
	return accumulate(splitKeepingSep(sentence, clauseSep), maxChars, maxWords, forceSplitByWords)
}

// forceSplitByWords splits on raw word count. Last resort: guarantees
// termination even for pathological input with no punctuation at all.
func forceSplitByWords(text string, _, maxWords int) []string {
	words := strings.Fields(text)
	var out []string
	for i := 0; i < len(words); i += maxWords {
		end := min(i+maxWords, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// accumulate greedily packs units into chunks up to the limits. A unit that
// alone exceeds the limits is handed to overflow for finer splitting.
func accumulate(units []string, maxChars, maxWords int, overflow func(string, int, int) []string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, unit := range units {
		if len(unit) > maxChars || WordCount(unit) > maxWords {
			flush()
			chunks = append(chunks, overflow(unit, maxChars, maxWords)...)
			continue
		}

		candidate := current.String() + unit
		if len(candidate) > maxChars || WordCount(candidate) > maxWords {
			flush()
		}
		current.WriteString(unit)
	}
	flush()

	return chunks
}

// splitKeepingSep splits text on a separator pattern, keeping each separator
// attached to the unit it terminates so that concatenating the units exactly
// reproduces the input.
func splitKeepingSep(text string, sep *regexp.Regexp) []string {
	matches := sep.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	var units []string
	start := 0
	for _, m := range matches {
		units = append(units, text[start:m[1]])
		start = m[1]
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}
