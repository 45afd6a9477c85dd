// Package profile holds per-backend capability profiles: chunk limits,
// crossfade durations and native sample rates. Centralizing these thresholds
// keeps backend-specific magic numbers out of the request pipeline; a new
// backend is integrated by adding one record here.
package profile

// Profile describes the text-length limits and stitching parameters of a
// single TTS backend. Invariant: OptimalWords <= MaxWords.
type Profile struct {
	MaxWords      int
	MaxChars      int
	OptimalWords  int
	NeedsChunking bool
	CrossfadeMs   int
	SampleRate    int // native output rate in Hz; 0 if unspecified
}

// DefaultName is the profile used for backends without a record of their own.
const DefaultName = "openaudio"

var profiles = map[string]Profile{
	"openaudio": {
		MaxWords:      75,
		MaxChars:      400,
		OptimalWords:  50,
		NeedsChunking: true,
		CrossfadeMs:   50,
	},
	"voxcpm": {
		MaxWords:      75,
		MaxChars:      400,
		OptimalWords:  50,
		NeedsChunking: true,
		CrossfadeMs:   50,
	},
	"voxcpm15": {
		MaxWords:      150,
		MaxChars:      800,
		OptimalWords:  100,
		NeedsChunking: true,
		CrossfadeMs:   50,
		SampleRate:    44100,
	},
	"kyutai": {
		MaxWords:      40,
		MaxChars:      250,
		OptimalWords:  30,
		NeedsChunking: true,
		CrossfadeMs:   30,
	},
	"higgs": {
		MaxWords:      100,
		MaxChars:      600,
		OptimalWords:  75,
		NeedsChunking: true,
		CrossfadeMs:   50,
	},
	"vibevoice": {
		MaxWords:      100,
		MaxChars:      500,
		OptimalWords:  75,
		NeedsChunking: true,
		CrossfadeMs:   100,
	},
	"kokoro": {
		MaxWords:      200,
		MaxChars:      1200,
		OptimalWords:  150,
		NeedsChunking: true,
		CrossfadeMs:   30,
	},
	"qwen3tts": {
		MaxWords:      100,
		MaxChars:      500,
		OptimalWords:  75,
		NeedsChunking: true,
		CrossfadeMs:   50,
		SampleRate:    24000,
	},
	// Cloud services accept long inputs and chunk internally.
	"elevenlabs": {
		MaxWords:      2500,
		MaxChars:      15000,
		OptimalWords:  500,
		NeedsChunking: false,
	},
	"polly": {
		MaxWords:      1500,
		MaxChars:      3000,
		OptimalWords:  500,
		NeedsChunking: false,
	},
	"gcloud": {
		MaxWords:      1000,
		MaxChars:      5000,
		OptimalWords:  500,
		NeedsChunking: false,
	},
}

// Get returns the profile for a backend name. Unknown names fall back to the
// default profile so lookups never fail.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles[DefaultName]
}

// NeedsChunking reports whether a backend requires text chunking at all.
func NeedsChunking(name string) bool {
	return Get(name).NeedsChunking
}

// Names returns the set of backends with explicit profiles.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	return names
}
