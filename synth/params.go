package synth

import (
	"math"

	"github.com/cwbudde/algo-utau/lyric"
)

// Params holds all preset parameters.
type Params struct {
	// Gain is the peak voice gain reached at full velocity (0..2).
	Gain float32

	// InstantCutoff drops a voice as soon as it is released. When false the
	// release tail plays to the end of the sample.
	InstantCutoff bool

	// CrossfadeMs blends the loop end into the loop start over this many
	// milliseconds. Zero disables crossfading.
	CrossfadeMs float32

	// BendRange is the pitch-bend depth in semitones.
	BendRange float32

	Vowel     int // 0..4
	Consonant int // 0..14, 0 = none

	LyricSource lyric.Source

	// Voicebank and LyricFile are loaded when the engine is created.
	Voicebank string
	LyricFile string
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		Gain:          1.0,
		InstantCutoff: true,
		CrossfadeMs:   0,
		BendRange:     2,
		LyricSource:   lyric.SourceParam,
	}
}

// ParamID identifies an automatable parameter carried by EventParam.
type ParamID uint32

const (
	ParamGain ParamID = iota
	ParamInstantCutoff
	ParamCrossfadeMs
	ParamBendRange
	ParamVowel
	ParamConsonant
)

func (id ParamID) String() string {
	switch id {
	case ParamGain:
		return "gain"
	case ParamInstantCutoff:
		return "instant_cutoff"
	case ParamCrossfadeMs:
		return "crossfade_ms"
	case ParamBendRange:
		return "bend_range"
	case ParamVowel:
		return "vowel"
	case ParamConsonant:
		return "consonant"
	}
	return "unknown"
}

// ParseParamID looks a parameter up by its String name.
func ParseParamID(name string) (ParamID, bool) {
	for id := ParamGain; id <= ParamConsonant; id++ {
		if id.String() == name {
			return id, true
		}
	}
	return 0, false
}

// apply sets one parameter from a normalised host value. Booleans are true
// at >= 0.5; indices are rounded.
func (p *Params) apply(id ParamID, v float64) bool {
	switch id {
	case ParamGain:
		p.Gain = float32(clampf64(v, 0, 2))
	case ParamInstantCutoff:
		p.InstantCutoff = v >= 0.5
	case ParamCrossfadeMs:
		p.CrossfadeMs = float32(maxf64(v, 0))
	case ParamBendRange:
		if v > 0 {
			p.BendRange = float32(v)
		}
	case ParamVowel:
		p.Vowel = int(clampf64(math.Round(v), 0, lyric.Vowels-1))
	case ParamConsonant:
		p.Consonant = int(clampf64(math.Round(v), 0, lyric.Consonants-1))
	default:
		return false
	}
	return true
}
