package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-utau/lyric"
	"github.com/cwbudde/algo-utau/synth"
)

// File is the JSON schema for singer presets.
type File struct {
	Gain          *float32 `json:"gain"`
	InstantCutoff *bool    `json:"instant_cutoff"`
	CrossfadeMs   *float32 `json:"crossfade_ms"`
	BendRange     *float32 `json:"bend_range"`
	Vowel         *int     `json:"vowel"`
	Consonant     *int     `json:"consonant"`
	LyricSource   string   `json:"lyric_source"`
	Voicebank     string   `json:"voicebank"`
	LyricFile     string   `json:"lyric_file"`
}

// LoadJSON loads a preset JSON file and applies it on top of default params.
// Relative voicebank and lyric paths are resolved against the preset's
// directory.
func LoadJSON(path string) (*synth.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p := synth.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	p.Voicebank = resolve(base, p.Voicebank)
	p.LyricFile = resolve(base, p.LyricFile)
	return p, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *synth.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.Gain != nil {
		if *f.Gain < 0 || *f.Gain > 2 {
			return fmt.Errorf("gain must be in [0,2]")
		}
		dst.Gain = *f.Gain
	}
	if f.InstantCutoff != nil {
		dst.InstantCutoff = *f.InstantCutoff
	}
	if f.CrossfadeMs != nil {
		if *f.CrossfadeMs < 0 {
			return fmt.Errorf("crossfade_ms must be >= 0")
		}
		dst.CrossfadeMs = *f.CrossfadeMs
	}
	if f.BendRange != nil {
		if *f.BendRange <= 0 {
			return fmt.Errorf("bend_range must be > 0")
		}
		dst.BendRange = *f.BendRange
	}
	if f.Vowel != nil {
		if *f.Vowel < 0 || *f.Vowel >= lyric.Vowels {
			return fmt.Errorf("vowel must be in [0,%d]", lyric.Vowels-1)
		}
		dst.Vowel = *f.Vowel
	}
	if f.Consonant != nil {
		if *f.Consonant < 0 || *f.Consonant >= lyric.Consonants {
			return fmt.Errorf("consonant must be in [0,%d]", lyric.Consonants-1)
		}
		dst.Consonant = *f.Consonant
	}
	if f.LyricSource != "" {
		src, err := lyric.ParseSource(f.LyricSource)
		if err != nil {
			return fmt.Errorf("lyric_source: %w", err)
		}
		dst.LyricSource = src
	}
	if v := strings.TrimSpace(f.Voicebank); v != "" {
		dst.Voicebank = v
	}
	if v := strings.TrimSpace(f.LyricFile); v != "" {
		dst.LyricFile = v
	}
	return nil
}
