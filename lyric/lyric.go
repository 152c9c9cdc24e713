// Package lyric decides which phoneme a new note sings. Three producers are
// available (host parameters, a lyric text file, SysEx lyric frames) and
// exactly one of them is active at a time.
package lyric

import (
	"errors"
	"fmt"
	"strings"
)

// Source selects the active producer.
type Source int

const (
	SourceParam Source = iota
	SourceFile
	SourceSysEx
)

// ErrInvalidSource is returned for source numbers outside 0..2.
var ErrInvalidSource = errors.New("lyric: invalid source")

// SourceFromInt validates a host-supplied source number.
func SourceFromInt(v int) (Source, error) {
	if v < int(SourceParam) || v > int(SourceSysEx) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSource, v)
	}
	return Source(v), nil
}

// ParseSource accepts "param", "file" or "sysex" (case-insensitive).
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "param", "":
		return SourceParam, nil
	case "file":
		return SourceFile, nil
	case "sysex":
		return SourceSysEx, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSource, s)
}

func (s Source) String() string {
	switch s {
	case SourceParam:
		return "param"
	case SourceFile:
		return "file"
	case SourceSysEx:
		return "sysex"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Settings holds all three producers. Switching Source leaves the inactive
// producers' state untouched.
type Settings struct {
	Source Source
	Param  ParamLyric
	File   FileLyric
	SysEx  Frame
}

// NewSettings returns parameter-driven settings with あ preloaded in every
// producer that has a default.
func NewSettings() *Settings {
	return &Settings{
		Source: SourceParam,
		SysEx:  DefaultFrame(),
	}
}

// Next returns the phoneme for the next note-on. Only the file producer
// advances.
func (s *Settings) Next() string {
	switch s.Source {
	case SourceFile:
		return s.File.Next()
	case SourceSysEx:
		return s.SysEx.Glyph()
	default:
		return s.Param.Glyph()
	}
}

// Latin returns a romanised form of the current phoneme where the active
// producer supports one.
func (s *Settings) Latin() string {
	switch s.Source {
	case SourceFile:
		return s.File.Latin()
	case SourceSysEx:
		return s.SysEx.Latin()
	default:
		return s.Param.Latin()
	}
}
