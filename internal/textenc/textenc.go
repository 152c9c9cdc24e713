// Package textenc decodes the legacy Japanese text encodings found in
// voicebank ledgers and MIDI lyric events.
package textenc

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// Decode returns b as UTF-8. Input that is already valid UTF-8 is returned
// unchanged; anything else is treated as Shift-JIS.
func Decode(b []byte) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}
	return DecodeShiftJIS(b)
}

// DecodeShiftJIS converts Shift-JIS bytes to UTF-8.
func DecodeShiftJIS(b []byte) (string, error) {
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeShiftJIS converts UTF-8 text to Shift-JIS bytes.
func EncodeShiftJIS(s string) ([]byte, error) {
	return japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
}
