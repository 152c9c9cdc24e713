package lyric

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Frame is a 6-byte lyric carrier received on the SysEx channel.
type Frame struct {
	raw   [6]byte
	short bool
}

// DefaultFrame carries あ.
func DefaultFrame() Frame {
	f, _ := ParseFrame([]byte{0xF0, 0x30, 0x42, 0xF7})
	return f
}

// ParseFrame accepts a native 6-byte frame or a 4-byte frame, which is
// padded to [b0, b1, b2, b3, 0x00, b3]. Other lengths are rejected.
func ParseFrame(b []byte) (Frame, bool) {
	var f Frame
	switch len(b) {
	case 4:
		f.raw = [6]byte{b[0], b[1], b[2], b[3], 0x00, b[3]}
		f.short = true
	case 6:
		copy(f.raw[:], b)
	default:
		return Frame{}, false
	}
	return f, true
}

// Bytes returns the padded frame.
func (f Frame) Bytes() [6]byte { return f.raw }

// Short reports whether the frame arrived in the 4-byte form.
func (f Frame) Short() bool { return f.short }

// IsLyric reports whether the envelope is a meta lyric event, a meta text
// event, or a raw SysEx message.
func (f Frame) IsLyric() bool {
	last := f.raw[5]
	switch f.raw[0] {
	case 0xFF:
		return last == 0x05 || last == 0x01
	case 0xF0:
		return last == 0xF7
	}
	return false
}

// Glyph decodes the payload as big-endian UTF-16: bytes 1-2 for the short
// form, bytes 1-4 otherwise. Invalid units become U+FFFD.
func (f Frame) Glyph() string {
	payload := []byte{f.raw[1], f.raw[2], 0, 0}
	if !f.short {
		payload[2], payload[3] = f.raw[3], f.raw[4]
	}
	text, err := utf16be.NewDecoder().Bytes(payload)
	if err != nil {
		return ""
	}
	return strings.Trim(string(text), " \t\r\n\x00")
}

// Latin passes the glyph through; SysEx lyrics carry no romanisation.
func (f Frame) Latin() string { return f.Glyph() }

// EncodeFrame builds a native frame [0xF0, u0hi, u0lo, u1hi, u1lo, 0xF7]
// from the first one or two UTF-16 units of text.
func EncodeFrame(text string) (Frame, error) {
	enc, err := utf16be.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	f.raw[0] = 0xF0
	copy(f.raw[1:5], enc)
	f.raw[5] = 0xF7
	return f, nil
}
