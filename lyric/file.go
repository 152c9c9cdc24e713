package lyric

import (
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-utau/internal/textenc"
)

// FileLyric steps through the whitespace-separated tokens of a lyric file.
type FileLyric struct {
	Path   string
	tokens []string
	cursor int
	last   string
}

// LoadFile reads path and tokenises it. Shift-JIS files are accepted.
func LoadFile(path string) (FileLyric, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileLyric{}, err
	}
	text, err := textenc.Decode(raw)
	if err != nil {
		return FileLyric{}, fmt.Errorf("decode %s: %w", path, err)
	}
	f := NewFileLyric(text)
	f.Path = path
	return f, nil
}

// NewFileLyric tokenises text.
func NewFileLyric(text string) FileLyric {
	return FileLyric{tokens: strings.Fields(text)}
}

// Next returns the token at the cursor and advances it, wrapping at the end.
// An empty lyric yields "".
func (f *FileLyric) Next() string {
	if len(f.tokens) == 0 {
		return ""
	}
	if f.cursor >= len(f.tokens) {
		f.cursor = 0
	}
	f.last = f.tokens[f.cursor]
	f.cursor++
	if f.cursor >= len(f.tokens) {
		f.cursor = 0
	}
	return f.last
}

// Reset rewinds the cursor to the first token.
func (f *FileLyric) Reset() { f.cursor = 0 }

// Len returns the number of tokens.
func (f *FileLyric) Len() int { return len(f.tokens) }

// Latin passes the last returned token through.
func (f *FileLyric) Latin() string { return f.last }
