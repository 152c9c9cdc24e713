package lyric

const (
	Vowels     = 5
	Consonants = 15
)

var (
	vowelLatin     = [Vowels]string{"a", "i", "u", "e", "o"}
	consonantLatin = [Consonants]string{"", "k", "s", "t", "n", "h", "m", "y", "r", "w", "g", "z", "d", "b", "p"}

	// Rows follow consonantLatin, columns vowelLatin. Gaps are syllables the
	// kana table does not have.
	glyphs = [Consonants][Vowels]string{
		{"あ", "い", "う", "え", "お"},
		{"か", "き", "く", "け", "こ"},
		{"さ", "し", "す", "せ", "そ"},
		{"た", "ち", "つ", "て", "と"},
		{"な", "に", "ぬ", "ね", "の"},
		{"は", "ひ", "ふ", "へ", "ほ"},
		{"ま", "み", "む", "め", "も"},
		{"や", "", "ゆ", "", "よ"},
		{"ら", "り", "る", "れ", "ろ"},
		{"わ", "", "", "", "を"},
		{"が", "ぎ", "ぐ", "げ", "ご"},
		{"ざ", "じ", "ず", "ぜ", "ぞ"},
		{"だ", "ぢ", "づ", "で", "ど"},
		{"ば", "び", "ぶ", "べ", "ぼ"},
		{"ぱ", "ぴ", "ぷ", "ぺ", "ぽ"},
	}
)

// ParamLyric maps two automation indices to a kana. Consonant 0 means a bare
// vowel. Out-of-range indices are clamped.
type ParamLyric struct {
	Vowel     int
	Consonant int
}

// Glyph returns the kana, or "" for a gap in the table.
func (p ParamLyric) Glyph() string {
	v, c := p.clamped()
	return glyphs[c][v]
}

// Latin returns the romaji spelling, e.g. "ka".
func (p ParamLyric) Latin() string {
	v, c := p.clamped()
	return consonantLatin[c] + vowelLatin[v]
}

func (p ParamLyric) clamped() (int, int) {
	return clamp(p.Vowel, Vowels-1), clamp(p.Consonant, Consonants-1)
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
