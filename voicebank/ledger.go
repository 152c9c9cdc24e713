// Package voicebank indexes a singer directory: the oto.ini ledger of phoneme
// timing markers and the prepared audio for every sample it references.
package voicebank

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-utau/internal/textenc"
)

// LedgerName is the ledger file expected at the root of a voicebank directory.
const LedgerName = "oto.ini"

// Entry holds one ledger record. All timings are milliseconds relative to the
// start of the sample.
type Entry struct {
	SampleID     string // file name relative to the voicebank directory
	Alias        string
	Offset       int
	Consonant    int
	Cutoff       int // >= 0: measured back from the sample end; < 0: length from Offset
	Preutterance int
	Overlap      int
}

// ParseError reports a malformed ledger line. A parse error fails the whole load.
type ParseError struct {
	Path   string
	Line   int
	Text   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "ledger"
	}
	return fmt.Sprintf("%s:%d: %s: %q", loc, e.Line, e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Index is an immutable alias → timing table for one loaded ledger.
type Index struct {
	path     string
	entries  []Entry
	byAlias  map[string]int
	bySample map[string]int
}

// Load reads and parses the ledger at path. Non-UTF-8 ledgers are decoded as
// Shift-JIS first.
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := textenc.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	idx, err := Parse(strings.NewReader(text))
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	idx.path = path
	return idx, nil
}

// Parse reads ledger lines of the form
// filename=alias,offset,consonant,cutoff,preutterance,overlap.
// Blank lines are ignored; every other malformed line is fatal.
func Parse(r io.Reader) (*Index, error) {
	idx := &Index{
		byAlias:  make(map[string]int),
		bySample: make(map[string]int),
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			err.Line = lineNo
			return nil, err
		}
		idx.add(e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

// ParseLine parses a single ledger record. The returned error carries no line
// number.
func ParseLine(line string) (Entry, *ParseError) {
	file, rest, ok := strings.Cut(line, "=")
	if !ok {
		return Entry{}, &ParseError{Text: line, Reason: "missing '='"}
	}
	if file == "" {
		return Entry{}, &ParseError{Text: line, Reason: "empty file name"}
	}
	fields := strings.Split(rest, ",")
	if len(fields) != 6 {
		return Entry{}, &ParseError{Text: line, Reason: fmt.Sprintf("expected 6 fields, got %d", len(fields))}
	}
	var nums [5]int
	for i := range nums {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if err != nil {
			return Entry{}, &ParseError{Text: line, Reason: fmt.Sprintf("field %d is not an integer", i+2), Err: err}
		}
		nums[i] = v
	}
	return Entry{
		SampleID:     file,
		Alias:        fields[0],
		Offset:       nums[0],
		Consonant:    nums[1],
		Cutoff:       nums[2],
		Preutterance: nums[3],
		Overlap:      nums[4],
	}, nil
}

// FormatLine encodes e in ledger syntax.
func FormatLine(e Entry) string {
	return fmt.Sprintf("%s=%s,%d,%d,%d,%d,%d",
		e.SampleID, e.Alias, e.Offset, e.Consonant, e.Cutoff, e.Preutterance, e.Overlap)
}

func (x *Index) add(e Entry) {
	x.entries = append(x.entries, e)
	i := len(x.entries) - 1
	if _, dup := x.byAlias[e.Alias]; !dup {
		x.byAlias[e.Alias] = i
	}
	if _, dup := x.bySample[e.SampleID]; !dup {
		x.bySample[e.SampleID] = i
	}
}

// Path returns the ledger file the index was loaded from, if any.
func (x *Index) Path() string {
	if x == nil {
		return ""
	}
	return x.path
}

// Len returns the number of records.
func (x *Index) Len() int { return len(x.entries) }

// Entries returns the records in ledger order. Callers must not modify them.
func (x *Index) Entries() []Entry { return x.entries }

// Entry looks up a record by exact alias match.
func (x *Index) Entry(alias string) (Entry, bool) {
	if x == nil {
		return Entry{}, false
	}
	i, ok := x.byAlias[alias]
	if !ok {
		return Entry{}, false
	}
	return x.entries[i], true
}

// EntryForSample looks up the first record referencing sampleID.
func (x *Index) EntryForSample(sampleID string) (Entry, bool) {
	if x == nil {
		return Entry{}, false
	}
	i, ok := x.bySample[sampleID]
	if !ok {
		return Entry{}, false
	}
	return x.entries[i], true
}

// Resolve finds the record for a phoneme: by alias first, then by the
// "<phoneme>.wav" sample convention. An empty phoneme never resolves, even
// when the ledger has records with an empty alias.
func (x *Index) Resolve(phoneme string) (Entry, bool) {
	if phoneme == "" {
		return Entry{}, false
	}
	if e, ok := x.Entry(phoneme); ok {
		return e, true
	}
	return x.EntryForSample(phoneme + ".wav")
}
