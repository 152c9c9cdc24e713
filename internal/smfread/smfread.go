// Package smfread converts Standard MIDI Files into timed engine events.
package smfread

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cwbudde/algo-utau/internal/textenc"
	"github.com/cwbudde/algo-utau/lyric"
	"github.com/cwbudde/algo-utau/synth"
)

const defaultBPM = 120.0

// TimedEvent is an engine event at an absolute output frame.
type TimedEvent struct {
	Frame int64
	Event synth.Event
}

// Song is a flattened, frame-sorted event list.
type Song struct {
	Events []TimedEvent
	// Frames is the frame of the last event.
	Frames int64
}

// ReadFile parses the SMF at path.
func ReadFile(path string, sampleRate int, logger *slog.Logger) (*Song, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read midi %s: %w", path, err)
	}
	return convert(s, sampleRate, logger)
}

// Read parses an SMF stream.
func Read(r io.Reader, sampleRate int, logger *slog.Logger) (*Song, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read midi: %w", err)
	}
	return convert(s, sampleRate, logger)
}

type tempoChange struct {
	tick int64
	bpm  float64
}

func convert(s *smf.SMF, sampleRate int, logger *slog.Logger) (*Song, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported midi time format %v", s.TimeFormat)
	}
	tm := newTempoMap(s, float64(ticks.Resolution()), float64(sampleRate))

	song := &Song{}
	skipped := 0
	for _, tr := range s.Tracks {
		var abs int64
		for _, ev := range tr {
			abs += int64(ev.Delta)
			frame := tm.frame(abs)
			msg := ev.Message

			var ch, key, vel uint8
			var rel int16
			var abs14 uint16
			var text string
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				song.add(frame, synth.NoteOn(0, int(key), float32(vel)/127))
			case msg.GetNoteEnd(&ch, &key):
				song.add(frame, synth.NoteOff(0, int(key)))
			case msg.GetPitchBend(&ch, &rel, &abs14):
				song.add(frame, synth.Event{Kind: synth.EventPitchBend, Bend: float32(rel) / 8192})
			case msg.GetMetaLyric(&text):
				// Lyric meta text is often Shift-JIS.
				decoded, err := textenc.Decode([]byte(text))
				if err != nil || decoded == "" {
					skipped++
					continue
				}
				f, err := lyric.EncodeFrame(decoded)
				if err != nil {
					skipped++
					continue
				}
				b := f.Bytes()
				song.add(frame, synth.Event{Kind: synth.EventSysEx, Data: b[:]})
			}
		}
	}
	if skipped > 0 {
		logger.Warn("midi lyrics skipped", "count", skipped)
	}

	sort.SliceStable(song.Events, func(i, j int) bool {
		a, b := song.Events[i], song.Events[j]
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return order(a.Event.Kind) < order(b.Event.Kind)
	})
	return song, nil
}

// order puts note-offs first and note-ons last at equal frames so a lyric
// and a legato note change land on the same frame.
func order(k synth.EventKind) int {
	switch k {
	case synth.EventNoteOff:
		return 0
	case synth.EventSysEx:
		return 1
	case synth.EventPitchBend, synth.EventParam:
		return 2
	default:
		return 3
	}
}

func (s *Song) add(frame int64, ev synth.Event) {
	s.Events = append(s.Events, TimedEvent{Frame: frame, Event: ev})
	if frame > s.Frames {
		s.Frames = frame
	}
}

// Cursor hands out a song's events block by block.
type Cursor struct {
	song *Song
	next int
}

// NewCursor starts at the beginning of song.
func NewCursor(song *Song) *Cursor {
	return &Cursor{song: song}
}

// Next appends to dst the events in [start, start+frames) with Timing made
// block-relative, and returns dst.
func (c *Cursor) Next(start int64, frames int, dst []synth.Event) []synth.Event {
	end := start + int64(frames)
	for c.next < len(c.song.Events) {
		te := c.song.Events[c.next]
		if te.Frame >= end {
			break
		}
		ev := te.Event
		ev.Timing = int(te.Frame - start)
		if ev.Timing < 0 {
			ev.Timing = 0
		}
		dst = append(dst, ev)
		c.next++
	}
	return dst
}

// Done reports whether every event has been handed out.
func (c *Cursor) Done() bool { return c.next >= len(c.song.Events) }

type tempoMap struct {
	changes    []tempoChange
	resolution float64
	sampleRate float64
}

func newTempoMap(s *smf.SMF, resolution, sampleRate float64) *tempoMap {
	tm := &tempoMap{resolution: resolution, sampleRate: sampleRate}
	for _, tr := range s.Tracks {
		var abs int64
		for _, ev := range tr {
			abs += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				tm.changes = append(tm.changes, tempoChange{tick: abs, bpm: bpm})
			}
		}
	}
	sort.SliceStable(tm.changes, func(i, j int) bool { return tm.changes[i].tick < tm.changes[j].tick })
	if len(tm.changes) == 0 || tm.changes[0].tick > 0 {
		tm.changes = append([]tempoChange{{tick: 0, bpm: defaultBPM}}, tm.changes...)
	}
	return tm
}

// frame converts an absolute tick to an output frame.
func (tm *tempoMap) frame(tick int64) int64 {
	var secs float64
	for i, c := range tm.changes {
		if c.tick >= tick {
			break
		}
		end := tick
		if i+1 < len(tm.changes) && tm.changes[i+1].tick < tick {
			end = tm.changes[i+1].tick
		}
		secs += float64(end-c.tick) / tm.resolution * 60 / c.bpm
	}
	return int64(math.Round(secs * tm.sampleRate))
}
