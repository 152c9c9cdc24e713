package synth

// EventKind discriminates Event.
type EventKind int

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventPitchBend
	EventSysEx
	EventParam
)

// Event is a host event delivered with a block. Timing is the frame offset
// inside the block; events must be ordered by Timing.
type Event struct {
	Kind   EventKind
	Timing int

	Note     int     // NoteOn, NoteOff
	Velocity float32 // NoteOn, 0..1
	Bend     float32 // PitchBend, -1..1
	Data     []byte  // SysEx
	Param    ParamID // Param
	Value    float64 // Param
}

// NoteOn builds a note-on event.
func NoteOn(timing, note int, velocity float32) Event {
	return Event{Kind: EventNoteOn, Timing: timing, Note: note, Velocity: velocity}
}

// NoteOff builds a note-off event.
func NoteOff(timing, note int) Event {
	return Event{Kind: EventNoteOff, Timing: timing, Note: note}
}

// Transport is the host play state for a block.
type Transport struct {
	Playing bool
}
