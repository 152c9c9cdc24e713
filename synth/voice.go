package synth

// Phase is the playback phase of a voice.
type Phase int

const (
	PhaseAttack Phase = iota
	PhaseSustain
	PhaseRelease
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAttack:
		return "attack"
	case PhaseSustain:
		return "sustain"
	case PhaseRelease:
		return "release"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// Voice is one sounding note. Position is in sample frames and is negative
// until the note's start frame inside the current block is reached.
type Voice struct {
	key      string
	note     int
	position int
	gain     float32
	phase    Phase

	loopStart int
	loopEnd   int
	crossfade int

	// ignoreFade suppresses the loop crossfade until the loop body has been
	// entered cleanly, and again after release.
	ignoreFade bool

	// pendingRelease is the frame of the current block at which a note-off
	// takes effect, or -1.
	pendingRelease int
}

func newVoice(key string, note int, gain float32, loopStart, loopEnd, crossfade, startFrame int) Voice {
	return Voice{
		key:            key,
		note:           note,
		position:       -startFrame,
		gain:           gain,
		phase:          PhaseAttack,
		loopStart:      loopStart,
		loopEnd:        loopEnd,
		crossfade:      crossfade,
		ignoreFade:     true,
		pendingRelease: -1,
	}
}

// Phase returns the current phase.
func (v *Voice) Phase() Phase { return v.phase }

// Position returns the playback cursor.
func (v *Voice) Position() int { return v.position }

// releasing reports whether a note-off has been seen for this voice.
func (v *Voice) releasing() bool {
	return v.phase == PhaseRelease || v.phase == PhaseDone || v.pendingRelease >= 0
}

// release schedules a note-off at frame of the current block.
func (v *Voice) release(frame int) {
	if v.phase != PhaseAttack && v.phase != PhaseSustain {
		return
	}
	if v.pendingRelease < 0 || frame < v.pendingRelease {
		v.pendingRelease = frame
	}
}

// render returns the gained output of the current frame for both channels
// and the frame's contribution to the amplitude meter. A nil channel reads
// as silence.
func (v *Voice) render(ch [2][]float32) (l, r, amp float32) {
	if v.position < 0 {
		return 0, 0, 0
	}
	xf := v.crossfade
	fadeFrom := v.loopEnd - xf
	if xf > 0 && !v.ignoreFade && v.position >= fadeFrom && v.position <= v.loopEnd {
		offset := v.position - fadeFrom
		ratio := float32(offset) / float32(xf)
		other := v.loopStart + offset
		var out [2]float32
		for c := range ch {
			a := (1 - ratio) * at(ch[c], v.position) * v.gain
			b := ratio * at(ch[c], other) * v.gain
			out[c] = a + b
			amp += absf(a) + absf(b)
		}
		return out[0], out[1], amp
	}
	l = at(ch[0], v.position) * v.gain
	r = at(ch[1], v.position) * v.gain
	return l, r, absf(l) + absf(r)
}

// advance moves the cursor one frame and applies phase transitions.
func (v *Voice) advance() {
	v.position++
	switch v.phase {
	case PhaseAttack:
		if v.position >= v.loopStart {
			v.phase = PhaseSustain
		}
	case PhaseSustain:
		if v.ignoreFade && v.position > v.loopStart+v.crossfade {
			v.ignoreFade = false
		}
		if v.position > v.loopEnd {
			v.position = v.loopStart + v.crossfade
		}
	case PhaseRelease:
		v.position = v.loopEnd
		v.ignoreFade = true
		v.phase = PhaseDone
	}
}

// step renders frame i of a block and advances. Pending note-offs take
// effect before the frame is rendered.
func (v *Voice) step(i int, ch [2][]float32) (l, r, amp float32) {
	if v.pendingRelease >= 0 && i >= v.pendingRelease {
		v.phase = PhaseRelease
		v.pendingRelease = -1
	}
	l, r, amp = v.render(ch)
	v.advance()
	return l, r, amp
}

func at(x []float32, i int) float32 {
	if i < 0 || i >= len(x) {
		return 0
	}
	return x[i]
}
