package synth

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-utau/internal/spsc"
	"github.com/cwbudde/algo-utau/lyric"
	"github.com/cwbudde/algo-utau/psola"
	"github.com/cwbudde/algo-utau/sample"
	"github.com/cwbudde/algo-utau/voicebank"
)

// Engine is the block-driven singing synthesizer. Process, and everything it
// owns (voices, voicebank, lyric state), belong to the audio goroutine. The
// control side talks to it through Controller and reads Amplitude and Stats.
type Engine struct {
	sampleRate int
	params     Params
	logger     *slog.Logger

	ring       *spsc.Ring[Message]
	controller *Controller
	capacity   int

	bank   *voicebank.Bank
	lyrics *lyric.Settings
	voices []Voice
	bend   float32

	shifter psola.Shifter

	amplitude atomic.Uint32
	stats     engineStats
}

type engineStats struct {
	blocks          atomic.Uint64
	notesStarted    atomic.Uint64
	notesDropped    atomic.Uint64
	notesUnresolved atomic.Uint64
	reshapeFailures atomic.Uint64
	controlApplied  atomic.Uint64
	activeVoices    atomic.Int64
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Blocks          uint64
	NotesStarted    uint64
	NotesDropped    uint64 // rejected by the monophonic gate
	NotesUnresolved uint64 // no ledger entry or sample for the phoneme
	ReshapeFailures uint64
	ControlApplied  uint64
	ActiveVoices    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithControlCapacity sets the control queue size.
func WithControlCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.capacity = n
		}
	}
}

// NewEngine creates an engine rendering at sampleRate. params is copied; nil
// means NewDefaultParams. A voicebank or lyric file named in params is
// loaded before NewEngine returns; failures are logged.
func NewEngine(sampleRate int, params *Params, opts ...Option) *Engine {
	if params == nil {
		params = NewDefaultParams()
	}
	e := &Engine{
		sampleRate: sampleRate,
		params:     *params,
		logger:     slog.Default(),
		capacity:   DefaultControlCapacity,
		voices:     make([]Voice, 0, 8),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ring = spsc.New[Message](e.capacity)
	e.controller = newController(e.ring, sampleRate, e.logger)

	e.lyrics = lyric.NewSettings()
	e.lyrics.Source = e.params.LyricSource
	e.syncParamLyric()

	if e.params.Voicebank != "" {
		e.loadVoicebank(e.params.Voicebank)
	}
	if e.params.LyricFile != "" {
		e.loadLyricFile(e.params.LyricFile)
	}
	return e
}

// Controller returns the control-side handle.
func (e *Engine) Controller() *Controller { return e.controller }

// SampleRate returns the rendering rate.
func (e *Engine) SampleRate() int { return e.sampleRate }

// Amplitude returns the mean absolute output level of the last block.
func (e *Engine) Amplitude() float32 {
	return math.Float32frombits(e.amplitude.Load())
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Blocks:          e.stats.blocks.Load(),
		NotesStarted:    e.stats.notesStarted.Load(),
		NotesDropped:    e.stats.notesDropped.Load(),
		NotesUnresolved: e.stats.notesUnresolved.Load(),
		ReshapeFailures: e.stats.reshapeFailures.Load(),
		ControlApplied:  e.stats.controlApplied.Load(),
		ActiveVoices:    int(e.stats.activeVoices.Load()),
	}
}

// Process renders one block, adding into left and right in place, and
// returns the block's mean absolute level over both channels.
//
// Queued control messages are applied first, then events in order. Every
// voice is re-pitched from its full sample each block.
func (e *Engine) Process(left, right []float32, events []Event, tr Transport) float32 {
	frames := len(left)
	if len(right) < frames {
		frames = len(right)
	}

	e.drainControl()
	if !tr.Playing {
		e.lyrics.File.Reset()
	}
	for _, ev := range events {
		e.handleEvent(ev, frames)
	}

	var amp float32
	rate := float32(e.sampleRate)
	for vi := range e.voices {
		v := &e.voices[vi]
		p, ok := e.sample(v.key)
		if !ok {
			continue
		}
		shaped, err := e.shifter.Reshape(p, noteToFreq(float32(v.note)+e.bend*e.params.BendRange), rate)
		if err != nil {
			// Silence for this block; the voice keeps its timing.
			e.stats.reshapeFailures.Add(1)
			shaped = [2][]float32{}
		}
		for i := 0; i < frames; i++ {
			l, r, a := v.step(i, shaped)
			left[i] += l
			right[i] += r
			amp += a
		}
	}

	if frames > 0 {
		amp /= float32(frames * 2)
	}
	e.amplitude.Store(math.Float32bits(amp))
	e.retire()
	e.stats.blocks.Add(1)
	e.stats.activeVoices.Store(int64(len(e.voices)))
	return amp
}

func (e *Engine) drainControl() {
	for {
		m, ok := e.ring.Pop()
		if !ok {
			return
		}
		e.applyMessage(m)
		e.stats.controlApplied.Add(1)
	}
}

func (e *Engine) applyMessage(m Message) {
	switch m.Kind {
	case MsgLoadVoicebank:
		e.loadVoicebank(m.Path)
	case MsgUnloadVoicebank:
		e.unloadVoicebank(m.Path)
	case MsgInstallVoicebank:
		if m.Bank != nil {
			e.installVoicebank(m.Bank)
		}
	case MsgLoadLyricFile:
		e.loadLyricFile(m.Path)
	case MsgSetLyricSource:
		if e.lyrics.Source != m.Source {
			e.logger.Info("lyric source changed", "from", e.lyrics.Source.String(), "to", m.Source.String())
		}
		e.lyrics.Source = m.Source
		e.params.LyricSource = m.Source
	}
}

func (e *Engine) loadVoicebank(dir string) {
	bank, err := voicebank.LoadBank(dir, e.sampleRate, e.logger)
	if err != nil {
		// The previous voicebank stays active.
		e.logger.Error("voicebank load failed", "dir", dir, "error", err)
		return
	}
	e.installVoicebank(bank)
}

func (e *Engine) installVoicebank(b *voicebank.Bank) {
	e.bank = b
	e.params.Voicebank = b.Dir
	e.logger.Info("voicebank installed", "dir", b.Dir, "ledger", b.Index.Path(), "samples", b.Samples.Len())
	if err := b.Err(); err != nil {
		e.logger.Warn("voicebank incomplete", "error", err)
	}
}

func (e *Engine) unloadVoicebank(dir string) {
	if e.bank == nil {
		return
	}
	if dir != "" && dir != e.bank.Dir {
		return
	}
	e.logger.Info("voicebank removed", "dir", e.bank.Dir)
	e.bank = nil
	e.params.Voicebank = ""
	// Voices referencing the removed samples are retired after the next block.
}

func (e *Engine) loadLyricFile(path string) {
	f, err := lyric.LoadFile(path)
	if err != nil {
		e.logger.Error("lyric file load failed", "path", path, "error", err)
		return
	}
	e.lyrics.File = f
	e.params.LyricFile = path
	e.logger.Info("lyric file loaded", "path", path, "tokens", f.Len())
}

func (e *Engine) handleEvent(ev Event, frames int) {
	timing := ev.Timing
	if timing < 0 {
		timing = 0
	}
	if frames > 0 && timing >= frames {
		timing = frames - 1
	}
	switch ev.Kind {
	case EventNoteOn:
		e.noteOn(ev.Note, ev.Velocity, timing)
	case EventNoteOff:
		for i := range e.voices {
			if e.voices[i].note == ev.Note {
				e.voices[i].release(timing)
			}
		}
	case EventPitchBend:
		e.bend = clampBend(ev.Bend)
	case EventSysEx:
		f, ok := lyric.ParseFrame(ev.Data)
		if !ok || !f.IsLyric() {
			return
		}
		e.lyrics.SysEx = f
		e.logger.Debug("lyric received", "lyric", f.Glyph())
	case EventParam:
		if e.params.apply(ev.Param, ev.Value) {
			e.syncParamLyric()
		}
	}
}

// gateOpen reports whether a new note may start. Only the first voice is
// inspected.
func (e *Engine) gateOpen() bool {
	if len(e.voices) == 0 {
		return true
	}
	return e.voices[0].releasing()
}

func (e *Engine) noteOn(note int, velocity float32, timing int) {
	if !e.gateOpen() {
		e.stats.notesDropped.Add(1)
		return
	}
	if e.bank == nil {
		e.stats.notesUnresolved.Add(1)
		return
	}
	phoneme := e.lyrics.Next()
	if phoneme == "" {
		e.stats.notesUnresolved.Add(1)
		return
	}
	entry, p, ok := e.bank.Lookup(phoneme)
	if !ok {
		e.stats.notesUnresolved.Add(1)
		e.logger.Debug("phoneme not playable", "phoneme", phoneme)
		return
	}

	n := p.Len()
	offset := msToFrames(entry.Offset, e.sampleRate)
	loopStart := msToFrames(entry.Consonant, e.sampleRate) + offset
	if loopStart < 0 {
		loopStart = 0
	}
	if loopStart > n-1 {
		loopStart = n - 1
	}
	var loopEnd int
	if entry.Cutoff >= 0 {
		loopEnd = n - msToFrames(entry.Cutoff, e.sampleRate)
	} else {
		loopEnd = offset + msToFrames(-entry.Cutoff, e.sampleRate)
	}
	if loopEnd > n-1 {
		loopEnd = n - 1
	}
	if loopEnd < loopStart {
		loopEnd = loopStart
	}
	xf := 0
	if e.params.CrossfadeMs > 0 {
		xf = int(e.params.CrossfadeMs / 1000 * float32(e.sampleRate))
	}
	if limit := (loopEnd - loopStart) / 2; xf > limit {
		xf = limit
	}

	gain := e.params.Gain * clampVelocity(velocity)
	e.voices = append(e.voices, newVoice(e.bank.SamplePath(entry), note, gain, loopStart, loopEnd, xf, timing))
	e.stats.notesStarted.Add(1)
}

// retire drops voices whose sample is gone or fully played, and handles
// released voices according to InstantCutoff.
func (e *Engine) retire() {
	keep := e.voices[:0]
	for _, v := range e.voices {
		p, ok := e.sample(v.key)
		if !ok || v.position >= p.Len() {
			continue
		}
		if v.phase == PhaseDone {
			if e.params.InstantCutoff {
				continue
			}
			if v.position < v.loopEnd {
				v.position = v.loopEnd
			}
		}
		keep = append(keep, v)
	}
	e.voices = keep
}

func (e *Engine) sample(key string) (*sample.Prepared, bool) {
	if e.bank == nil {
		return nil, false
	}
	return e.bank.Samples.Get(key)
}

func (e *Engine) syncParamLyric() {
	e.lyrics.Param = lyric.ParamLyric{Vowel: e.params.Vowel, Consonant: e.params.Consonant}
}

func clampVelocity(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampBend(b float32) float32 {
	if b < -1 {
		return -1
	}
	if b > 1 {
		return 1
	}
	return b
}
