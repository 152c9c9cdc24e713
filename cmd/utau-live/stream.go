package main

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-utau/internal/spsc"
	"github.com/cwbudde/algo-utau/synth"
)

// noteQueue carries live note events to the audio goroutine. Producers (the
// console and the bus) are serialized so the ring keeps a single producer.
type noteQueue struct {
	mu      sync.Mutex
	ring    *spsc.Ring[synth.Event]
	dropped atomic.Uint64
}

func newNoteQueue(capacity int) *noteQueue {
	return &noteQueue{ring: spsc.New[synth.Event](capacity)}
}

func (q *noteQueue) push(ev synth.Event) bool {
	q.mu.Lock()
	ok := q.ring.Push(ev)
	q.mu.Unlock()
	if !ok {
		q.dropped.Add(1)
	}
	return ok
}

// stream renders the engine on demand for the audio device. It produces
// interleaved stereo float32 little-endian frames.
type stream struct {
	engine    *synth.Engine
	notes     *noteQueue
	blockSize int

	left, right []float32
	events      []synth.Event
	pending     []byte // rendered bytes not yet handed out
	out         []byte
}

func newStream(engine *synth.Engine, notes *noteQueue, blockSize int) *stream {
	if blockSize < 1 {
		blockSize = 1
	}
	return &stream{
		engine:    engine,
		notes:     notes,
		blockSize: blockSize,
		left:      make([]float32, blockSize),
		right:     make([]float32, blockSize),
		events:    make([]synth.Event, 0, 64),
		out:       make([]byte, blockSize*2*4),
	}
}

// Read fills p completely, rendering as many blocks as needed.
func (s *stream) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			s.renderBlock()
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *stream) renderBlock() {
	s.events = s.events[:0]
	for {
		ev, ok := s.notes.ring.Pop()
		if !ok {
			break
		}
		ev.Timing = 0
		s.events = append(s.events, ev)
	}
	clear(s.left)
	clear(s.right)
	s.engine.Process(s.left, s.right, s.events, synth.Transport{Playing: true})
	for i := range s.left {
		binary.LittleEndian.PutUint32(s.out[i*8:], math.Float32bits(clip(s.left[i])))
		binary.LittleEndian.PutUint32(s.out[i*8+4:], math.Float32bits(clip(s.right[i])))
	}
	s.pending = s.out
}

func clip(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
