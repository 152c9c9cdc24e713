package sample

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-utau/frq"
	"github.com/cwbudde/algo-utau/internal/wavio"
)

// Store holds prepared samples keyed by file path. It is owned by a single
// goroutine and is not safe for concurrent use.
type Store struct {
	sampleRate int
	samples    map[string]*Prepared
	logger     *slog.Logger
}

// NewStore creates an empty store that prepares samples at sampleRate.
func NewStore(sampleRate int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sampleRate: sampleRate,
		samples:    make(map[string]*Prepared),
		logger:     logger,
	}
}

// SampleRate returns the engine rate samples are prepared at.
func (s *Store) SampleRate() int { return s.sampleRate }

// Load decodes the WAV at path and stores it under path, replacing any
// previous entry. On failure nothing is stored and the error is returned for
// the caller to record; other keys are unaffected.
func (s *Store) Load(path string) error {
	clip, err := wavio.ReadLegacy(path)
	if err != nil {
		return fmt.Errorf("load sample %s: %w", path, err)
	}
	p, err := Prepare(clip.Data, clip.Channels, clip.SampleRate, s.sampleRate, frq.SidecarPath(path))
	if err != nil {
		return fmt.Errorf("load sample %s: %w", path, err)
	}
	if p.Len() == 0 {
		return fmt.Errorf("load sample %s: no audio frames", path)
	}
	s.Put(path, p)
	s.logger.Debug("sample loaded", "path", path, "frames", p.Len(), "pitch_hz", p.SourcePitch)
	return nil
}

// Put stores an already prepared sample.
func (s *Store) Put(key string, p *Prepared) {
	s.samples[key] = p
}

// Get returns the sample stored under key.
func (s *Store) Get(key string) (*Prepared, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.samples[key]
	return p, ok
}

// Remove drops key from the store.
func (s *Store) Remove(key string) {
	delete(s.samples, key)
}

// Len returns the number of stored samples.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.samples)
}
