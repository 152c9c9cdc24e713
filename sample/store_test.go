package sample

import (
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-utau/internal/wavio"
)

func TestStoreLoadGetRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	data := make([]float32, 441)
	for i := range data {
		data[i] = 0.25
	}
	if err := wavio.WriteMono(path, data, 44100); err != nil {
		t.Fatalf("WriteMono: %v", err)
	}

	s := NewStore(44100, nil)
	if err := s.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, ok := s.Get(path)
	if !ok {
		t.Fatal("expected sample to be stored")
	}
	if p.Len() != len(data) || len(p.Channels[1]) != len(data) {
		t.Fatalf("unexpected length %d", p.Len())
	}
	if p.Channels[0][10] <= 0 || p.Channels[0][10] != p.Channels[1][10] {
		t.Fatalf("unexpected sample values L=%v R=%v", p.Channels[0][10], p.Channels[1][10])
	}
	if p.SourcePitch != DefaultPitch {
		t.Fatalf("pitch = %v, want %v", p.SourcePitch, DefaultPitch)
	}

	s.Remove(path)
	if _, ok := s.Get(path); ok || s.Len() != 0 {
		t.Fatal("expected sample to be removed")
	}
}

func TestStoreLoadFailureStoresNothing(t *testing.T) {
	s := NewStore(44100, nil)
	s.Put("keep", &Prepared{})
	if err := s.Load(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for missing sample")
	}
	if s.Len() != 1 {
		t.Fatalf("failure must not touch other keys, len=%d", s.Len())
	}
}

func TestStoreLoadResamplesToEngineRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lo.wav")
	if err := wavio.WriteMono(path, make([]float32, 2205), 22050); err != nil {
		t.Fatalf("WriteMono: %v", err)
	}
	s := NewStore(44100, nil)
	if err := s.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, _ := s.Get(path)
	if p.Len() != 4410 {
		t.Fatalf("frames = %d, want 4410", p.Len())
	}
}
