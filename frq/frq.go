// Package frq reads and writes the per-sample pitch sidecar files ("_wav.frq")
// that accompany voicebank recordings.
package frq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Magic identifies the multi-chunk sidecar layout.
	Magic = "FREQ0003"

	// DefaultHop is the conventional number of samples analysed per chunk.
	DefaultHop = 256

	averageOffset = 12
	countOffset   = 36
	headerSize    = 40
	recordSize    = 16
)

// Suffix replaces the ".wav" extension of a sample to name its sidecar.
const Suffix = "_wav.frq"

// Chunk is one analysis frame of the pitch track.
type Chunk struct {
	Frequency float64
	Amplitude float64
}

// File is a decoded sidecar.
type File struct {
	Hop     int
	Average float64
	Chunks  []Chunk
}

// SidecarPath returns the sidecar file name for a sample path.
func SidecarPath(samplePath string) string {
	ext := filepath.Ext(samplePath)
	if !strings.EqualFold(ext, ".wav") {
		return samplePath + Suffix
	}
	return strings.TrimSuffix(samplePath, ext) + Suffix
}

// ReadAverage returns the average pitch stored at bytes [12:20). Missing or
// short files read as zeros, so the result is 0 and callers must fall back
// to a default pitch.
func ReadAverage(path string) float64 {
	var buf [headerSize]byte
	b, err := os.ReadFile(path)
	if err == nil {
		copy(buf[:], b)
	}
	return AverageFromBytes(buf[:])
}

// AverageFromBytes decodes the average pitch from a raw sidecar header,
// zero-extending inputs shorter than the header.
func AverageFromBytes(b []byte) float64 {
	var head [averageOffset + 8]byte
	copy(head[:], b)
	return math.Float64frombits(binary.LittleEndian.Uint64(head[averageOffset:]))
}

// Parse decodes a full multi-chunk sidecar.
func Parse(b []byte) (*File, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("frq: short header (%d bytes)", len(b))
	}
	if string(b[:len(Magic)]) != Magic {
		return nil, errors.New("frq: bad magic")
	}
	count := binary.LittleEndian.Uint32(b[countOffset:])
	need := headerSize + int(count)*recordSize
	if need > len(b) {
		return nil, fmt.Errorf("frq: %d chunks declared, %d bytes available", count, len(b)-headerSize)
	}
	f := &File{
		Hop:     int(int32(binary.LittleEndian.Uint32(b[8:]))),
		Average: AverageFromBytes(b),
		Chunks:  make([]Chunk, count),
	}
	off := headerSize
	for i := range f.Chunks {
		f.Chunks[i] = Chunk{
			Frequency: math.Float64frombits(binary.LittleEndian.Uint64(b[off:])),
			Amplitude: math.Float64frombits(binary.LittleEndian.Uint64(b[off+8:])),
		}
		off += recordSize
	}
	return f, nil
}

// ReadFile parses the sidecar at path.
func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Encode serialises f in the multi-chunk layout.
func Encode(f *File) []byte {
	out := make([]byte, headerSize+len(f.Chunks)*recordSize)
	copy(out, Magic)
	hop := f.Hop
	if hop <= 0 {
		hop = DefaultHop
	}
	binary.LittleEndian.PutUint32(out[8:], uint32(int32(hop)))
	binary.LittleEndian.PutUint64(out[averageOffset:], math.Float64bits(f.Average))
	binary.LittleEndian.PutUint32(out[countOffset:], uint32(len(f.Chunks)))
	off := headerSize
	for _, c := range f.Chunks {
		binary.LittleEndian.PutUint64(out[off:], math.Float64bits(c.Frequency))
		binary.LittleEndian.PutUint64(out[off+8:], math.Float64bits(c.Amplitude))
		off += recordSize
	}
	return out
}

// WriteFile encodes f to path.
func WriteFile(path string, f *File) error {
	return os.WriteFile(path, Encode(f), 0o644)
}
