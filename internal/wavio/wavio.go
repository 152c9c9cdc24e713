// Package wavio decodes and encodes the WAV files used by voicebanks and the
// offline renderer.
package wavio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

const formatIEEEFloat = 3

// Clip is a decoded WAV file with interleaved samples.
type Clip struct {
	Data       []float32
	Channels   int
	SampleRate int
	BitDepth   int
	Float      bool
}

// Frames returns the number of sample frames in c.
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Data) / c.Channels
}

// Read decodes the WAV at path. Integer PCM is normalised to [-1, 1).
func Read(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", path)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}
	return &Clip{
		Data:       buf.Data,
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
		BitDepth:   int(dec.BitDepth),
		Float:      dec.WavAudioFormat == formatIEEEFloat,
	}, nil
}

// ReadLegacy decodes path into the working level voicebank renderers expect:
// integer PCM of b bits is mapped to sample*2^(b-1)*256/MaxInt32, so 24-bit
// material lands near unity and 16-bit material 48 dB below it. Float files
// pass through unchanged.
func ReadLegacy(path string) (*Clip, error) {
	c, err := Read(path)
	if err != nil {
		return nil, err
	}
	if c.Float || c.BitDepth <= 0 {
		return c, nil
	}
	scale := LegacyScale(c.BitDepth)
	for i := range c.Data {
		c.Data[i] *= scale
	}
	return c, nil
}

// LegacyScale is the factor ReadLegacy applies to normalised integer PCM.
func LegacyScale(bitDepth int) float32 {
	full := math.Ldexp(1, bitDepth-1)
	return float32(full * 256 / math.MaxInt32)
}

// WriteStereo writes separate left/right channels as a 16-bit WAV.
func WriteStereo(path string, left, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("left/right length mismatch")
	}
	data := make([]float32, len(left)*2)
	for i := range left {
		data[i*2] = left[i]
		data[i*2+1] = right[i]
	}
	return write(path, data, 2, sampleRate)
}

// WriteMono writes one channel as a 16-bit WAV.
func WriteMono(path string, data []float32, sampleRate int) error {
	return write(path, data, 1, sampleRate)
}

func write(path string, data []float32, channels, sampleRate int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
