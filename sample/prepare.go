// Package sample turns decoded voicebank recordings into the stereo,
// engine-rate, pitch-tagged buffers the synthesizer plays from.
package sample

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-utau/frq"
)

const (
	// DefaultPitch is used when a sample has no usable pitch sidecar.
	DefaultPitch = 440.0

	// WorkingGain lifts decoded material to the engine's working level.
	WorkingGain = 128.0
)

// Prepared is a sample ready for playback. Both channels have equal length.
type Prepared struct {
	Channels    [2][]float32
	SourcePitch float32
}

// Len returns the number of frames.
func (p *Prepared) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Channels[0])
}

// Prepare de-interleaves raw, resamples it to rateOut, applies the working
// gain, forces two channels and tags the result with the average pitch read
// from pitchPath.
func Prepare(raw []float32, channels, rateIn, rateOut int, pitchPath string) (*Prepared, error) {
	if channels < 1 {
		return nil, fmt.Errorf("sample: invalid channel count %d", channels)
	}
	chans := Deinterleave(raw, channels)
	if rateIn != rateOut {
		for i, ch := range chans {
			out, err := Resample(ch, rateIn, rateOut)
			if err != nil {
				return nil, fmt.Errorf("sample: resample %d->%d: %w", rateIn, rateOut, err)
			}
			chans[i] = out
		}
	}
	for _, ch := range chans {
		for i := range ch {
			ch[i] *= WorkingGain
		}
	}

	p := &Prepared{SourcePitch: pitchOrDefault(frq.ReadAverage(pitchPath))}
	p.Channels[0] = chans[0]
	switch {
	case len(chans) == 1:
		p.Channels[1] = append([]float32(nil), chans[0]...)
	case silent(chans[1]):
		// Mono material stored as stereo.
		p.Channels[1] = append([]float32(nil), chans[0]...)
	default:
		p.Channels[1] = chans[1]
	}
	return p, nil
}

// Deinterleave splits frames [a, b, a, b, ...] into per-channel slices of
// equal length. A trailing partial frame is dropped.
func Deinterleave(raw []float32, channels int) [][]float32 {
	if channels < 1 {
		return nil
	}
	out := make([][]float32, channels)
	frames := len(raw) / channels
	for c := range out {
		out[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := range out {
			out[c][i] = raw[i*channels+c]
		}
	}
	return out
}

// Interleave is the inverse of Deinterleave.
func Interleave(chans [][]float32) []float32 {
	n := 0
	for _, ch := range chans {
		n += len(ch)
	}
	out := make([]float32, 0, n)
	for i := 0; len(out) < n; i++ {
		for _, ch := range chans {
			if i < len(ch) {
				out = append(out, ch[i])
			}
		}
	}
	return out
}

func pitchOrDefault(hz float64) float32 {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) || hz > math.MaxFloat32 {
		return DefaultPitch
	}
	return float32(hz)
}

func silent(x []float32) bool {
	for _, v := range x {
		if v != 0 {
			return false
		}
	}
	return true
}
