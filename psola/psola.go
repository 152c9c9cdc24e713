// Package psola shifts the pitch of a recording without changing its length
// using time-domain pitch-synchronous overlap-add.
package psola

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-utau/dsp"
	"github.com/cwbudde/algo-utau/sample"
)

// ErrWavelength reports a period that is not a positive finite number of
// samples.
var ErrWavelength = errors.New("psola: wavelength must be positive and finite")

// Wavelength returns the period in samples of pitchHz at sampleRate.
func Wavelength(sampleRate, pitchHz float32) (float32, error) {
	wl := float64(sampleRate) / float64(pitchHz)
	if !(wl > 0) || math.IsInf(wl, 0) || wl > math.MaxFloat32 {
		return 0, fmt.Errorf("%w: rate %g, pitch %g", ErrWavelength, sampleRate, pitchHz)
	}
	return float32(wl), nil
}

// Shifter owns the scratch memory of the overlap-add. A Shifter is not safe
// for concurrent use; the zero value is ready.
type Shifter struct {
	padded []float32
	acc    []float64
	weight []float64
	out    [2][]float32
}

// Shift writes src re-pitched from period srcWL to period tgtWL into dst
// (grown as needed) and returns it. The result has len(src) samples.
//
// Analysis marks sit every srcWL samples of a signal preceded by
// floor(srcWL)+1 zeros; each synthesis mark k*tgtWL copies the Hann-windowed
// grain around the nearest analysis mark. Overlapping grains are normalised
// by their summed window weight, so equal periods reproduce src.
func (s *Shifter) Shift(dst, src []float32, srcWL, tgtWL float32) ([]float32, error) {
	if err := checkWavelength(srcWL); err != nil {
		return dst[:0], err
	}
	if err := checkWavelength(tgtWL); err != nil {
		return dst[:0], err
	}
	dst = grow(dst, len(src))
	if len(src) == 0 {
		return dst, nil
	}

	ts, tt := float64(srcWL), float64(tgtWL)
	pad := int(ts) + 1
	n := pad + len(src)

	s.padded = grow(s.padded, n)
	clear(s.padded[:pad])
	copy(s.padded[pad:], src)
	s.acc = growF64(s.acc, n)
	s.weight = growF64(s.weight, n)
	clear(s.acc)
	clear(s.weight)

	half := math.Ceil(math.Max(ts, tt))
	span := int(half)
	for k := 0; ; k++ {
		t := float64(k) * tt
		if t >= float64(n) {
			break
		}
		center := int(math.Round(t))
		mark := int(math.Round(math.Round(t/ts) * ts))
		if mark >= n {
			mark = n - 1
		}
		for j := -span; j <= span; j++ {
			o, a := center+j, mark+j
			if o < 0 || o >= n || a < 0 || a >= n {
				continue
			}
			w := dsp.Hann(float64(j), half)
			if w == 0 {
				continue
			}
			s.acc[o] += w * float64(s.padded[a])
			s.weight[o] += w
		}
	}

	for i := range dst {
		o := pad + i
		if w := s.weight[o]; w > 1e-6 {
			dst[i] = dsp.FlushDenormals(float32(s.acc[o] / w))
		} else {
			dst[i] = 0
		}
	}
	return dst, nil
}

// Reshape re-pitches both channels of p to targetHz. The returned slices are
// owned by s and stay valid until the next call.
func (s *Shifter) Reshape(p *sample.Prepared, targetHz, sampleRate float32) ([2][]float32, error) {
	var out [2][]float32
	if p == nil {
		return out, errors.New("psola: nil sample")
	}
	srcWL, err := Wavelength(sampleRate, p.SourcePitch)
	if err != nil {
		return out, err
	}
	tgtWL, err := Wavelength(sampleRate, targetHz)
	if err != nil {
		return out, err
	}
	for c := range out {
		s.out[c], err = s.Shift(s.out[c], p.Channels[c], srcWL, tgtWL)
		if err != nil {
			return out, err
		}
		out[c] = s.out[c]
	}
	return out, nil
}

func checkWavelength(wl float32) error {
	if !(wl > 0) || math.IsInf(float64(wl), 0) {
		return fmt.Errorf("%w: %g", ErrWavelength, wl)
	}
	return nil
}

func grow(b []float32, n int) []float32 {
	if cap(b) < n {
		return make([]float32, n)
	}
	return b[:n]
}

func growF64(b []float64, n int) []float64 {
	if cap(b) < n {
		return make([]float64, n)
	}
	return b[:n]
}
