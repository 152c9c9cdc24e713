package sample

import (
	"math"
	"sync"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
)

type ratePair struct{ in, out int }

// delays caches the measured output latency per rate pair.
var delays sync.Map

// Resample converts x from rateIn to rateOut. The filter latency is trimmed
// so output frame 0 lines up with input frame 0, and the result has
// round(len(x)*rateOut/rateIn) frames. Equal rates return a copy.
func Resample(x []float32, rateIn, rateOut int) ([]float32, error) {
	if rateIn == rateOut {
		return append([]float32(nil), x...), nil
	}
	want := int(math.Round(float64(len(x)) * float64(rateOut) / float64(rateIn)))
	if len(x) == 0 {
		return []float32{}, nil
	}

	delay, err := groupDelay(rateIn, rateOut)
	if err != nil {
		return nil, err
	}
	tail := int(math.Ceil(float64(delay)*float64(rateIn)/float64(rateOut))) + 16
	in := make([]float64, len(x)+tail)
	for i, v := range x {
		in[i] = float64(v)
	}
	y, err := process(rateIn, rateOut, in)
	if err != nil {
		return nil, err
	}

	out := make([]float32, want)
	for i := range out {
		j := i + delay
		if j >= len(y) {
			break
		}
		out[i] = float32(y[j])
	}
	return out, nil
}

func process(rateIn, rateOut int, in []float64) ([]float64, error) {
	r, err := dspresample.NewForRates(
		float64(rateIn),
		float64(rateOut),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// groupDelay measures where a unit impulse at frame 0 peaks in the output.
func groupDelay(rateIn, rateOut int) (int, error) {
	key := ratePair{rateIn, rateOut}
	if d, ok := delays.Load(key); ok {
		return d.(int), nil
	}
	impulse := make([]float64, 4096)
	impulse[0] = 1
	y, err := process(rateIn, rateOut, impulse)
	if err != nil {
		return 0, err
	}
	peak, at := 0.0, 0
	for i, v := range y {
		if a := math.Abs(v); a > peak {
			peak, at = a, i
		}
	}
	delays.Store(key, at)
	return at, nil
}
