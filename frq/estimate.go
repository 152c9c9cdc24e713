package frq

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-utau/dsp"
)

// EstimateOptions bounds the pitch search.
type EstimateOptions struct {
	Hop       int     // samples between chunks; DefaultHop when <= 0
	MinHz     float64 // lowest detectable pitch
	MaxHz     float64 // highest detectable pitch
	Threshold float64 // normalised autocorrelation required to call a frame voiced
}

// DefaultEstimateOptions covers the singing range of typical voicebanks.
func DefaultEstimateOptions() EstimateOptions {
	return EstimateOptions{
		Hop:       DefaultHop,
		MinHz:     60,
		MaxHz:     1200,
		Threshold: 0.45,
	}
}

// Estimate tracks the pitch of a mono signal and returns a sidecar model.
// Unvoiced chunks get frequency 0 and do not contribute to the average.
func Estimate(samples []float32, sampleRate int, opts EstimateOptions) (*File, error) {
	def := DefaultEstimateOptions()
	if opts.Hop <= 0 {
		opts.Hop = def.Hop
	}
	if opts.MinHz <= 0 {
		opts.MinHz = def.MinHz
	}
	if opts.MaxHz <= opts.MinHz {
		opts.MaxHz = def.MaxHz
	}
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	f := &File{Hop: opts.Hop}
	if sampleRate <= 0 || len(samples) == 0 {
		return f, nil
	}

	minLag := int(math.Floor(float64(sampleRate) / opts.MaxHz))
	maxLag := int(math.Ceil(float64(sampleRate) / opts.MinHz))
	if minLag < 2 {
		minLag = 2
	}
	frameLen := 2 * maxLag

	filtered := make([]float32, len(samples))
	lp := dsp.NewLowpass(float32(opts.MaxHz)*1.5, float32(sampleRate), 0.707)
	lp.ProcessZeroPhase(filtered, samples)

	frame := make([]float32, frameLen)
	rev := make([]float32, frameLen)
	corr := make([]float32, 2*frameLen-1)

	var sum float64
	voiced := 0
	for start := 0; start < len(samples); start += opts.Hop {
		for i := range frame {
			j := start - frameLen/2 + i
			if j >= 0 && j < len(filtered) {
				frame[i] = filtered[j]
			} else {
				frame[i] = 0
			}
		}
		amp := rms(frame)
		chunk := Chunk{Amplitude: amp}
		if amp > 1e-6 {
			for i := range frame {
				rev[frameLen-1-i] = frame[i]
			}
			if err := algofft.ConvolveReal(corr, frame, rev); err != nil {
				return nil, err
			}
			// corr[frameLen-1+lag] is the autocorrelation at lag.
			if hz := pickPeriod(corr[frameLen-1:], minLag, maxLag, opts.Threshold, sampleRate); hz > 0 {
				chunk.Frequency = hz
				sum += hz
				voiced++
			}
		}
		f.Chunks = append(f.Chunks, chunk)
	}
	if voiced > 0 {
		f.Average = sum / float64(voiced)
	}
	return f, nil
}

// pickPeriod chooses the shortest lag whose normalised correlation is close
// to the best one, which keeps subharmonics from winning.
func pickPeriod(r []float32, minLag, maxLag int, threshold float64, sampleRate int) float64 {
	if len(r) == 0 || r[0] <= 0 {
		return 0
	}
	if maxLag > len(r)-2 {
		maxLag = len(r) - 2
	}
	if minLag >= maxLag {
		return 0
	}
	r0 := float64(r[0])
	best := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		if v := float64(r[lag]) / r0; v > best {
			best = v
		}
	}
	if best < threshold {
		return 0
	}
	for lag := minLag; lag <= maxLag; lag++ {
		v := float64(r[lag]) / r0
		if v < 0.9*best {
			continue
		}
		if float64(r[lag+1]) > float64(r[lag]) {
			continue
		}
		if lag > minLag && float64(r[lag-1]) > float64(r[lag]) {
			continue
		}
		// Parabolic refinement around the local maximum.
		a, b, c := float64(r[lag-1]), float64(r[lag]), float64(r[lag+1])
		den := a - 2*b + c
		shift := 0.0
		if den != 0 {
			shift = 0.5 * (a - c) / den
		}
		period := float64(lag) + shift
		if period <= 0 {
			return 0
		}
		return float64(sampleRate) / period
	}
	return 0
}

func rms(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += float64(v) * float64(v)
	}
	return math.Sqrt(s / float64(len(x)))
}
