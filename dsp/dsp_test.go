package dsp

import (
	"math"
	"testing"
)

func toneRMS(b *Biquad, freq, sampleRate float64, n int) float64 {
	in := make([]float32, n)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	out := make([]float32, n)
	b.ProcessBlock(out, in)
	var s float64
	for _, v := range out[n/2:] {
		s += float64(v) * float64(v)
	}
	return math.Sqrt(s / float64(n-n/2))
}

func TestLowpassPassesLowAndAttenuatesHigh(t *testing.T) {
	const sr = 8000
	low := toneRMS(NewLowpass(500, sr, 0.707), 100, sr, 4000)
	high := toneRMS(NewLowpass(500, sr, 0.707), 3000, sr, 4000)
	if math.Abs(low-math.Sqrt(0.5)) > 0.05 {
		t.Fatalf("passband rms = %.3f, want ~0.707", low)
	}
	if high > 0.05 {
		t.Fatalf("stopband rms = %.3f, want < 0.05", high)
	}
}

func TestLowpassCutoffAboveNyquistIsClamped(t *testing.T) {
	b := NewLowpass(10000, 8000, 0.707)
	if v := b.Process(1); math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		t.Fatalf("unstable filter output %v", v)
	}
}

func TestResetClearsState(t *testing.T) {
	b := NewLowpass(500, 8000, 0.707)
	first := b.Process(1)
	b.Process(0.5)
	b.Reset()
	if got := b.Process(1); got != first {
		t.Fatalf("after Reset got %v, want %v", got, first)
	}
}

func TestZeroPhaseImpulseIsSymmetric(t *testing.T) {
	const n, centre = 401, 200
	in := make([]float32, n)
	in[centre] = 1
	b := NewLowpass(500, 8000, 0.707)
	out := make([]float32, n)
	b.ProcessZeroPhase(out, in)
	for k := 1; k < 60; k++ {
		if d := math.Abs(float64(out[centre-k] - out[centre+k])); d > 1e-5 {
			t.Fatalf("asymmetry %v at offset %d", d, k)
		}
		if out[centre+k] > out[centre] {
			t.Fatalf("peak moved off the impulse: out[%d]=%v > out[%d]=%v", centre+k, out[centre+k], centre, out[centre])
		}
	}

	again := make([]float32, n)
	b.ProcessZeroPhase(again, in)
	for i := range out {
		if again[i] != out[i] {
			t.Fatalf("second run differs at %d: %v vs %v", i, again[i], out[i])
		}
	}
}

func TestHann(t *testing.T) {
	if Hann(0, 10) != 1 {
		t.Fatal("centre weight must be 1")
	}
	if Hann(10, 10) != 0 || Hann(-12, 10) != 0 || Hann(0, 0) != 0 {
		t.Fatal("weight outside the window must be 0")
	}
	if math.Abs(Hann(5, 10)-0.5) > 1e-12 {
		t.Fatalf("half-way weight = %v, want 0.5", Hann(5, 10))
	}
	// Overlapping windows at hop = half sum to one.
	for j := 0.0; j < 10; j += 0.5 {
		if s := Hann(j, 10) + Hann(j-10, 10); math.Abs(s-1) > 1e-12 {
			t.Fatalf("overlap-add at %v = %v", j, s)
		}
	}
}

func TestFlushDenormals(t *testing.T) {
	if FlushDenormals(1e-35) != 0 || FlushDenormals(-1e-35) != 0 {
		t.Fatal("tiny values must flush to zero")
	}
	if FlushDenormals(0.25) != 0.25 {
		t.Fatal("normal values must pass")
	}
}
