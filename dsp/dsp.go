package dsp

import "math"

// Biquad is a second-order IIR section used as the pitch tracker's
// anti-octave pre-filter. Process does not allocate.
type Biquad struct {
	// Normalised coefficients (a0 == 1).
	b0, b1, b2 float32
	a1, a2     float32

	// Direct Form I history.
	x1, x2 float32
	y1, y2 float32
}

// NewBiquad creates a biquad from coefficients already divided by a0.
func NewBiquad(b0, b1, b2, a1, a2 float32) *Biquad {
	return &Biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}

// Process filters one sample. Denormal outputs are flushed to zero.
func (b *Biquad) Process(input float32) float32 {
	y := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2, b.x1 = b.x1, input
	b.y2, b.y1 = b.y1, FlushDenormals(y)
	return b.y1
}

// ProcessBlock filters src into dst. dst and src may alias.
func (b *Biquad) ProcessBlock(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = b.Process(src[i])
	}
}

// ProcessZeroPhase runs src through the filter forward and then backward,
// writing to dst. The result has the squared magnitude response and no
// group delay. The state is cleared before each pass and left cleared. dst and src may
// alias.
func (b *Biquad) ProcessZeroPhase(dst, src []float32) {
	n := min(len(dst), len(src))
	b.Reset()
	b.ProcessBlock(dst[:n], src[:n])
	b.Reset()
	for i := n - 1; i >= 0; i-- {
		dst[i] = b.Process(dst[i])
	}
	b.Reset()
}

// Reset clears the filter history.
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// NewLowpass creates an RBJ lowpass biquad. Cutoffs at or above Nyquist are
// pulled just below it.
func NewLowpass(cutoff, sampleRate, q float32) *Biquad {
	if cutoff >= sampleRate*0.5 {
		cutoff = sampleRate * 0.49
	}
	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	alpha := math.Sin(w0) / (2.0 * float64(q))
	cosw0 := math.Cos(w0)

	b0 := (1.0 - cosw0) / 2.0
	b1 := 1.0 - cosw0
	b2 := (1.0 - cosw0) / 2.0
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha

	return NewBiquad(float32(b0/a0), float32(b1/a0), float32(b2/a0), float32(a1/a0), float32(a2/a0))
}

// Hann returns the weight of a Hann window of half-width half at offset j
// from its centre. The weight is 1 at the centre and 0 at |j| >= half.
func Hann(j, half float64) float64 {
	if half <= 0 || j <= -half || j >= half {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*j/half))
}

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float32) float32 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0.0
	}
	return x
}
