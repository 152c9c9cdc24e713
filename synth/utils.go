package synth

import "github.com/cwbudde/algo-approx"

// noteToFreq converts a (fractional) MIDI note number to frequency in Hz.
func noteToFreq(note float32) float32 {
	const a4Freq = 440.0
	const a4Note = 69
	return a4Freq * pow2Approx((note-a4Note)/12.0)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// msToFrames truncates like the ledger tooling does.
func msToFrames(ms int, sampleRate int) int {
	return int(float32(ms) / 1000 * float32(sampleRate))
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clampf64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
