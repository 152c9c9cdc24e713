package psola

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-utau/sample"
)

// harmonicTone builds a buzzy periodic signal; pure sines hide octave errors.
func harmonicTone(n int, hz, sr float64) []float32 {
	x := make([]float32, n)
	for i := range x {
		var v float64
		for h := 1; h <= 8; h++ {
			v += math.Sin(2*math.Pi*hz*float64(h)*float64(i)/sr) / float64(h)
		}
		x[i] = float32(0.3 * v)
	}
	return x
}

// bestLag returns the lag in [lo, hi] with the highest normalised
// autocorrelation over x.
func bestLag(x []float32, lo, hi int) int {
	best, at := math.Inf(-1), lo
	for lag := lo; lag <= hi; lag++ {
		var num, e0, e1 float64
		for i := 0; i+lag < len(x); i++ {
			a, b := float64(x[i]), float64(x[i+lag])
			num += a * b
			e0 += a * a
			e1 += b * b
		}
		if e0 == 0 || e1 == 0 {
			continue
		}
		if r := num / math.Sqrt(e0*e1); r > best {
			best, at = r, lag
		}
	}
	return at
}

func TestWavelength(t *testing.T) {
	wl, err := Wavelength(44100, 441)
	if err != nil || math.Abs(float64(wl)-100) > 1e-4 {
		t.Fatalf("Wavelength = %v, %v", wl, err)
	}
	for _, hz := range []float32{0, -1, float32(math.NaN())} {
		if _, err := Wavelength(44100, hz); !errors.Is(err, ErrWavelength) {
			t.Fatalf("Wavelength(%v) err = %v", hz, err)
		}
	}
}

func TestShiftEqualPeriodsIsIdentity(t *testing.T) {
	src := harmonicTone(2000, 200, 8000)
	var s Shifter
	for _, wl := range []float32{40, 37.3} {
		out, err := s.Shift(nil, src, wl, wl)
		if err != nil {
			t.Fatalf("Shift: %v", err)
		}
		if len(out) != len(src) {
			t.Fatalf("length %d, want %d", len(out), len(src))
		}
		for i := range src {
			if d := math.Abs(float64(out[i] - src[i])); d > 1e-5 {
				t.Fatalf("wl=%v index %d: got %v want %v", wl, i, out[i], src[i])
			}
		}
	}
}

func TestShiftRaisesPitch(t *testing.T) {
	src := harmonicTone(4000, 200, 8000)
	var s Shifter
	out, err := s.Shift(nil, src, 40, 32)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if len(out) != len(src) {
		t.Fatalf("duration changed: %d vs %d", len(out), len(src))
	}
	if lag := bestLag(out[1000:3000], 20, 60); lag != 32 {
		t.Fatalf("period = %d samples, want 32", lag)
	}
}

func TestShiftLowersPitch(t *testing.T) {
	src := harmonicTone(4000, 250, 8000)
	var s Shifter
	out, err := s.Shift(nil, src, 32, 40)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if lag := bestLag(out[1000:3000], 20, 60); lag != 40 {
		t.Fatalf("period = %d samples, want 40", lag)
	}
}

func TestShiftReusesDestination(t *testing.T) {
	src := harmonicTone(500, 200, 8000)
	var s Shifter
	dst := make([]float32, 0, 1000)
	out, err := s.Shift(dst, src, 40, 30)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if &out[0] != &dst[:1][0] {
		t.Fatal("expected destination buffer to be reused")
	}
}

func TestShiftRejectsBadWavelength(t *testing.T) {
	var s Shifter
	if _, err := s.Shift(nil, []float32{1}, 0, 10); !errors.Is(err, ErrWavelength) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.Shift(nil, []float32{1}, 10, float32(math.Inf(1))); !errors.Is(err, ErrWavelength) {
		t.Fatalf("err = %v", err)
	}
}

func TestReshapeStereo(t *testing.T) {
	left := harmonicTone(3000, 200, 8000)
	right := make([]float32, len(left))
	for i := range right {
		right[i] = -left[i]
	}
	p := &sample.Prepared{Channels: [2][]float32{left, right}, SourcePitch: 200}

	var s Shifter
	out, err := s.Reshape(p, 250, 8000)
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	if len(out[0]) != len(left) || len(out[1]) != len(left) {
		t.Fatalf("unexpected lengths %d/%d", len(out[0]), len(out[1]))
	}
	for i := range out[0] {
		if d := math.Abs(float64(out[0][i] + out[1][i])); d > 1e-5 {
			t.Fatalf("channels not processed independently at %d", i)
		}
	}

	p.SourcePitch = 0
	if _, err := s.Reshape(p, 250, 8000); !errors.Is(err, ErrWavelength) {
		t.Fatalf("expected ErrWavelength, got %v", err)
	}
}
