package frq

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSidecarPath(t *testing.T) {
	cases := map[string]string{
		"bank/a.wav":  "bank/a_wav.frq",
		"bank/ka.WAV": "bank/ka_wav.frq",
		"bank/raw":    "bank/raw_wav.frq",
	}
	for in, want := range cases {
		if got := SidecarPath(in); got != want {
			t.Fatalf("SidecarPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	in := &File{
		Hop:     DefaultHop,
		Average: 261.6,
		Chunks: []Chunk{
			{Frequency: 260, Amplitude: 0.5},
			{Frequency: 0, Amplitude: 0.01},
			{Frequency: 263.2, Amplitude: 0.4},
		},
	}
	out, err := Parse(Encode(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.Hop != in.Hop || out.Average != in.Average || len(out.Chunks) != len(in.Chunks) {
		t.Fatalf("header mismatch: %+v", out)
	}
	for i := range in.Chunks {
		if out.Chunks[i] != in.Chunks[i] {
			t.Fatalf("chunk %d: got %+v want %+v", i, out.Chunks[i], in.Chunks[i])
		}
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	if _, err := Parse([]byte("FREQ")); err == nil {
		t.Fatal("expected error for short header")
	}
	b := Encode(&File{Chunks: []Chunk{{Frequency: 1}}})
	copy(b, "NOTAFRQ!")
	if _, err := Parse(b); err == nil {
		t.Fatal("expected error for bad magic")
	}
	b = Encode(&File{Chunks: []Chunk{{Frequency: 1}}})
	if _, err := Parse(b[:len(b)-1]); err == nil {
		t.Fatal("expected error for truncated chunk table")
	}
}

func TestReadAverage(t *testing.T) {
	dir := t.TempDir()

	full := filepath.Join(dir, "a_wav.frq")
	if err := WriteFile(full, &File{Average: 523.25}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := ReadAverage(full); got != 523.25 {
		t.Fatalf("ReadAverage = %v, want 523.25", got)
	}

	// Shorter than the average field: zero-extended.
	short := filepath.Join(dir, "short_wav.frq")
	if err := os.WriteFile(short, []byte("FREQ0003"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := ReadAverage(short); got != 0 {
		t.Fatalf("short file average = %v, want 0", got)
	}

	if got := ReadAverage(filepath.Join(dir, "missing_wav.frq")); got != 0 {
		t.Fatalf("missing file average = %v, want 0", got)
	}
}

func TestEstimateHarmonicTone(t *testing.T) {
	const (
		sr = 8000
		f0 = 200.0
	)
	x := make([]float32, sr/2)
	for i := range x {
		ph := 2 * math.Pi * f0 * float64(i) / sr
		x[i] = float32(0.6*math.Sin(ph) + 0.3*math.Sin(2*ph))
	}
	f, err := Estimate(x, sr, DefaultEstimateOptions())
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if want := (len(x) + DefaultHop - 1) / DefaultHop; len(f.Chunks) != want {
		t.Fatalf("chunk count = %d, want %d", len(f.Chunks), want)
	}
	if math.Abs(f.Average-f0) > 5 {
		t.Fatalf("average = %.2f Hz, want ~%.0f", f.Average, f0)
	}
	mid := f.Chunks[len(f.Chunks)/2]
	if math.Abs(mid.Frequency-f0) > 3 {
		t.Fatalf("mid chunk = %.2f Hz, want ~%.0f", mid.Frequency, f0)
	}
}

func TestEstimateSilenceIsUnvoiced(t *testing.T) {
	f, err := Estimate(make([]float32, 2048), 44100, EstimateOptions{})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if f.Average != 0 {
		t.Fatalf("silence average = %v, want 0", f.Average)
	}
	for i, c := range f.Chunks {
		if c.Frequency != 0 {
			t.Fatalf("chunk %d voiced: %+v", i, c)
		}
	}
}
