package sample

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-utau/frq"
)

func TestDeinterleaveInterleaveRoundTrip(t *testing.T) {
	for ch := 1; ch <= 4; ch++ {
		raw := make([]float32, ch*7)
		for i := range raw {
			raw[i] = float32(i) * 0.25
		}
		split := Deinterleave(raw, ch)
		if len(split) != ch {
			t.Fatalf("ch=%d: got %d channels", ch, len(split))
		}
		for c := range split {
			if len(split[c]) != 7 {
				t.Fatalf("ch=%d: channel %d has %d frames", ch, c, len(split[c]))
			}
			if split[c][1] != raw[ch+c] {
				t.Fatalf("ch=%d: channel %d frame 1 = %v, want %v", ch, c, split[c][1], raw[ch+c])
			}
		}
		back := Interleave(split)
		if len(back) != len(raw) {
			t.Fatalf("ch=%d: length %d, want %d", ch, len(back), len(raw))
		}
		for i := range raw {
			if back[i] != raw[i] {
				t.Fatalf("ch=%d: index %d = %v, want %v", ch, i, back[i], raw[i])
			}
		}
	}
}

func TestDeinterleaveDropsPartialFrame(t *testing.T) {
	split := Deinterleave([]float32{.1, .2, .3, .4, .5}, 2)
	if len(split[0]) != 2 || len(split[1]) != 2 {
		t.Fatalf("channel lengths %d/%d, want 2/2", len(split[0]), len(split[1]))
	}
	if split[0][1] != .3 || split[1][1] != .4 {
		t.Fatalf("frame 1 = %v/%v, want 0.3/0.4", split[0][1], split[1][1])
	}

	p, err := Prepare([]float32{.1, .2, .3, .4, .5}, 2, 44100, 44100, "")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(p.Channels[0]) != 2 || len(p.Channels[1]) != 2 {
		t.Fatalf("prepared lengths %d/%d, want 2/2", len(p.Channels[0]), len(p.Channels[1]))
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	x := []float32{0.1, -0.2, 0.3, 0.4, -0.5}
	y, err := Resample(x, 44100, 44100)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if len(y) != len(x) {
		t.Fatalf("length %d, want %d", len(y), len(x))
	}
	for i := range x {
		if y[i] != x[i] {
			t.Fatalf("index %d = %v, want %v", i, y[i], x[i])
		}
	}
	y[0] = 9
	if x[0] == 9 {
		t.Fatal("identity resample must not alias its input")
	}
}

func TestResampleUpsampleKeepsOnsetAligned(t *testing.T) {
	const (
		in  = 22050
		out = 44100
		hz  = 200.0
	)
	x := make([]float32, in/10)
	for i := range x {
		x[i] = float32(0.5 * math.Sin(2*math.Pi*hz*float64(i)/in))
	}
	y, err := Resample(x, in, out)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if len(y) != 2*len(x) {
		t.Fatalf("length %d, want %d", len(y), 2*len(x))
	}
	var maxErr float64
	for i := len(y) / 4; i < 3*len(y)/4; i++ {
		want := 0.5 * math.Sin(2*math.Pi*hz*float64(i)/out)
		if d := math.Abs(float64(y[i]) - want); d > maxErr {
			maxErr = d
		}
	}
	if maxErr > 0.02 {
		t.Fatalf("resampled sine misaligned: max error %g", maxErr)
	}
}

func TestPrepareMonoDuplicatesAndScales(t *testing.T) {
	p, err := Prepare([]float32{0.001, -0.002, 0.003}, 1, 44100, 44100, "")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if p.Len() != 3 || len(p.Channels[1]) != 3 {
		t.Fatalf("unexpected lengths %d/%d", len(p.Channels[0]), len(p.Channels[1]))
	}
	if math.Abs(float64(p.Channels[0][1])+0.256) > 1e-6 {
		t.Fatalf("gain not applied: %v", p.Channels[0][1])
	}
	for i := range p.Channels[0] {
		if p.Channels[0][i] != p.Channels[1][i] {
			t.Fatalf("frame %d: channels differ", i)
		}
	}
	p.Channels[1][0] = 42
	if p.Channels[0][0] == 42 {
		t.Fatal("duplicated channel must be an independent copy")
	}
	if p.SourcePitch != DefaultPitch {
		t.Fatalf("pitch = %v, want default %v", p.SourcePitch, DefaultPitch)
	}
}

func TestPrepareSilentRightChannelIsReplaced(t *testing.T) {
	raw := []float32{0.1, 0, 0.2, 0, 0.3, 0}
	p, err := Prepare(raw, 2, 44100, 44100, "")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for i := range p.Channels[0] {
		if p.Channels[1][i] != p.Channels[0][i] {
			t.Fatalf("frame %d: right=%v left=%v", i, p.Channels[1][i], p.Channels[0][i])
		}
	}

	raw[3] = 0.05
	p, err = Prepare(raw, 2, 44100, 44100, "")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if p.Channels[1][0] != 0 || p.Channels[1][1] == 0 {
		t.Fatalf("real right channel must be kept: %v", p.Channels[1])
	}
}

func TestPrepareReadsPitchSidecar(t *testing.T) {
	dir := t.TempDir()
	side := filepath.Join(dir, "ka_wav.frq")
	if err := frq.WriteFile(side, &frq.File{Average: 196}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	p, err := Prepare([]float32{0}, 1, 44100, 44100, side)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if p.SourcePitch != 196 {
		t.Fatalf("pitch = %v, want 196", p.SourcePitch)
	}

	for _, bad := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		if got := pitchOrDefault(bad); got != DefaultPitch {
			t.Fatalf("pitchOrDefault(%v) = %v, want %v", bad, got, DefaultPitch)
		}
	}
}

func TestPrepareRejectsZeroChannels(t *testing.T) {
	if _, err := Prepare([]float32{1}, 0, 44100, 44100, ""); err == nil {
		t.Fatal("expected error for zero channels")
	}
}
