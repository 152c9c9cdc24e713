package synth

import (
	"math"
	"testing"
)

func TestVoiceSustainLoopResetsExactly(t *testing.T) {
	v := newVoice("k", 60, 1, 100, 1000, 0, 0)
	prev := v.Position()
	looped := false
	for i := 0; i < 2500; i++ {
		v.advance()
		pos := v.Position()
		if pos <= prev {
			if prev != 1000 || pos != 100 {
				t.Fatalf("cursor went %d -> %d", prev, pos)
			}
			looped = true
		} else if pos != prev+1 {
			t.Fatalf("cursor skipped %d -> %d", prev, pos)
		}
		if pos > 1000 {
			t.Fatalf("cursor escaped loop: %d", pos)
		}
		prev = pos
	}
	if !looped {
		t.Fatal("voice never looped")
	}
	if v.Phase() != PhaseSustain {
		t.Fatalf("phase = %v, want sustain", v.Phase())
	}
}

func TestVoiceCrossfadeBlend(t *testing.T) {
	data := make([]float32, 1200)
	for i := range data {
		if i >= 500 {
			data[i] = 1
		} else {
			data[i] = 0.2
		}
	}
	ch := [2][]float32{data, data}

	v := newVoice("k", 60, 1, 100, 1000, 50, 0)
	v.phase = PhaseSustain
	v.ignoreFade = false

	v.position = 949
	if _, _, amp := v.render(ch); amp != 2 {
		t.Fatalf("before fade amp = %v, want 2", amp)
	}
	v.position = 950
	l, _, amp := v.render(ch)
	if l != 1 || amp != 2 {
		t.Fatalf("at fade start l=%v amp=%v, want ratio 0", l, amp)
	}
	prev := amp / 2
	for pos := 951; pos < 1000; pos++ {
		v.position = pos
		_, _, amp := v.render(ch)
		perCh := amp / 2
		if !(perCh > 0.2 && perCh < 1) {
			t.Fatalf("pos %d: amplitude %v outside (0.2, 1)", pos, perCh)
		}
		if perCh >= prev {
			t.Fatalf("pos %d: blend not monotonic (%v >= %v)", pos, perCh, prev)
		}
		prev = perCh
	}
	v.position = 999
	l, _, _ = v.render(ch)
	want := float32(1)/50 + 0.2*49/50
	if d := l - want; d > 1e-6 || d < -1e-6 {
		t.Fatalf("at 999 l=%v, want %v", l, want)
	}
}

func TestVoiceCrossfadeWrapContinuesBlendSource(t *testing.T) {
	v := newVoice("k", 60, 1, 100, 1000, 50, 0)
	v.phase = PhaseSustain
	v.ignoreFade = false
	v.position = 1000
	v.advance()
	if v.Position() != 150 {
		t.Fatalf("wrap position = %d, want loopStart+crossfade = 150", v.Position())
	}
}

func TestVoiceCrossfadeHasNoSeamAtLoopEnd(t *testing.T) {
	data := make([]float32, 1200)
	for i := range data {
		data[i] = float32(i)
	}
	ch := [2][]float32{data, data}

	v := newVoice("k", 60, 1, 100, 1000, 50, 0)
	v.phase = PhaseSustain
	v.ignoreFade = false
	v.position = 997

	var out []float32
	for i := 0; i < 6; i++ {
		l, _, _ := v.step(i, ch)
		out = append(out, l)
	}
	// Cursors 997..1000 blend toward the loop start, then 150 and 151 play raw.
	want := []float32{198, 182, 166, 150, 150, 151}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-3 {
			t.Fatalf("frame %d = %v, want %v (all %v)", i, out[i], want[i], out)
		}
	}
	for i := 1; i < len(out); i++ {
		if d := math.Abs(float64(out[i] - out[i-1])); d > 17 {
			t.Fatalf("jump of %v between frames %d and %d: %v", d, i-1, i, out)
		}
	}
}

func TestVoiceIgnoreFadeClearsAfterCrossfadeLength(t *testing.T) {
	v := newVoice("k", 60, 1, 10, 500, 20, 0)
	for v.Position() < 30 {
		v.advance()
		if v.Position() <= 30 && !v.ignoreFade {
			t.Fatalf("ignoreFade cleared early at %d", v.Position())
		}
	}
	v.advance()
	if v.ignoreFade {
		t.Fatalf("ignoreFade still set at %d", v.Position())
	}
}

func TestVoiceReleaseJumpsToLoopEnd(t *testing.T) {
	v := newVoice("k", 60, 1, 10, 80, 5, 0)
	v.position = 40
	v.phase = PhaseSustain
	v.ignoreFade = false
	v.release(3)
	if !v.releasing() {
		t.Fatal("pending release not reported")
	}
	for i := 0; i < 3; i++ {
		v.step(i, [2][]float32{})
	}
	if v.Phase() != PhaseSustain {
		t.Fatalf("released early: %v", v.Phase())
	}
	v.step(3, [2][]float32{})
	if v.Phase() != PhaseDone || v.Position() != 80 || !v.ignoreFade {
		t.Fatalf("after release phase=%v pos=%d ignoreFade=%v", v.Phase(), v.Position(), v.ignoreFade)
	}
}

func TestVoiceNegativePositionIsSilent(t *testing.T) {
	v := newVoice("k", 60, 1, 0, 10, 0, 3)
	ch := [2][]float32{{1, 1, 1, 1}, {1, 1, 1, 1}}
	for i := 0; i < 3; i++ {
		if l, r, amp := v.step(i, ch); l != 0 || r != 0 || amp != 0 {
			t.Fatalf("frame %d sounded before start", i)
		}
	}
	if l, _, _ := v.step(3, ch); l != 1 {
		t.Fatalf("frame 3 = %v, want onset", l)
	}
}
