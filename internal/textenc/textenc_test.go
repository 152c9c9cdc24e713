package textenc

import "testing"

func TestDecodePassesThroughUTF8(t *testing.T) {
	got, err := Decode([]byte("あ.wav=あ,0,1,2,3,4"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "あ.wav=あ,0,1,2,3,4" {
		t.Fatalf("unexpected decode: %q", got)
	}
}

func TestDecodeFallsBackToShiftJIS(t *testing.T) {
	// あ in Shift-JIS.
	got, err := Decode([]byte{0x82, 0xa0})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "あ" {
		t.Fatalf("expected あ, got %q", got)
	}
}

func TestShiftJISRoundTrip(t *testing.T) {
	enc, err := EncodeShiftJIS("かきくけこ")
	if err != nil {
		t.Fatalf("EncodeShiftJIS: %v", err)
	}
	if len(enc) != 10 {
		t.Fatalf("expected 2 bytes per glyph, got %d bytes", len(enc))
	}
	dec, err := DecodeShiftJIS(enc)
	if err != nil {
		t.Fatalf("DecodeShiftJIS: %v", err)
	}
	if dec != "かきくけこ" {
		t.Fatalf("round trip mismatch: %q", dec)
	}
}
