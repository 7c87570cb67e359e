package speech

import (
	"math"
	"testing"
)

func TestDecodePCM16(t *testing.T) {
	// 0, max positive, min negative, -1 in little-endian int16.
	data := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80, 0xFF, 0xFF}
	clip := DecodePCM16(data)

	if clip.SampleRate != SampleRate {
		t.Errorf("SampleRate = %d, want %d", clip.SampleRate, SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("Channels = %d, want 1", clip.Channels)
	}
	want := []float32{0, 32767.0 / 32768, -1, -1.0 / 32768}
	if len(clip.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(clip.Samples), len(want))
	}
	for i, w := range want {
		if math.Abs(float64(clip.Samples[i]-w)) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, clip.Samples[i], w)
		}
	}
}

func TestDecodePCM16OddTrailingByte(t *testing.T) {
	clip := DecodePCM16([]byte{0x00, 0x10, 0x7F})
	if len(clip.Samples) != 1 {
		t.Errorf("got %d samples, want 1", len(clip.Samples))
	}
}

func TestClipDuration(t *testing.T) {
	clip := Clip{Samples: make([]float32, SampleRate*2), SampleRate: SampleRate, Channels: 1}
	if d := clip.Duration(); math.Abs(d-2) > 1e-9 {
		t.Errorf("Duration = %v, want 2", d)
	}
	if d := (Clip{}).Duration(); d != 0 {
		t.Errorf("empty clip Duration = %v, want 0", d)
	}
}
