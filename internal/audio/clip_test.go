package audio

import (
	"testing"
	"time"
)

func TestInt16FromFloat32_Bounds(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1.0, 32767},
		{-1.0, -32767},
		{0.5, 16384}, // round(16383.5)
		{1.5, 32767}, // clipped
		{-1.5, -32768},
	}
	for _, tc := range cases {
		got := Int16FromFloat32([]float32{tc.in})[0]
		if got != tc.want {
			t.Errorf("Int16FromFloat32(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestInt16FromFloat32_NoOverflow(t *testing.T) {
	// Sweep [-1, 1]: every output must stay inside int16 range and keep
	// the input's sign.
	for x := float32(-1.0); x <= 1.0; x += 0.001 {
		v := Int16FromFloat32([]float32{x})[0]
		if x > 0 && v < 0 {
			t.Fatalf("positive input %v produced negative sample %d", x, v)
		}
		if x < 0 && v > 0 {
			t.Fatalf("negative input %v produced positive sample %d", x, v)
		}
	}
}

func TestNormalize_CanonicalIsNoop(t *testing.T) {
	clip := &Clip{
		Samples:    []int16{1, 2, 3, -4, 30000},
		SampleRate: CanonicalRate,
		Channels:   CanonicalChannels,
	}
	got := clip.Normalize()
	if got != clip {
		t.Error("Normalize of canonical clip should return the same clip")
	}
	for i, s := range got.Samples {
		if s != clip.Samples[i] {
			t.Fatalf("sample %d changed: %d != %d", i, s, clip.Samples[i])
		}
	}
}

func TestNormalize_Downmix(t *testing.T) {
	// Stereo, already 16kHz: frames (100, 200), (-100, -200)
	clip := &Clip{
		Samples:    []int16{100, 200, -100, -200},
		SampleRate: CanonicalRate,
		Channels:   2,
	}
	got := clip.Normalize()
	if got.Channels != 1 {
		t.Fatalf("Channels = %d, want 1", got.Channels)
	}
	if len(got.Samples) != 2 {
		t.Fatalf("len = %d, want 2", len(got.Samples))
	}
	if got.Samples[0] != 150 || got.Samples[1] != -150 {
		t.Errorf("downmix = %v, want [150 -150]", got.Samples)
	}
}

func TestNormalize_Resample(t *testing.T) {
	// Mono 32kHz, one second of a constant value: result should be
	// 16000 samples of the same value.
	in := make([]int16, 32000)
	for i := range in {
		in[i] = 1000
	}
	clip := &Clip{Samples: in, SampleRate: 32000, Channels: 1}
	got := clip.Normalize()
	if got.SampleRate != CanonicalRate {
		t.Fatalf("SampleRate = %d, want %d", got.SampleRate, CanonicalRate)
	}
	if len(got.Samples) != 16000 {
		t.Fatalf("len = %d, want 16000", len(got.Samples))
	}
	for i, s := range got.Samples {
		if s != 1000 {
			t.Fatalf("sample %d = %d, want 1000", i, s)
		}
	}
}

func TestResample_Upsample(t *testing.T) {
	in := []int16{0, 100}
	out := resample(in, 8000, 16000)
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	// Interpolated midpoint between 0 and 100
	if out[1] != 50 {
		t.Errorf("out[1] = %d, want 50", out[1])
	}
}

func TestDuration(t *testing.T) {
	clip := &Clip{
		Samples:    make([]int16, 3*CanonicalRate),
		SampleRate: CanonicalRate,
		Channels:   1,
	}
	if d := clip.Duration(); d != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", d)
	}

	stereo := &Clip{Samples: make([]int16, 2*44100), SampleRate: 44100, Channels: 2}
	if d := stereo.Duration(); d != time.Second {
		t.Errorf("stereo Duration = %v, want 1s", d)
	}
}

func TestFromFloat32(t *testing.T) {
	clip := FromFloat32([]float32{0, 1.0, -1.0})
	if !clip.Canonical() {
		t.Error("FromFloat32 clip should be canonical")
	}
	if clip.Samples[1] != 32767 {
		t.Errorf("Samples[1] = %d, want 32767", clip.Samples[1])
	}
}
