package audio

import (
	"errors"
	"math"
	"time"
)

// Canonical form all transcription attempts operate on.
const (
	CanonicalRate     = 16000
	CanonicalChannels = 1
)

var (
	// ErrUnsupportedFormat means the input format needs the external
	// decode capability and it is not installed, or the format is not
	// recognized at all.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrCorruptInput means bytes were present but could not be decoded.
	ErrCorruptInput = errors.New("corrupt audio input")
)

// Clip is a decoded audio clip: interleaved int16 PCM samples plus the
// format they were decoded at. After Normalize the clip is mono 16kHz.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Canonical reports whether the clip is already mono 16kHz int16.
func (c *Clip) Canonical() bool {
	return c.SampleRate == CanonicalRate && c.Channels == CanonicalChannels
}

// Normalize converts the clip to the canonical mono/16kHz form.
// A clip already in canonical form is returned untouched, samples and
// all, so normalizing canonical input is a no-op.
func (c *Clip) Normalize() *Clip {
	if c.Canonical() {
		return c
	}
	samples := c.Samples
	if c.Channels > 1 {
		samples = downmix(samples, c.Channels)
	}
	if c.SampleRate != CanonicalRate {
		samples = resample(samples, c.SampleRate, CanonicalRate)
	}
	return &Clip{Samples: samples, SampleRate: CanonicalRate, Channels: CanonicalChannels}
}

// FromFloat32 builds a canonical-rate clip from float32 samples in
// [-1.0, 1.0], as produced by the capture device.
func FromFloat32(samples []float32) *Clip {
	return &Clip{
		Samples:    Int16FromFloat32(samples),
		SampleRate: CanonicalRate,
		Channels:   CanonicalChannels,
	}
}

// Int16FromFloat32 converts float32 samples to int16 PCM. Values are
// scaled by 32767, rounded, and clamped: a sample at exactly 1.0 must
// not wrap around to a negative value.
func Int16FromFloat32(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// downmix averages interleaved channels into mono.
func downmix(samples []int16, channels int) []int16 {
	frames := len(samples) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += int(samples[i*channels+ch])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// resample converts mono samples from one rate to another by linear
// interpolation. Good enough for speech fed to an STT model; anything
// compressed goes through ffmpeg's resampler instead.
func resample(samples []int16, from, to int) []int16 {
	if from == to || len(samples) == 0 {
		return samples
	}
	outLen := int(int64(len(samples)) * int64(to) / int64(from))
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(j)
		a := float64(samples[j])
		b := float64(samples[j+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
