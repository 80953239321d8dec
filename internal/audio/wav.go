package audio

import (
	"bytes"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DecodeWAV parses a PCM WAV container into a Clip. The samples keep
// their original rate and channel count; callers normalize afterwards.
// Returns ErrCorruptInput for malformed containers and
// ErrUnsupportedFormat for non-PCM encodings inside a WAV wrapper.
func DecodeWAV(data []byte) (*Clip, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV container", ErrCorruptInput)
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV audio format %d (only PCM supported)", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptInput, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: WAV contains no audio data", ErrCorruptInput)
	}

	samples := make([]int16, len(buf.Data))
	switch d.BitDepth {
	case 16:
		for i, v := range buf.Data {
			samples[i] = int16(v)
		}
	case 8:
		// 8-bit WAV is unsigned, centered at 128
		for i, v := range buf.Data {
			samples[i] = int16((v - 128) << 8)
		}
	case 24:
		for i, v := range buf.Data {
			samples[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range buf.Data {
			samples[i] = int16(v >> 16)
		}
	default:
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, d.BitDepth)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}, nil
}

// WriteWAV writes the clip as 16-bit PCM WAV to path.
func WriteWAV(path string, clip *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, clip.SampleRate, 16, clip.Channels, 1)
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: clip.Channels,
			SampleRate:  clip.SampleRate,
		},
		Data:           make([]int, len(clip.Samples)),
		SourceBitDepth: 16,
	}
	for i, s := range clip.Samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return f.Close()
}
