package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Decoder converts arbitrary compressed audio bytes (MP3/M4A/FLAC/OGG)
// into a canonical mono/16kHz clip.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*Clip, error)
}

// ffmpegAvailable caches whether ffmpeg is in PATH (checked once at startup).
var ffmpegAvailable *bool

// CheckFFmpeg checks if ffmpeg is available. Call once at startup; the
// result is cached for the process lifetime.
func CheckFFmpeg(path string) bool {
	if ffmpegAvailable != nil {
		return *ffmpegAvailable
	}
	_, err := exec.LookPath(path)
	avail := err == nil
	ffmpegAvailable = &avail
	return avail
}

// FFmpegDecoder shells out to ffmpeg to decode and resample compressed
// audio to mono 16kHz s16le PCM, reading from stdin and writing raw
// samples to stdout so no extra temp files are needed.
type FFmpegDecoder struct {
	path string
}

// NewFFmpegDecoder returns a decoder using the given ffmpeg binary.
func NewFFmpegDecoder(path string) *FFmpegDecoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegDecoder{path: path}
}

func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*Clip, error) {
	cmd := exec.CommandContext(ctx, d.path,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(CanonicalChannels),
		"-ar", strconv.Itoa(CanonicalRate),
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: ffmpeg: %s", ErrCorruptInput, msg)
	}

	raw := stdout.Bytes()
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: ffmpeg produced no samples", ErrCorruptInput)
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return &Clip{Samples: samples, SampleRate: CanonicalRate, Channels: CanonicalChannels}, nil
}
