package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voicebox/internal/audio"
	"github.com/snarg/voicebox/internal/storage"
)

// Languages the UI offers as transcription hints. "auto" means no hint
// is passed and the backend detects the language itself.
var Languages = []string{"auto", "en", "ur", "hi", "fr", "es"}

// ValidLanguage reports whether lang is one of the supported hints.
func ValidLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// compressedExts are upload formats that need the external decode
// capability. WAV is decoded natively.
var compressedExts = map[string]bool{
	"mp3": true, "m4a": true, "flac": true, "ogg": true,
}

// ProviderFactory constructs the speech-to-text backend. Loading a
// model or dialing a backend is expensive, so the Service calls the
// factory at most once per process and memoizes the result.
type ProviderFactory func() (Provider, error)

// Options configures the transcription service.
type Options struct {
	Factory     ProviderFactory
	Decoder     audio.Decoder // nil when ffmpeg is unavailable
	Scratch     *storage.Scratch
	Temperature float64
	Log         zerolog.Logger
}

// Service runs the acquisition, normalization, and transcription
// attempt chain. One synchronous flow per request; no state outlives a
// request except the memoized provider.
type Service struct {
	opts Options
	log  zerolog.Logger

	provOnce sync.Once
	prov     Provider
	provErr  error
}

// NewService creates the transcription service.
func NewService(opts Options) *Service {
	return &Service{opts: opts, log: opts.Log}
}

// DecodeAvailable reports whether the external decode/resample
// capability was found at startup.
func (s *Service) DecodeAvailable() bool { return s.opts.Decoder != nil }

// provider returns the memoized backend, constructing it on first use.
// A construction failure is remembered and returned on every call
// rather than retried, matching the one-load-per-process model.
func (s *Service) provider() (Provider, error) {
	s.provOnce.Do(func() {
		start := time.Now()
		s.prov, s.provErr = s.opts.Factory()
		if s.provErr != nil {
			s.log.Error().Err(s.provErr).Msg("transcription backend construction failed")
			return
		}
		s.log.Info().
			Str("provider", s.prov.Name()).
			Str("model", s.prov.Model()).
			Dur("init_ms", time.Since(start)).
			Msg("transcription backend ready")
	})
	return s.prov, s.provErr
}

// UploadSource is user-supplied audio bytes of arbitrary format.
type UploadSource struct {
	Data     []byte
	Filename string
}

// RecordingSource is float32 samples from the capture device, already
// at the canonical rate.
type RecordingSource struct {
	Samples []float32
}

// ClipRef is a normalized clip plus its on-disk canonical WAV and the
// original bytes kept for the re-decode fallback. The caller must call
// Release after the transcription attempt chain completes, on every
// exit path.
type ClipRef struct {
	Clip *audio.Clip
	Path string

	original    []byte
	originalExt string
	dir         *storage.RequestDir
}

// Release removes every temp file behind the clip. Safe to call twice.
func (c *ClipRef) Release() {
	if c.dir != nil {
		c.dir.Cleanup()
	}
}

// AcquireAndNormalize converts a source into the canonical mono/16kHz/
// int16 WAV form in a request-scoped temp location. Errors are terminal
// for the request: ErrUnsupportedFormat when a compressed format needs
// the missing decode capability, ErrCorruptInput when bytes cannot be
// decoded.
func (s *Service) AcquireAndNormalize(ctx context.Context, src any) (*ClipRef, error) {
	var clip *audio.Clip
	var original []byte
	var originalExt string

	switch src := src.(type) {
	case RecordingSource:
		clip = audio.FromFloat32(src.Samples)

	case UploadSource:
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(src.Filename), "."))
		decoded, err := s.decodeUpload(ctx, src.Data, ext)
		if err != nil {
			return nil, err
		}
		clip = decoded
		original = src.Data
		originalExt = ext

	default:
		return nil, fmt.Errorf("unknown audio source %T", src)
	}

	clip = clip.Normalize()

	dir, err := s.opts.Scratch.NewRequestDir()
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	path := dir.Path("wav")
	if err := audio.WriteWAV(path, clip); err != nil {
		dir.Cleanup()
		return nil, fmt.Errorf("write canonical wav: %w", err)
	}

	s.log.Debug().
		Str("path", path).
		Dur("duration", clip.Duration()).
		Msg("clip normalized")

	return &ClipRef{
		Clip:        clip,
		Path:        path,
		original:    original,
		originalExt: originalExt,
		dir:         dir,
	}, nil
}

// decodeUpload picks the decode path for an uploaded file by extension.
func (s *Service) decodeUpload(ctx context.Context, data []byte, ext string) (*audio.Clip, error) {
	switch {
	case ext == "wav":
		clip, err := audio.DecodeWAV(data)
		if err == nil {
			return clip, nil
		}
		// A mislabeled .wav may still be decodable by ffmpeg.
		if s.opts.Decoder != nil && errors.Is(err, audio.ErrCorruptInput) {
			return s.opts.Decoder.Decode(ctx, data)
		}
		return nil, err

	case compressedExts[ext]:
		if s.opts.Decoder == nil {
			return nil, fmt.Errorf("%w: .%s upload needs ffmpeg, which is not installed", audio.ErrUnsupportedFormat, ext)
		}
		return s.opts.Decoder.Decode(ctx, data)

	default:
		return nil, fmt.Errorf("%w: unrecognized extension %q", audio.ErrUnsupportedFormat, ext)
	}
}
