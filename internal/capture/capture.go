package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
	"github.com/snarg/voicebox/internal/audio"
)

// Recording duration bounds in seconds.
const (
	MinDuration = 1
	MaxDuration = 30
)

// ErrDeviceUnavailable means no capture device exists in this
// environment. It is raised by Probe at startup, never per call; when
// Probe fails the record endpoint and UI controls are hidden entirely.
var ErrDeviceUnavailable = errors.New("no audio capture device available")

// Device is a handle to the default input device. It is created once by
// Probe and reused for the process lifetime; a mutex serializes
// recordings since there is only one microphone.
type Device struct {
	mu  sync.Mutex
	log zerolog.Logger
}

// Probe initializes the OS audio subsystem and checks for a default
// input device. Call once at startup. Returns ErrDeviceUnavailable when
// the environment has no capture device (headless hosts, containers).
func Probe(log zerolog.Logger) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	info, err := portaudio.DefaultInputDevice()
	if err != nil || info == nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: no default input device", ErrDeviceUnavailable)
	}
	log.Info().Str("device", info.Name).Int("max_input_channels", info.MaxInputChannels).Msg("capture device probed")
	return &Device{log: log}, nil
}

// Close releases the audio subsystem.
func (d *Device) Close() {
	portaudio.Terminate()
}

// Record blocks for the requested duration and returns exactly
// seconds*16000 float32 samples in [-1.0, 1.0] from the default input
// device. There is no early cancel: once started, the recording runs to
// completion.
func (d *Device) Record(seconds int) ([]float32, error) {
	if seconds < MinDuration || seconds > MaxDuration {
		return nil, fmt.Errorf("duration %ds out of range [%d, %d]", seconds, MinDuration, MaxDuration)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	in := make([]float32, 1024)
	stream, err := portaudio.OpenDefaultStream(audio.CanonicalChannels, 0, float64(audio.CanonicalRate), len(in), in)
	if err != nil {
		return nil, fmt.Errorf("open capture stream: %w", err)
	}
	defer func() {
		stream.Stop()
		stream.Close()
	}()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start capture stream: %w", err)
	}

	d.log.Debug().Int("seconds", seconds).Msg("recording")
	return collect(stream.Read, in, seconds*audio.CanonicalRate)
}

// collect reads buffers until n samples have been gathered, then trims
// to exactly n. Split out from Record so the fill loop is testable
// without a real device.
func collect(read func() error, in []float32, n int) ([]float32, error) {
	samples := make([]float32, 0, n+len(in))
	for len(samples) < n {
		if err := read(); err != nil {
			return nil, fmt.Errorf("capture read: %w", err)
		}
		samples = append(samples, in...)
	}
	return samples[:n], nil
}
