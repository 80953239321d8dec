package transcribe

import "context"

// Provider is the interface for speech-to-text backends. The backend is
// an opaque collaborator: given a PCM WAV file path and an optional
// language hint, it returns transcribed text or fails.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts Opts) (*Response, error)
	Name() string  // "whisper", "openai"
	Model() string // model identifier for logs
}

// Opts are per-request options passed to a provider. An empty Language
// means no hint: the backend auto-detects.
type Opts struct {
	Language    string
	Temperature float64
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
}
