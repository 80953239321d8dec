package transcribe

import (
	"errors"
	"fmt"
	"strings"
)

// Attempt records one failed strategy in the chain. The underlying
// backend error message is preserved for diagnostics.
type Attempt struct {
	Strategy string `json:"strategy"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

// ExhaustedError is returned when every applicable strategy failed. It
// aggregates the per-strategy causes.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("all %d transcription strategies failed:", len(e.Attempts)))
	for _, a := range e.Attempts {
		b.WriteString(fmt.Sprintf(" [%s] %v;", a.Strategy, a.Err))
	}
	return strings.TrimSuffix(b.String(), ";")
}

// ErrBackendUnavailable means the speech-to-text backend could not be
// constructed at startup; it is remembered and reported on every
// request rather than rebuilt.
var ErrBackendUnavailable = errors.New("transcription backend unavailable")
