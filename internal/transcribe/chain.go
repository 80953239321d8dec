package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snarg/voicebox/internal/audio"
	"github.com/snarg/voicebox/internal/metrics"
)

// Outcome classifies a successful chain run.
type Outcome string

const (
	OutcomeTranscribed Outcome = "transcribed"

	// OutcomeNoSpeech means the backend answered with empty or
	// whitespace-only text. That is a valid result, not a failure, and
	// is never re-attempted with a later strategy.
	OutcomeNoSpeech Outcome = "no_speech"
)

// Result is the terminal outcome of the attempt chain.
type Result struct {
	Text     string
	Outcome  Outcome
	Strategy string
	Language string

	// Attempts holds strategies that failed before the winning one.
	// They are recorded for diagnostics but not surfaced as errors.
	Attempts []Attempt
}

// strategy is one entry in the ordered attempt list. Each returns a
// tagged result instead of relying on exception-style control flow.
type strategy struct {
	name string
	run  func(ctx context.Context) (*Response, error)
}

// Transcribe runs the attempt chain against the backend: Direct with
// the language hint, then Re-decoded from the original bytes, then
// Unhinted. Strategies run strictly in sequence; the first success is
// terminal, and only exhaustion of all applicable strategies is
// reported as an error (*ExhaustedError).
func (s *Service) Transcribe(ctx context.Context, clip *ClipRef, languageHint string) (*Result, error) {
	prov, err := s.provider()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	hint := languageHint
	if hint == "auto" {
		hint = ""
	}

	strategies := s.buildChain(prov, clip, hint)

	start := time.Now()
	var attempts []Attempt
	for _, st := range strategies {
		resp, err := st.run(ctx)
		if err != nil {
			metrics.StrategyAttemptsTotal.WithLabelValues(st.name, "failure").Inc()
			attempts = append(attempts, Attempt{Strategy: st.name, Err: err, Message: err.Error()})
			s.log.Warn().Err(err).Str("strategy", st.name).Msg("transcription strategy failed, trying next")
			continue
		}
		metrics.StrategyAttemptsTotal.WithLabelValues(st.name, "success").Inc()
		metrics.TranscribeDuration.Observe(time.Since(start).Seconds())

		text := strings.TrimSpace(resp.Text)
		outcome := OutcomeTranscribed
		if text == "" {
			outcome = OutcomeNoSpeech
		}
		lang := resp.Language
		if lang == "" {
			lang = hint
		}
		s.log.Info().
			Str("strategy", st.name).
			Str("outcome", string(outcome)).
			Int("chars", len(text)).
			Dur("elapsed", time.Since(start)).
			Msg("transcription complete")

		return &Result{
			Text:     text,
			Outcome:  outcome,
			Strategy: st.name,
			Language: lang,
			Attempts: attempts,
		}, nil
	}

	metrics.TranscribeDuration.Observe(time.Since(start).Seconds())
	return nil, &ExhaustedError{Attempts: attempts}
}

// buildChain assembles the ordered strategy list for one request.
// Cheaper strategies come first: most well-formed inputs succeed at
// Direct, and later stages trade fidelity for robustness.
func (s *Service) buildChain(prov Provider, clip *ClipRef, hint string) []strategy {
	opts := Opts{Language: hint, Temperature: s.opts.Temperature}

	chain := []strategy{{
		name: "direct",
		run: func(ctx context.Context) (*Response, error) {
			return prov.Transcribe(ctx, clip.Path, opts)
		},
	}}

	// Re-decoded: decode the ORIGINAL uploaded bytes again, independent
	// of whatever normalization produced, and retry with the same hint.
	// Only applicable for uploads and only when ffmpeg is present.
	if s.opts.Decoder != nil && len(clip.original) > 0 {
		chain = append(chain, strategy{
			name: "redecoded",
			run: func(ctx context.Context) (*Response, error) {
				redecoded, err := s.opts.Decoder.Decode(ctx, clip.original)
				if err != nil {
					return nil, fmt.Errorf("re-decode: %w", err)
				}
				path := clip.dir.Path("wav")
				if err := audio.WriteWAV(path, redecoded); err != nil {
					return nil, fmt.Errorf("write re-decoded wav: %w", err)
				}
				return prov.Transcribe(ctx, path, opts)
			},
		})
	}

	// Unhinted: same input as Direct with the hint stripped so the
	// backend auto-detects. Pointless when no hint was given.
	if hint != "" {
		chain = append(chain, strategy{
			name: "unhinted",
			run: func(ctx context.Context) (*Response, error) {
				return prov.Transcribe(ctx, clip.Path, Opts{Temperature: s.opts.Temperature})
			},
		})
	}

	return chain
}
