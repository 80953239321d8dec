package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/snarg/voicebox/internal/audio"
	"github.com/snarg/voicebox/internal/storage"
)

// fakeProvider returns scripted responses per call, recording the opts
// each call was made with.
type fakeProvider struct {
	responses []fakeResponse
	calls     []Opts
}

type fakeResponse struct {
	text string
	lang string
	err  error
}

func (f *fakeProvider) Transcribe(ctx context.Context, audioPath string, opts Opts) (*Response, error) {
	i := len(f.calls)
	f.calls = append(f.calls, opts)
	if i >= len(f.responses) {
		return nil, fmt.Errorf("unexpected call %d", i)
	}
	r := f.responses[i]
	if r.err != nil {
		return nil, r.err
	}
	return &Response{Text: r.text, Language: r.lang}, nil
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

// fakeDecoder returns a fixed canonical clip for any input.
type fakeDecoder struct {
	err   error
	calls int
}

func (f *fakeDecoder) Decode(ctx context.Context, data []byte) (*audio.Clip, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &audio.Clip{
		Samples:    make([]int16, audio.CanonicalRate),
		SampleRate: audio.CanonicalRate,
		Channels:   audio.CanonicalChannels,
	}, nil
}

func newTestService(t *testing.T, prov Provider, dec audio.Decoder) *Service {
	t.Helper()
	scratch, err := storage.NewScratch(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return NewService(Options{
		Factory: func() (Provider, error) { return prov, nil },
		Decoder: dec,
		Scratch: scratch,
		Log:     zerolog.Nop(),
	})
}

// wavUpload builds WAV bytes for a clip of silence.
func wavUpload(t *testing.T, seconds int) []byte {
	t.Helper()
	clip := &audio.Clip{
		Samples:    make([]int16, seconds*audio.CanonicalRate),
		SampleRate: audio.CanonicalRate,
		Channels:   audio.CanonicalChannels,
	}
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := audio.WriteWAV(path, clip); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func acquire(t *testing.T, s *Service, src any) *ClipRef {
	t.Helper()
	clip, err := s.AcquireAndNormalize(context.Background(), src)
	if err != nil {
		t.Fatalf("AcquireAndNormalize: %v", err)
	}
	t.Cleanup(clip.Release)
	return clip
}

func TestChain_DirectSucceeds(t *testing.T) {
	prov := &fakeProvider{responses: []fakeResponse{{text: " hello world ", lang: "en"}}}
	s := newTestService(t, prov, &fakeDecoder{})
	clip := acquire(t, s, UploadSource{Data: wavUpload(t, 1), Filename: "a.wav"})

	res, err := s.Transcribe(context.Background(), clip, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q, want trimmed %q", res.Text, "hello world")
	}
	if res.Strategy != "direct" {
		t.Errorf("Strategy = %q, want direct", res.Strategy)
	}
	if res.Outcome != OutcomeTranscribed {
		t.Errorf("Outcome = %q, want transcribed", res.Outcome)
	}
	if len(prov.calls) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(prov.calls))
	}
	if prov.calls[0].Language != "en" {
		t.Errorf("direct language = %q, want en", prov.calls[0].Language)
	}
}

func TestChain_Ordering_RedecodedWins(t *testing.T) {
	// Direct fails; Re-decoded succeeds. Result must be Re-decoded's,
	// with Direct's failure recorded but not surfaced as an error.
	prov := &fakeProvider{responses: []fakeResponse{
		{err: errors.New("backend choked on direct input")},
		{text: "from redecoded", lang: "en"},
	}}
	dec := &fakeDecoder{}
	s := newTestService(t, prov, dec)
	clip := acquire(t, s, UploadSource{Data: wavUpload(t, 1), Filename: "a.wav"})

	res, err := s.Transcribe(context.Background(), clip, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Strategy != "redecoded" {
		t.Errorf("Strategy = %q, want redecoded", res.Strategy)
	}
	if res.Text != "from redecoded" {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.Attempts) != 1 || res.Attempts[0].Strategy != "direct" {
		t.Fatalf("Attempts = %+v, want one recorded direct failure", res.Attempts)
	}
	if dec.calls != 1 {
		t.Errorf("decoder calls = %d, want 1 (re-decode of original bytes)", dec.calls)
	}
	// Re-decoded keeps the same language hint
	if prov.calls[1].Language != "en" {
		t.Errorf("redecoded language = %q, want en", prov.calls[1].Language)
	}
}

func TestChain_UnhintedDropsLanguage(t *testing.T) {
	prov := &fakeProvider{responses: []fakeResponse{
		{err: errors.New("direct failed")},
		{err: errors.New("redecoded failed")},
		{text: "third time lucky"},
	}}
	s := newTestService(t, prov, &fakeDecoder{})
	clip := acquire(t, s, UploadSource{Data: wavUpload(t, 1), Filename: "a.wav"})

	res, err := s.Transcribe(context.Background(), clip, "ur")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Strategy != "unhinted" {
		t.Errorf("Strategy = %q, want unhinted", res.Strategy)
	}
	if prov.calls[2].Language != "" {
		t.Errorf("unhinted call language = %q, want empty", prov.calls[2].Language)
	}
	if len(res.Attempts) != 2 {
		t.Errorf("Attempts = %d, want 2", len(res.Attempts))
	}
}

func TestChain_Exhaustion(t *testing.T) {
	prov := &fakeProvider{responses: []fakeResponse{
		{err: errors.New("cause one")},
		{err: errors.New("cause two")},
		{err: errors.New("cause three")},
	}}
	s := newTestService(t, prov, &fakeDecoder{})
	clip := acquire(t, s, UploadSource{Data: wavUpload(t, 1), Filename: "a.wav"})

	_, err := s.Transcribe(context.Background(), clip, "en")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want *ExhaustedError", err)
	}
	if len(exhausted.Attempts) != 3 {
		t.Fatalf("Attempts = %d, want 3", len(exhausted.Attempts))
	}
	for i, want := range []string{"cause one", "cause two", "cause three"} {
		if got := exhausted.Attempts[i].Err.Error(); got != want {
			t.Errorf("attempt %d cause = %q, want %q", i, got, want)
		}
	}
	wantStrategies := []string{"direct", "redecoded", "unhinted"}
	for i, a := range exhausted.Attempts {
		if a.Strategy != wantStrategies[i] {
			t.Errorf("attempt %d strategy = %q, want %q", i, a.Strategy, wantStrategies[i])
		}
	}
}

func TestChain_EmptyTextIsNoSpeech(t *testing.T) {
	prov := &fakeProvider{responses: []fakeResponse{{text: "   \n\t "}}}
	s := newTestService(t, prov, &fakeDecoder{})
	clip := acquire(t, s, UploadSource{Data: wavUpload(t, 3), Filename: "silence.wav"})

	res, err := s.Transcribe(context.Background(), clip, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v (no-speech is not an error)", err)
	}
	if res.Outcome != OutcomeNoSpeech {
		t.Errorf("Outcome = %q, want no_speech", res.Outcome)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
	// Not re-attempted: later strategies never ran
	if len(prov.calls) != 1 {
		t.Errorf("provider calls = %d, want 1", len(prov.calls))
	}
}

func TestChain_NoUnhintedWhenAuto(t *testing.T) {
	// With "auto" there is no hint to strip, so Unhinted would repeat
	// Direct exactly and is omitted from the chain.
	prov := &fakeProvider{responses: []fakeResponse{
		{err: errors.New("direct failed")},
		{err: errors.New("redecoded failed")},
	}}
	s := newTestService(t, prov, &fakeDecoder{})
	clip := acquire(t, s, UploadSource{Data: wavUpload(t, 1), Filename: "a.wav"})

	_, err := s.Transcribe(context.Background(), clip, "auto")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want *ExhaustedError", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Errorf("Attempts = %d, want 2 (no unhinted stage)", len(exhausted.Attempts))
	}
}

func TestChain_RecordingHasNoRedecode(t *testing.T) {
	// Live recordings have no original compressed bytes, so the chain
	// is Direct then Unhinted only.
	prov := &fakeProvider{responses: []fakeResponse{
		{err: errors.New("direct failed")},
		{text: "ok"},
	}}
	s := newTestService(t, prov, &fakeDecoder{})
	clip := acquire(t, s, RecordingSource{Samples: make([]float32, audio.CanonicalRate)})

	res, err := s.Transcribe(context.Background(), clip, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Strategy != "unhinted" {
		t.Errorf("Strategy = %q, want unhinted (redecoded not applicable)", res.Strategy)
	}
}

func TestProvider_MemoizedSingleton(t *testing.T) {
	built := 0
	prov := &fakeProvider{responses: []fakeResponse{{text: "one"}, {text: "two"}}}
	scratch, _ := storage.NewScratch(t.TempDir(), zerolog.Nop())
	s := NewService(Options{
		Factory: func() (Provider, error) {
			built++
			return prov, nil
		},
		Scratch: scratch,
		Log:     zerolog.Nop(),
	})

	clip := acquire(t, s, RecordingSource{Samples: make([]float32, audio.CanonicalRate)})
	if _, err := s.Transcribe(context.Background(), clip, "auto"); err != nil {
		t.Fatal(err)
	}
	clip2 := acquire(t, s, RecordingSource{Samples: make([]float32, audio.CanonicalRate)})
	if _, err := s.Transcribe(context.Background(), clip2, "auto"); err != nil {
		t.Fatal(err)
	}
	if built != 1 {
		t.Errorf("factory ran %d times, want 1 (memoized singleton)", built)
	}
}

func TestProvider_ConstructionFailureSticks(t *testing.T) {
	built := 0
	scratch, _ := storage.NewScratch(t.TempDir(), zerolog.Nop())
	s := NewService(Options{
		Factory: func() (Provider, error) {
			built++
			return nil, errors.New("model load failed")
		},
		Scratch: scratch,
		Log:     zerolog.Nop(),
	})

	clip := acquire(t, s, RecordingSource{Samples: make([]float32, audio.CanonicalRate)})
	if _, err := s.Transcribe(context.Background(), clip, "auto"); err == nil {
		t.Fatal("want error from failed backend construction")
	}
	if _, err := s.Transcribe(context.Background(), clip, "auto"); err == nil {
		t.Fatal("second call should fail the same way")
	}
	if built != 1 {
		t.Errorf("factory ran %d times, want 1 (failure is not retried)", built)
	}
}
