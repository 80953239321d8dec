package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/voicebox/internal/capture"
	"github.com/snarg/voicebox/internal/metrics"
	"github.com/snarg/voicebox/internal/transcribe"
)

// Pipeline is the core the handlers drive: the two entry points of the
// transcription service.
type Pipeline interface {
	AcquireAndNormalize(ctx context.Context, src any) (*transcribe.ClipRef, error)
	Transcribe(ctx context.Context, clip *transcribe.ClipRef, languageHint string) (*transcribe.Result, error)
}

// Recorder is the live-capture device. It is nil when the startup probe
// found no input device, in which case the record route is never
// registered.
type Recorder interface {
	Record(seconds int) ([]float32, error)
}

// ClipInfo describes the normalized clip returned with a transcription
// so the UI can show details and play the audio back.
type ClipInfo struct {
	SampleRateHz    int     `json:"sample_rate_hz"`
	Channels        int     `json:"channels"`
	DurationSeconds float64 `json:"duration_seconds"`
	WavBase64       string  `json:"wav_base64,omitempty"`
}

// TranscriptionResponse is the success body for both endpoints.
type TranscriptionResponse struct {
	Text       string               `json:"text"`
	Outcome    string               `json:"outcome"`
	Strategy   string               `json:"strategy"`
	Language   string               `json:"language,omitempty"`
	DurationMs int64                `json:"duration_ms"`
	Clip       ClipInfo             `json:"clip"`
	Attempts   []transcribe.Attempt `json:"attempts,omitempty"`
}

// TranscribeHandler handles uploads and live recordings.
type TranscribeHandler struct {
	pipeline Pipeline
	recorder Recorder
	log      zerolog.Logger
}

func NewTranscribeHandler(pipeline Pipeline, recorder Recorder, log zerolog.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		pipeline: pipeline,
		recorder: recorder,
		log:      log.With().Str("handler", "transcribe").Logger(),
	}
}

// Routes registers the pipeline endpoints. The record route only exists
// when a capture device was found at startup.
func (h *TranscribeHandler) Routes(r chi.Router) {
	r.Post("/api/v1/transcribe", h.Upload)
	if h.recorder != nil {
		r.Post("/api/v1/record", h.Record)
	}
}

// Upload handles POST /api/v1/transcribe: a multipart form with an
// "audio" file and a "language" field.
func (h *TranscribeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	lang := r.FormValue("language")
	if lang == "" {
		lang = "auto"
	}
	if !transcribe.ValidLanguage(lang) {
		WriteError(w, http.StatusBadRequest, "unsupported language hint: "+lang)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		WriteError(w, http.StatusBadRequest, `missing "audio" file field`)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	h.run(w, r, transcribe.UploadSource{Data: data, Filename: header.Filename}, lang, "upload")
}

// recordRequest is the JSON body for POST /api/v1/record.
type recordRequest struct {
	DurationSeconds int    `json:"duration_seconds"`
	Language        string `json:"language"`
}

// Record handles POST /api/v1/record: blocks for the full requested
// duration while capturing from the default input device.
func (h *TranscribeHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.DurationSeconds < capture.MinDuration || req.DurationSeconds > capture.MaxDuration {
		WriteError(w, http.StatusBadRequest, "duration_seconds must be between 1 and 30")
		return
	}
	lang := req.Language
	if lang == "" {
		lang = "auto"
	}
	if !transcribe.ValidLanguage(lang) {
		WriteError(w, http.StatusBadRequest, "unsupported language hint: "+lang)
		return
	}

	samples, err := h.recorder.Record(req.DurationSeconds)
	if err != nil {
		h.log.Error().Err(err).Int("seconds", req.DurationSeconds).Msg("capture failed")
		WriteStageError(w, http.StatusInternalServerError, err.Error(),
			"capture", "check microphone permissions or use the file upload instead")
		return
	}
	metrics.CaptureSecondsTotal.Add(float64(req.DurationSeconds))

	h.run(w, r, transcribe.RecordingSource{Samples: samples}, lang, "recording")
}

// run drives acquire→normalize→chain and writes the response. The clip
// is released on every exit path.
func (h *TranscribeHandler) run(w http.ResponseWriter, r *http.Request, src any, lang, source string) {
	start := time.Now()

	clip, err := h.pipeline.AcquireAndNormalize(r.Context(), src)
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues(source, "error").Inc()
		h.log.Warn().Err(err).Str("source", source).Msg("acquisition/normalization failed")
		WritePipelineError(w, err)
		return
	}
	defer clip.Release()

	result, err := h.pipeline.Transcribe(r.Context(), clip, lang)
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues(source, "error").Inc()
		h.log.Warn().Err(err).Str("source", source).Msg("transcription failed")
		WritePipelineError(w, err)
		return
	}
	metrics.TranscriptionsTotal.WithLabelValues(source, string(result.Outcome)).Inc()

	resp := TranscriptionResponse{
		Text:       result.Text,
		Outcome:    string(result.Outcome),
		Strategy:   result.Strategy,
		Language:   result.Language,
		DurationMs: time.Since(start).Milliseconds(),
		Clip: ClipInfo{
			SampleRateHz:    clip.Clip.SampleRate,
			Channels:        clip.Clip.Channels,
			DurationSeconds: clip.Clip.Duration().Seconds(),
			WavBase64:       encodeClip(clip.Path),
		},
		Attempts: result.Attempts,
	}
	WriteJSON(w, http.StatusOK, resp)
}

// encodeClip inlines the canonical WAV so the page can play it back.
// Failures just drop the playback, never the transcript.
func encodeClip(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}
