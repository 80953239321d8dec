package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/snarg/voicebox/internal/audio"
	"github.com/snarg/voicebox/internal/capture"
	"github.com/snarg/voicebox/internal/transcribe"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body. Every failure
// names the stage that failed and suggests a remedy instead of leaking
// a raw internal error string alone.
type ErrorResponse struct {
	Error    string               `json:"error"`
	Stage    string               `json:"stage,omitempty"`
	Remedy   string               `json:"remedy,omitempty"`
	Attempts []transcribe.Attempt `json:"attempts,omitempty"`
}

// WriteError writes a plain JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteStageError writes an error with stage and remedy fields.
func WriteStageError(w http.ResponseWriter, status int, msg, stage, remedy string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Stage: stage, Remedy: remedy})
}

// WritePipelineError maps the error taxonomy onto HTTP responses.
func WritePipelineError(w http.ResponseWriter, err error) {
	var exhausted *transcribe.ExhaustedError
	switch {
	case errors.Is(err, audio.ErrUnsupportedFormat):
		WriteStageError(w, http.StatusUnsupportedMediaType, err.Error(),
			"normalization",
			"install ffmpeg for compressed formats, or upload a PCM WAV file")
	case errors.Is(err, audio.ErrCorruptInput):
		WriteStageError(w, http.StatusBadRequest, err.Error(),
			"normalization",
			"the file could not be decoded; re-export it and try again")
	case errors.Is(err, capture.ErrDeviceUnavailable):
		WriteStageError(w, http.StatusServiceUnavailable, err.Error(),
			"capture",
			"check microphone permissions or use the file upload instead")
	case errors.Is(err, transcribe.ErrBackendUnavailable):
		WriteStageError(w, http.StatusServiceUnavailable, err.Error(),
			"transcription",
			"check the speech-to-text provider configuration and connectivity")
	case errors.As(err, &exhausted):
		WriteJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:    "every transcription strategy failed",
			Stage:    "transcription",
			Remedy:   "verify the audio contains speech and the backend is reachable",
			Attempts: exhausted.Attempts,
		})
	default:
		WriteStageError(w, http.StatusInternalServerError, err.Error(), "", "")
	}
}
