package api

import (
	"net/http"
	"time"
)

// Capabilities are the environment-conditional features probed once at
// startup. The UI hides paths whose capability is off.
type Capabilities struct {
	Capture bool `json:"capture"`
	Decode  bool `json:"decode"`
}

type HealthResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Capabilities  Capabilities `json:"capabilities"`
	Provider      string       `json:"provider"`
	Languages     []string     `json:"languages"`
}

type HealthHandler struct {
	version   string
	startTime time.Time
	caps      Capabilities
	provider  string
	languages []string
}

func NewHealthHandler(version string, startTime time.Time, caps Capabilities, provider string, languages []string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: startTime,
		caps:      caps,
		provider:  provider,
		languages: languages,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Capabilities:  h.caps,
		Provider:      h.provider,
		Languages:     h.languages,
	})
}
