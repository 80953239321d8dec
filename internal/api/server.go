package api

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/voicebox/internal/config"
	"github.com/snarg/voicebox/internal/metrics"
	"github.com/snarg/voicebox/internal/transcribe"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, pipeline Pipeline, recorder Recorder, webFS fs.FS, version string, startTime time.Time, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	caps := Capabilities{Capture: recorder != nil, Decode: decodeCapable(pipeline)}

	// Health and metrics, no auth
	health := NewHealthHandler(version, startTime, caps, cfg.Provider, transcribe.Languages)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Authenticated pipeline routes
	handler := NewTranscribeHandler(pipeline, recorder, log)
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		handler.Routes(r)
	})

	// Embedded UI
	if webFS != nil {
		r.Handle("/*", http.FileServer(http.FS(webFS)))
	}

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// decodeCapable asks the pipeline whether ffmpeg was found at startup.
func decodeCapable(p Pipeline) bool {
	type decoder interface{ DecodeAvailable() bool }
	if d, ok := p.(decoder); ok {
		return d.DecodeAvailable()
	}
	return false
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
