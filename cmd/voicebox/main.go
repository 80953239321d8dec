package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/voicebox"
	"github.com/snarg/voicebox/internal/api"
	"github.com/snarg/voicebox/internal/audio"
	"github.com/snarg/voicebox/internal/capture"
	"github.com/snarg/voicebox/internal/config"
	"github.com/snarg/voicebox/internal/spool"
	"github.com/snarg/voicebox/internal/storage"
	"github.com/snarg/voicebox/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&overrides.Provider, "provider", "", "speech-to-text provider (whisper, openai)")
	flag.StringVar(&overrides.SpoolDir, "spool-dir", "", "directory watched for dropped audio files")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("provider", cfg.Provider).Msg("voicebox starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Capability probes happen once, here. Handlers and the UI consult
	// the results instead of re-probing per request.
	var recorder api.Recorder
	if cfg.DisableCapture {
		log.Info().Msg("live capture disabled by config")
	} else {
		device, err := capture.Probe(log)
		if err != nil {
			log.Warn().Err(err).Msg("no audio input device; live capture disabled")
		} else {
			defer device.Close()
			recorder = device
		}
	}

	var decoder audio.Decoder
	if audio.CheckFFmpeg(cfg.FFmpegPath) {
		decoder = audio.NewFFmpegDecoder(cfg.FFmpegPath)
		log.Info().Str("path", cfg.FFmpegPath).Msg("ffmpeg found; compressed uploads enabled")
	} else {
		log.Warn().Str("path", cfg.FFmpegPath).Msg("ffmpeg not found; only WAV uploads will be accepted")
	}

	// Scratch space for per-request normalized audio
	scratch, err := storage.NewScratch(cfg.ScratchDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare scratch directory")
	}

	// Transcription service with a lazily constructed backend
	service := transcribe.NewService(transcribe.Options{
		Factory:     providerFactory(cfg),
		Decoder:     decoder,
		Scratch:     scratch,
		Temperature: cfg.Temperature,
		Log:         log,
	})

	// Spool watcher (optional)
	if cfg.SpoolDir != "" {
		watcher := spool.New(service, cfg.SpoolDir, "", log)
		if err := watcher.Start(ctx); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.SpoolDir).Msg("failed to start spool watcher")
		}
		defer watcher.Stop()
	}

	// HTTP server with the embedded UI
	webFS, err := fs.Sub(voicebox.WebFiles, "web")
	if err != nil {
		log.Fatal().Err(err).Msg("embedded web assets missing")
	}
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, service, recorder, webFS, version, startTime, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("voicebox stopped")
}

// providerFactory picks the backend named in config. The factory runs at
// most once, on the first transcription request.
func providerFactory(cfg *config.Config) transcribe.ProviderFactory {
	switch cfg.Provider {
	case "openai":
		return func() (transcribe.Provider, error) {
			if cfg.OpenAIAPIKey == "" {
				return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", transcribe.ErrBackendUnavailable)
			}
			return transcribe.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.WhisperTimeout), nil
		}
	default:
		return func() (transcribe.Provider, error) {
			return transcribe.NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperTimeout), nil
		}
	}
}
