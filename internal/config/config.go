package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	// Speech-to-text provider: "whisper" (self-hosted OpenAI-compatible
	// endpoint) or "openai" (cloud API).
	Provider       string        `env:"PROVIDER" envDefault:"whisper"`
	WhisperURL     string        `env:"WHISPER_URL" envDefault:"http://localhost:8000/v1/audio/transcriptions"`
	WhisperModel   string        `env:"WHISPER_MODEL" envDefault:"openai/whisper-small"`
	WhisperTimeout time.Duration `env:"WHISPER_TIMEOUT" envDefault:"120s"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"whisper-1"`
	Temperature    float64       `env:"TEMPERATURE" envDefault:"0.0"`

	// ScratchDir holds per-request temp audio. Empty means the OS temp dir.
	ScratchDir string `env:"SCRATCH_DIR"`

	// SpoolDir, when set, is watched for dropped audio files which are
	// transcribed automatically.
	SpoolDir string `env:"SPOOL_DIR"`

	// DisableCapture forces the live-recording path off even when an
	// input device is present (e.g. headless deployments where probing
	// the audio subsystem is undesirable).
	DisableCapture bool `env:"DISABLE_CAPTURE" envDefault:"false"`

	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	Provider string
	SpoolDir string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Provider != "" {
		cfg.Provider = overrides.Provider
	}
	if overrides.SpoolDir != "" {
		cfg.SpoolDir = overrides.SpoolDir
	}

	return cfg, nil
}
