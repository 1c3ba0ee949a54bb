// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrSpeechAPIKeyRequired is returned when SPEECH_API_KEY is not set.
	ErrSpeechAPIKeyRequired = errors.New("config: SPEECH_API_KEY is required")
	// ErrInvalid is returned when a variable is set to a value out of range.
	ErrInvalid = errors.New("config: invalid value")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port        int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`
	MaxUploadMB int `env:"MAX_UPLOAD_MB, default=200" json:"max_upload_mb" validate:"min=1"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/mindscribe" json:"temp_dir" validate:"required"`

	// Processing settings
	MinSilenceMs    int           `env:"MIN_SILENCE_MS, default=700" json:"min_silence_ms" validate:"min=1"`
	SilenceThreshDB float64       `env:"SILENCE_THRESH_DB, default=-40" json:"silence_thresh_db" validate:"lte=0"`
	ReleaseDelay    time.Duration `env:"RELEASE_DELAY, default=100ms" json:"release_delay" validate:"gte=0"`
	FFmpegPath      string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath     string        `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Speech recognition settings
	SpeechAPIKey   string        `env:"SPEECH_API_KEY" json:"-"` // Masked in JSON
	SpeechLanguage string        `env:"SPEECH_LANGUAGE, default=en-US" json:"speech_language" validate:"required"`
	SpeechBaseURL  string        `env:"SPEECH_BASE_URL, default=https://www.google.com/speech-api/v2" json:"speech_base_url" validate:"url"`
	SpeechTimeout  time.Duration `env:"SPEECH_TIMEOUT, default=60s" json:"speech_timeout" validate:"gt=0"`

	// Optional S3 input source
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" validate:"oneof=debug info warn warning error"`
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is loaded first when present; it
// never overrides variables that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return cfg, nil
}

// Validate checks that the configuration needed for transcription is present.
func (c *Config) Validate() error {
	if c.SpeechAPIKey == "" {
		return ErrSpeechAPIKeyRequired
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a structured logger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, MaxUploadMB: %d, MinSilenceMs: %d, SilenceThreshDB: %g, SpeechLanguage: %s, SpeechBaseURL: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.MaxUploadMB,
		c.MinSilenceMs,
		c.SilenceThreshDB,
		c.SpeechLanguage,
		c.SpeechBaseURL,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
