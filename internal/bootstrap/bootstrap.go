// Package bootstrap provides dependency initialization for MindScribe.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/mindscribe/internal/audio"
	"github.com/maauso/mindscribe/internal/config"
	"github.com/maauso/mindscribe/internal/media"
	"github.com/maauso/mindscribe/internal/speech"
	"github.com/maauso/mindscribe/internal/storage"
	"github.com/maauso/mindscribe/internal/transcription"
)

// Dependencies holds all initialized dependencies for the HTTP server and CLI.
type Dependencies struct {
	Service *transcription.Service
	Storage storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
//
// The speech recognizer is only built when SPEECH_API_KEY is set. Without it
// the service can still segment files but Run fails with
// transcription.ErrNoRecognizer.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize speech recognizer
	var recognizer speech.Recognizer
	if cfg.SpeechAPIKey != "" {
		client, err := speech.NewGoogleClient(
			speech.WithAPIKey(cfg.SpeechAPIKey),
			speech.WithLanguage(cfg.SpeechLanguage),
			speech.WithBaseURL(cfg.SpeechBaseURL),
			speech.WithTimeout(cfg.SpeechTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("create speech client: %w", err)
		}
		recognizer = client
	} else {
		logger.Debug("speech recognizer not configured")
	}

	// Initialize media processor and silence splitter
	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)
	splitter := audio.NewSilenceSplitter()

	// Configure silence split options
	splitOpts := audio.DefaultSplitOpts()
	splitOpts.MinSilenceMs = cfg.MinSilenceMs
	splitOpts.SilenceThreshDB = cfg.SilenceThreshDB

	svc := transcription.NewService(
		processor,
		splitter,
		recognizer,
		store,
		logger,
		transcription.WithSplitOpts(splitOpts),
		transcription.WithReleaseDelay(cfg.ReleaseDelay),
	)

	return &Dependencies{
		Service: svc,
		Storage: store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 input source configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
