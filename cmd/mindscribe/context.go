package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/maauso/mindscribe/internal/audio"
	"github.com/maauso/mindscribe/internal/bootstrap"
	"github.com/maauso/mindscribe/internal/config"
	"github.com/maauso/mindscribe/internal/transcription"
)

// pipeline is the part of the transcription service the commands use.
type pipeline interface {
	Run(ctx context.Context, in transcription.Input) (*transcription.Session, error)
	Segments(ctx context.Context, path string) ([]audio.Segment, error)
}

// commandContext builds the pipeline lazily so that --help and flag errors
// never touch configuration.
type commandContext struct {
	newPipeline func(ctx context.Context, logs io.Writer, needSpeech bool) (pipeline, error)
}

func newCommandContext() *commandContext {
	return &commandContext{newPipeline: loadPipeline}
}

// loadPipeline reads the environment and wires the transcription service.
// Logs go to logs so that stdout only carries command output.
func loadPipeline(ctx context.Context, logs io.Writer, needSpeech bool) (pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if needSpeech {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := cfg.NewLoggerTo(logs)
	slog.SetDefault(logger)

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize dependencies: %w", err)
	}
	return deps.Service, nil
}
