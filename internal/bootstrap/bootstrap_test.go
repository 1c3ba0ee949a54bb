package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mindscribe/internal/config"
	"github.com/maauso/mindscribe/internal/storage"
	"github.com/maauso/mindscribe/internal/transcription"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TempDir:         t.TempDir(),
		MinSilenceMs:    700,
		SilenceThreshDB: -40,
		ReleaseDelay:    100 * time.Millisecond,
		SpeechLanguage:  "en-US",
		SpeechBaseURL:   "http://127.0.0.1:1",
		SpeechTimeout:   time.Second,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewDependencies_Local(t *testing.T) {
	cfg := testConfig(t)
	cfg.SpeechAPIKey = "key"

	deps, err := NewDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	require.NotNil(t, deps.Service)
	local, ok := deps.Storage.(*storage.LocalStorage)
	require.True(t, ok)
	assert.Equal(t, cfg.TempDir, local.TempDir())
}

func TestNewDependencies_S3(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "bucket"
	cfg.S3Region = "us-east-1"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.AWSAccessKeyID = "access"
	cfg.AWSSecretAccessKey = "secret"

	deps, err := NewDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	_, ok := deps.Storage.(*storage.S3Storage)
	assert.True(t, ok)
}

func TestNewDependencies_WithoutSpeechKey(t *testing.T) {
	cfg := testConfig(t)

	deps, err := NewDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	sess, err := deps.Service.Run(context.Background(), transcription.Input{Path: "talk.mp3"})
	assert.ErrorIs(t, err, transcription.ErrNoRecognizer)
	assert.NotNil(t, sess)
}
