// Package storage provides temporary file handling for uploads and
// intermediate audio, plus an optional read-only S3 input source.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for the temporary files a transcription needs.
// Implementations own a single temp directory; every path they return lives
// inside it and is removed by the caller through CleanupTemp.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename; its extension
	// is preserved so the media type can still be told from the path.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// TempPath returns a fresh, unused path in the temp directory with the
	// given extension. The file is not created.
	TempPath(ext string) string

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// FetchFromS3 downloads the object at key into a temporary file and
	// returns its path. Returns ErrS3NotConfigured if S3 is not configured.
	FetchFromS3(ctx context.Context, key string) (path string, err error)
}
