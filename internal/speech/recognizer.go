// Package speech provides clients for remote speech-recognition services.
package speech

import (
	"context"
	"errors"
)

// Static errors for speech recognition.
var (
	// ErrUnclearAudio is returned when the service could not make out any speech.
	ErrUnclearAudio = errors.New("speech: audio could not be understood")
	// ErrServiceUnavailable is returned when the service cannot be reached or
	// answers with a failure status or an unreadable body.
	ErrServiceUnavailable = errors.New("speech: service unavailable")
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("speech: API key is required")
)

// Recognizer converts a speech recording into text.
type Recognizer interface {
	// Recognize transcribes the WAV file at wavPath. It returns ErrUnclearAudio
	// when no speech was recognized and ErrServiceUnavailable when the remote
	// service failed. Recognize never retries.
	Recognize(ctx context.Context, wavPath string) (string, error)
}
