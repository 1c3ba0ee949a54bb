// Package server provides the HTTP server for MindScribe.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "github.com/maauso/mindscribe/internal/transcription"

// Transcription response formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// TranscribeRequest is the validated form of an upload request. Exactly how
// the media arrives (multipart file or object key) is decided by which of
// FileName and SourceKey is set.
type TranscribeRequest struct {
	// FileName is the name of the uploaded file, if any.
	FileName string `validate:"required_without=SourceKey"`
	// SourceKey is an object key in the configured S3 bucket.
	SourceKey string `validate:"required_without=FileName"`
	// Extension is the lower-case extension of FileName or SourceKey.
	Extension string `validate:"oneof=mp3 wav ogg mp4 mkv mov"`
	// Format selects the API response format.
	Format string `validate:"omitempty,oneof=json text"`
}

// TranscriptionResponse is the HTTP response for a finished transcription.
type TranscriptionResponse struct {
	// ID is the unique identifier of the session.
	ID string `json:"id"`
	// FileName is the name of the transcribed file.
	FileName string `json:"file_name"`
	// Messages are the progress messages raised while transcribing.
	Messages []transcription.Message `json:"messages"`
	// Chunks describes every detected speech segment and its outcome.
	Chunks []ChunkResponse `json:"chunks"`
	// Transcript is the rendered transcript.
	Transcript string `json:"transcript"`
	// Aborted is true when the speech service became unavailable mid-run.
	Aborted bool `json:"aborted"`
}

// ChunkResponse describes one speech segment.
type ChunkResponse struct {
	Index   int    `json:"index"`
	StartMs int    `json:"start_ms"`
	EndMs   int    `json:"end_ms"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// newTranscriptionResponse maps a session to its HTTP representation.
func newTranscriptionResponse(sess *transcription.Session) TranscriptionResponse {
	chunks := make([]ChunkResponse, len(sess.Chunks))
	for i, c := range sess.Chunks {
		chunks[i] = ChunkResponse{
			Index:   c.Index,
			StartMs: c.StartMs,
			EndMs:   c.EndMs,
			State:   string(c.State),
			Error:   c.Error,
		}
	}
	messages := sess.Messages
	if messages == nil {
		messages = []transcription.Message{}
	}
	return TranscriptionResponse{
		ID:         sess.ID,
		FileName:   sess.FileName,
		Messages:   messages,
		Chunks:     chunks,
		Transcript: sess.Transcript.String(),
		Aborted:    sess.Aborted,
	}
}
