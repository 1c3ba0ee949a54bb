// Package media provides audio extraction and decoding for uploaded media files.
package media

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
)

// AudioExtensions lists the accepted audio-only containers, without the dot.
var AudioExtensions = []string{"mp3", "wav", "ogg"}

// VideoExtensions lists the accepted video containers, without the dot.
var VideoExtensions = []string{"mp4", "mkv", "mov"}

// Processor defines the interface for the media operations the pipeline needs.
// Implementations should use ffmpeg or similar tools for media manipulation.
type Processor interface {
	// ExtractAudio decodes the audio track of the video at src into a PCM WAV
	// file at dst. It returns an error wrapping ErrDecode when the container
	// is unreadable or has no audio track.
	ExtractAudio(ctx context.Context, src, dst string) error

	// DecodeAudio converts any supported audio file at src into a 16-bit PCM
	// WAV file at dst with the given channel count and sample rate. It returns
	// an error wrapping ErrFormat when the audio cannot be decoded.
	DecodeAudio(ctx context.Context, src, dst string, channels, sampleRate int) error
}

// Extension returns the lower-case extension of path without the dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// IsVideo reports whether path names one of the accepted video containers.
func IsVideo(path string) bool {
	return slices.Contains(VideoExtensions, Extension(path))
}

// IsSupported reports whether path has an accepted audio or video extension.
func IsSupported(path string) bool {
	ext := Extension(path)
	return slices.Contains(AudioExtensions, ext) || slices.Contains(VideoExtensions, ext)
}

// SupportedExtensions returns every accepted extension, audio first.
func SupportedExtensions() []string {
	return slices.Concat(AudioExtensions, VideoExtensions)
}
