package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Static errors for media operations.
var (
	// ErrDecode is returned when a video container cannot be read or its audio
	// track cannot be extracted.
	ErrDecode = errors.New("media: decode failed")
	// ErrFormat is returned when an audio file uses a codec that cannot be decoded.
	ErrFormat = errors.New("media: unrecognized audio format")
	// ErrNoAudioTrack is returned when a media file has no audio stream.
	ErrNoAudioTrack = errors.New("media: no audio track")
	// ErrUnsupportedExtension is returned for files outside the extension allow-list.
	ErrUnsupportedExtension = errors.New("media: unsupported file extension")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrInvalidAudioParams is returned when the channel count or sample rate is not positive.
	ErrInvalidAudioParams = errors.New("invalid audio parameters: channels and sample rate must be positive")
)

// FFmpegProcessor implements Processor using the ffmpeg and ffprobe CLIs.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegProcessor(ffmpegPath, ffprobePath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// ExtractAudio decodes the audio track of the video at src into a PCM WAV file at dst.
// Channel layout and sample rate of the source are preserved.
func (p *FFmpegProcessor) ExtractAudio(ctx context.Context, src, dst string) error {
	if _, err := p.AudioCodec(ctx, src); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn", // Drop video
		"-sn", // Drop subtitles
		"-dn", // Drop data streams
		"-c:a", "pcm_s16le",
		dst,
	}
	if err := p.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// DecodeAudio converts the audio file at src into a 16-bit PCM WAV file at dst,
// downmixed to channels and resampled to sampleRate.
func (p *FFmpegProcessor) DecodeAudio(ctx context.Context, src, dst string, channels, sampleRate int) error {
	if channels <= 0 || sampleRate <= 0 {
		return fmt.Errorf("%w: channels=%d, sample_rate=%d", ErrInvalidAudioParams, channels, sampleRate)
	}
	if _, err := p.AudioCodec(ctx, src); err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le", // 16-bit PCM
		"-f", "wav",
		dst,
	}
	if err := p.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return nil
}

// AudioCodec returns the codec name of the first audio stream in path.
// It returns ErrNoAudioTrack when the file has no audio stream.
func (p *FFmpegProcessor) AudioCodec(ctx context.Context, path string) (string, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_name",
		"-of", "csv=p=0",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, strings.TrimSpace(stderr.String()))
	}

	for _, line := range strings.Split(stdout.String(), "\n") {
		if codec := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ",")); codec != "" {
			return codec, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoAudioTrack, path)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Verify interface implementation at compile time.
var _ Processor = (*FFmpegProcessor)(nil)
