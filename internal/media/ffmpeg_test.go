package media

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mindscribe/internal/audio"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}
}

// createTestAudio creates a stereo 44.1 kHz sine tone using ffmpeg.
func createTestAudio(t *testing.T, path string) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "sine=frequency=440:sample_rate=44100:duration=1",
		"-ac", "2",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test audio: %v\noutput: %s", err, output)
	}
}

// createTestVideo creates a short video, optionally with a sine audio track.
func createTestVideo(t *testing.T, path string, withAudio bool) {
	t.Helper()

	args := []string{"-y", "-f", "lavfi", "-i", "color=c=blue:s=64x64:d=1"}
	if withAudio {
		args = append(args, "-f", "lavfi", "-i", "sine=frequency=300:sample_rate=22050:duration=1", "-c:a", "aac", "-shortest")
	}
	args = append(args, "-c:v", "libx264", "-preset", "ultrafast", path)

	cmd := exec.Command("ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegProcessor(t *testing.T) {
	t.Run("default paths", func(t *testing.T) {
		p := NewFFmpegProcessor("", "")
		assert.Equal(t, "ffmpeg", p.ffmpegPath)
		assert.Equal(t, "ffprobe", p.ffprobePath)
	})

	t.Run("custom paths", func(t *testing.T) {
		p := NewFFmpegProcessor("/usr/local/bin/ffmpeg", "/usr/local/bin/ffprobe")
		assert.Equal(t, "/usr/local/bin/ffmpeg", p.ffmpegPath)
		assert.Equal(t, "/usr/local/bin/ffprobe", p.ffprobePath)
	})
}

func TestExtension(t *testing.T) {
	tests := []struct {
		path      string
		ext       string
		video     bool
		supported bool
	}{
		{"talk.mp3", "mp3", false, true},
		{"TALK.WAV", "wav", false, true},
		{"/tmp/a/b.ogg", "ogg", false, true},
		{"clip.mp4", "mp4", true, true},
		{"clip.MKV", "mkv", true, true},
		{"clip.mov", "mov", true, true},
		{"notes.txt", "txt", false, false},
		{"archive.tar.gz", "gz", false, false},
		{"noext", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ext, Extension(tt.path))
			assert.Equal(t, tt.video, IsVideo(tt.path))
			assert.Equal(t, tt.supported, IsSupported(tt.path))
		})
	}
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{"mp3", "wav", "ogg", "mp4", "mkv", "mov"}, SupportedExtensions())
}

func TestFFmpegError(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &FFmpegError{Args: []string{"-i", "x"}, Stderr: "boom", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "-i")
}

func TestDecodeAudio_InvalidParams(t *testing.T) {
	p := NewFFmpegProcessor("", "")

	err := p.DecodeAudio(context.Background(), "in.mp3", "out.wav", 0, 16000)
	assert.ErrorIs(t, err, ErrInvalidAudioParams)
}

func TestDecodeAudio(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "tone.ogg")
	dst := filepath.Join(tmpDir, "tone.wav")
	createTestAudio(t, src)

	p := NewFFmpegProcessor("", "")
	require.NoError(t, p.DecodeAudio(context.Background(), src, dst, 1, 16000))

	w, err := audio.ReadWAVFile(dst)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Channels())
	assert.Equal(t, 16000, w.SampleRate())
	assert.InDelta(t, 1000, w.Len(), 50)
}

func TestDecodeAudio_Unreadable(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "garbage.mp3")
	require.NoError(t, os.WriteFile(src, []byte("this is not audio"), 0o600))

	p := NewFFmpegProcessor("", "")
	err := p.DecodeAudio(context.Background(), src, filepath.Join(tmpDir, "out.wav"), 1, 16000)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestExtractAudio(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "clip.mp4")
	dst := filepath.Join(tmpDir, "clip.wav")
	createTestVideo(t, src, true)

	p := NewFFmpegProcessor("", "")
	require.NoError(t, p.ExtractAudio(context.Background(), src, dst))

	w, err := audio.ReadWAVFile(dst)
	require.NoError(t, err)
	assert.Equal(t, 22050, w.SampleRate(), "source sample rate is preserved")
	assert.Positive(t, w.FrameCount())
}

func TestExtractAudio_NoAudioTrack(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "silent.mp4")
	createTestVideo(t, src, false)

	p := NewFFmpegProcessor("", "")
	err := p.ExtractAudio(context.Background(), src, filepath.Join(tmpDir, "out.wav"))
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, ErrNoAudioTrack)
}

func TestExtractAudio_Cancelled(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "clip.mp4")
	createTestVideo(t, src, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewFFmpegProcessor("", "")
	err := p.ExtractAudio(ctx, src, filepath.Join(tmpDir, "out.wav"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAudioCodec(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "tone.wav")
	createTestAudio(t, src)

	codec, err := NewFFmpegProcessor("", "").AudioCodec(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "pcm_s16le", codec)
}
