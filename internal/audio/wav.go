package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// Static errors for WAV decoding.
var (
	// ErrInvalidWAV is returned when the input is not a RIFF/WAVE file.
	ErrInvalidWAV = errors.New("audio: not a valid WAV file")
	// ErrUnsupportedBitDepth is returned for WAV files that are not 16-bit PCM.
	ErrUnsupportedBitDepth = errors.New("audio: only 16-bit PCM is supported")
)

// pcmFormat is the WAVE format tag for integer PCM.
const pcmFormat = 1

// ReadWAV decodes a 16-bit PCM WAV stream into a Waveform.
func ReadWAV(r io.ReadSeeker) (*Waveform, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if d.BitDepth != BitDepth {
		return nil, fmt.Errorf("%w: got %d-bit", ErrUnsupportedBitDepth, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode PCM: %w", err)
	}
	return FromBuffer(buf)
}

// ReadWAVFile opens path and decodes it with ReadWAV.
func ReadWAVFile(path string) (*Waveform, error) {
	f, err := os.Open(path) // #nosec G304 - path is produced by the pipeline
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadWAV(f)
}

// WriteWAV encodes the waveform as a 16-bit PCM WAV stream.
func WriteWAV(ws io.WriteSeeker, w *Waveform) error {
	enc := wav.NewEncoder(ws, w.SampleRate(), BitDepth, w.Channels(), pcmFormat)
	if err := enc.Write(w.Buffer()); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile creates path and writes the waveform to it.
func WriteWAVFile(path string, w *Waveform) error {
	f, err := os.Create(path) // #nosec G304 - path is produced by the pipeline
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := WriteWAV(f, w); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
