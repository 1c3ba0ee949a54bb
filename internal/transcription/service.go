package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/mindscribe/internal/audio"
	"github.com/maauso/mindscribe/internal/media"
	"github.com/maauso/mindscribe/internal/speech"
	"github.com/maauso/mindscribe/internal/storage"
)

const (
	// SampleRate is the sample rate of the normalized waveform.
	SampleRate = 16000
	// HeadroomDB is the headroom left below full scale by peak normalization.
	HeadroomDB = 0.1
	// DefaultReleaseDelay is the pause before a chunk temp file is removed.
	DefaultReleaseDelay = 100 * time.Millisecond
)

// ErrNoRecognizer is returned by Run when the service was built without a
// speech recognizer. Segments still works in that case.
var ErrNoRecognizer = errors.New("transcription: no speech recognizer configured")

// User-facing messages.
const (
	msgPreparing   = "Extracting and preprocessing audio..."
	msgReady       = "%d audio chunks ready for transcription."
	msgNoSpeech    = "Could not detect speech chunks. Try a different file or speak louder."
	msgChunk       = "Transcribing chunk %d of %d..."
	msgUnavailable = "API unavailable or check your internet connection"
	msgDecode      = "Could not read the audio track of this file."
	msgFormat      = "Could not decode this audio file."
	msgUnsupported = "Unsupported file type."
	msgFailed      = "Transcription failed."
)

// Input identifies the media file of a run.
type Input struct {
	// Path is where the uploaded file was persisted.
	Path string
	// FileName is the original file name. Its extension decides how the file
	// is decoded; when empty, Path is used instead.
	FileName string
}

// Service runs the transcription pipeline: extract, normalize, segment,
// transcribe and assemble the transcript.
//
// Chunks are processed strictly in order and one at a time. The first
// recognizer outage stops the run and keeps the fragments collected so far.
type Service struct {
	processor    media.Processor
	splitter     audio.Splitter
	recognizer   speech.Recognizer
	storage      storage.Storage
	logger       *slog.Logger
	splitOpts    audio.SplitOpts
	releaseDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithSplitOpts overrides the silence splitting parameters.
func WithSplitOpts(opts audio.SplitOpts) Option {
	return func(s *Service) {
		s.splitOpts = opts
	}
}

// WithReleaseDelay sets the pause before a chunk temp file is removed.
func WithReleaseDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.releaseDelay = d
		}
	}
}

// NewService creates a new Service.
func NewService(
	processor media.Processor,
	splitter audio.Splitter,
	recognizer speech.Recognizer,
	store storage.Storage,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		processor:    processor,
		splitter:     splitter,
		recognizer:   recognizer,
		storage:      store,
		logger:       logger,
		splitOpts:    audio.DefaultSplitOpts(),
		releaseDelay: DefaultReleaseDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run transcribes the media file described by in.
//
// The returned session is never nil. A recognizer outage is not an error: it
// marks the session aborted and keeps the earlier fragments. Decode, format
// and I/O failures are returned together with the session built so far.
func (s *Service) Run(ctx context.Context, in Input) (*Session, error) {
	name := in.FileName
	if name == "" {
		name = in.Path
	}
	sess := NewSession(name)
	logger := s.logger.With(slog.String("session_id", sess.ID))

	if s.recognizer == nil {
		sess.addMessage(LevelError, msgFailed)
		return sess, ErrNoRecognizer
	}

	logger.Info("transcription started", slog.String("file", name))
	sess.addMessage(LevelInfo, msgPreparing)

	segments, err := s.segments(ctx, in.Path, name, logger)
	if err != nil {
		sess.addMessage(LevelError, failureMessage(err))
		logger.Error("preprocessing failed", slog.String("error", err.Error()))
		return sess, err
	}

	sess.SetSegments(segments)
	if len(segments) == 0 {
		sess.addMessage(LevelWarning, msgNoSpeech)
		logger.Warn("no speech detected")
		return sess, nil
	}
	sess.addMessage(LevelSuccess, fmt.Sprintf(msgReady, len(segments)))
	logger.Info("audio segmented", slog.Int("chunks", len(segments)))

	if err := s.transcribe(ctx, sess, segments, logger); err != nil {
		sess.addMessage(LevelError, msgFailed)
		logger.Error("transcription failed", slog.String("error", err.Error()))
		return sess, err
	}

	logger.Info("transcription finished",
		slog.Int("fragments", sess.Transcript.Len()),
		slog.Bool("aborted", sess.Aborted),
	)
	return sess, nil
}

// Segments runs extraction, normalization and silence splitting on the file at
// path and returns the speech segments without transcribing them.
func (s *Service) Segments(ctx context.Context, path string) ([]audio.Segment, error) {
	return s.segments(ctx, path, path, s.logger)
}

func (s *Service) segments(ctx context.Context, path, name string, logger *slog.Logger) ([]audio.Segment, error) {
	if !media.IsSupported(name) {
		return nil, fmt.Errorf("%w: %q", media.ErrUnsupportedExtension, media.Extension(name))
	}

	wavPath := path
	if media.IsVideo(name) {
		wavPath = s.storage.TempPath("wav")
		if err := s.processor.ExtractAudio(ctx, path, wavPath); err != nil {
			s.cleanup(ctx, logger, wavPath)
			return nil, fmt.Errorf("extract audio: %w", err)
		}
		defer s.cleanup(ctx, logger, wavPath)
		logger.Debug("audio extracted", slog.String("path", wavPath))
	}

	w, err := s.normalize(ctx, wavPath, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("audio normalized",
		slog.Duration("duration", w.Duration()),
		slog.Float64("dbfs", w.DBFS()),
	)

	segments, err := s.splitter.Split(ctx, w, s.splitOpts)
	if err != nil {
		return nil, fmt.Errorf("split audio: %w", err)
	}
	return segments, nil
}

// normalize decodes src to mono 16 kHz and peak-normalizes it in memory.
func (s *Service) normalize(ctx context.Context, src string, logger *slog.Logger) (*audio.Waveform, error) {
	decoded := s.storage.TempPath("wav")
	defer s.cleanup(ctx, logger, decoded)

	if err := s.processor.DecodeAudio(ctx, src, decoded, 1, SampleRate); err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}

	w, err := audio.ReadWAVFile(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", media.ErrFormat, err)
	}
	if w.SampleRate() != SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", media.ErrFormat, w.SampleRate(), SampleRate)
	}

	return w.Mono().Normalize(HeadroomDB), nil
}

// transcribe submits every segment in order and records the outcome on sess.
func (s *Service) transcribe(ctx context.Context, sess *Session, segments []audio.Segment, logger *slog.Logger) error {
	total := len(segments)
	for i, seg := range segments {
		chunk := &sess.Chunks[i]
		sess.addMessage(LevelInfo, fmt.Sprintf(msgChunk, i+1, total))

		if err := chunk.TransitionTo(ChunkTranscribing); err != nil {
			return fmt.Errorf("chunk %d: %w", seg.Index, err)
		}

		text, err := s.transcribeChunk(ctx, seg, logger)
		switch {
		case err == nil:
			if err := chunk.TransitionTo(ChunkTranscribed); err != nil {
				return fmt.Errorf("chunk %d: %w", seg.Index, err)
			}
			sess.Transcript.Add(seg.Index, text)

		case errors.Is(err, speech.ErrUnclearAudio):
			if err := chunk.TransitionTo(ChunkUnclear); err != nil {
				return fmt.Errorf("chunk %d: %w", seg.Index, err)
			}
			sess.Transcript.AddUnclear(seg.Index)
			logger.Info("chunk unclear", slog.Int("chunk", seg.Index))

		case errors.Is(err, speech.ErrServiceUnavailable):
			chunk.Error = err.Error()
			if err := chunk.TransitionTo(ChunkAborted); err != nil {
				return fmt.Errorf("chunk %d: %w", seg.Index, err)
			}
			sess.Aborted = true
			sess.addMessage(LevelError, msgUnavailable)
			logger.Warn("recognizer unavailable, stopping",
				slog.Int("chunk", seg.Index),
				slog.Int("remaining", total-i-1),
				slog.String("error", err.Error()),
			)
			return nil

		default:
			chunk.Error = err.Error()
			_ = chunk.TransitionTo(ChunkAborted)
			return fmt.Errorf("chunk %d: %w", seg.Index, err)
		}
	}
	return nil
}

// transcribeChunk writes seg to its own temp file, recognizes it and releases
// the file before returning.
func (s *Service) transcribeChunk(ctx context.Context, seg audio.Segment, logger *slog.Logger) (string, error) {
	path := s.storage.TempPath("wav")
	defer s.release(ctx, logger, path)

	if err := audio.WriteWAVFile(path, seg.Wave); err != nil {
		return "", fmt.Errorf("write chunk: %w", err)
	}

	logger.Debug("recognizing chunk",
		slog.Int("chunk", seg.Index),
		slog.Int("start_ms", seg.StartMs),
		slog.Int("end_ms", seg.EndMs),
	)
	return s.recognizer.Recognize(ctx, path)
}

// release waits for the release delay and then removes path. Failures are
// logged and otherwise ignored.
func (s *Service) release(ctx context.Context, logger *slog.Logger, path string) {
	if s.releaseDelay > 0 {
		t := time.NewTimer(s.releaseDelay)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	s.cleanup(ctx, logger, path)
}

func (s *Service) cleanup(ctx context.Context, logger *slog.Logger, paths ...string) {
	if err := s.storage.CleanupTemp(context.WithoutCancel(ctx), paths); err != nil {
		logger.Warn("failed to remove temp file", slog.String("error", err.Error()))
	}
}

// failureMessage maps a preprocessing error to the message shown to the user.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrUnsupportedExtension):
		return msgUnsupported
	case errors.Is(err, media.ErrDecode):
		return msgDecode
	case errors.Is(err, media.ErrFormat):
		return msgFormat
	default:
		return msgFailed
	}
}
