package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/mindscribe/internal/media"
	"github.com/maauso/mindscribe/internal/storage"
	"github.com/maauso/mindscribe/internal/transcription"
)

const (
	// DefaultMaxUploadBytes is the upload size limit used when none is configured.
	DefaultMaxUploadBytes int64 = 200 << 20
	// multipartMemory is how much of a multipart body is kept in memory
	// before spilling to disk.
	multipartMemory = 32 << 20
	// SessionIDHeader carries the id of the transcription session a request ran.
	SessionIDHeader = "X-Session-ID"
)

// Transcriber runs the transcription pipeline for one persisted upload.
type Transcriber interface {
	Run(ctx context.Context, in transcription.Input) (*transcription.Session, error)
}

// Handlers contains the HTTP handlers for the API and the upload page.
type Handlers struct {
	service        Transcriber
	storage        storage.Storage
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes sets the request body size limit for uploads.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Transcriber, store storage.Storage, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		storage:        store,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateTranscription handles POST /api/transcriptions requests.
//
// The media is sent as a multipart "file" field or named by a "source_key"
// form value. With ?format=text the transcript is returned as a
// transcript.txt attachment instead of JSON.
func (h *Handlers) CreateTranscription(w http.ResponseWriter, r *http.Request) {
	sess, req, apiErr := h.transcribe(w, r)
	if apiErr != nil {
		writeError(w, apiErr.status, apiErr.message, apiErr.code)
		return
	}

	if req.Format == FormatText {
		writeTranscript(w, sess.Transcript.String())
		return
	}
	writeJSON(w, http.StatusOK, newTranscriptionResponse(sess))
}

// apiError is a request failure mapped to an HTTP status and error code.
type apiError struct {
	status  int
	code    string
	message string
	session *transcription.Session
}

// transcribe validates the request, persists the media and runs the pipeline.
// The persisted upload is removed before returning.
func (h *Handlers) transcribe(w http.ResponseWriter, r *http.Request) (*transcription.Session, TranscribeRequest, *apiError) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req TranscribeRequest
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, req, &apiError{
				status:  http.StatusRequestEntityTooLarge,
				code:    "FILE_TOO_LARGE",
				message: fmt.Sprintf("upload exceeds %d MB", h.maxUploadBytes>>20),
			}
		}
		h.logger.Warn("failed to parse multipart form", slog.String("error", err.Error()))
		return nil, req, &apiError{status: http.StatusBadRequest, code: "INVALID_FORM", message: "could not parse form body"}
	}

	var header *multipart.FileHeader
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			header = files[0]
			req.FileName = header.Filename
		}
	}
	req.SourceKey = r.FormValue("source_key")
	req.Format = r.URL.Query().Get("format")
	if req.FileName != "" {
		req.Extension = media.Extension(req.FileName)
	} else {
		req.Extension = media.Extension(req.SourceKey)
	}

	if apiErr := h.validate(req); apiErr != nil {
		return nil, req, apiErr
	}

	path, name, apiErr := h.acquire(r.Context(), req, header)
	if apiErr != nil {
		return nil, req, apiErr
	}
	defer func() {
		if err := h.storage.CleanupTemp(context.WithoutCancel(r.Context()), []string{path}); err != nil {
			h.logger.Warn("failed to remove upload", slog.String("path", path), slog.String("error", err.Error()))
		}
	}()

	sess, err := h.service.Run(r.Context(), transcription.Input{Path: path, FileName: name})
	if sess != nil {
		w.Header().Set(SessionIDHeader, sess.ID)
	}
	if err != nil {
		apiErr := classify(err)
		apiErr.session = sess
		h.logger.Error("transcription failed",
			slog.String("file", name),
			slog.String("code", apiErr.code),
			slog.String("error", err.Error()),
		)
		return sess, req, apiErr
	}

	return sess, req, nil
}

// validate checks req and maps the first failure to an error code.
func (h *Handlers) validate(req TranscribeRequest) *apiError {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &apiError{status: http.StatusBadRequest, code: "VALIDATION_ERROR", message: err.Error()}
	}
	h.logger.Warn("request validation failed", slog.String("error", err.Error()))

	for _, fe := range verrs {
		if fe.Tag() == "required_without" {
			return &apiError{status: http.StatusBadRequest, code: "MISSING_FILE", message: "a file or source_key is required"}
		}
	}
	for _, fe := range verrs {
		if fe.Field() == "Extension" {
			return &apiError{
				status:  http.StatusBadRequest,
				code:    "UNSUPPORTED_FORMAT",
				message: fmt.Sprintf("unsupported file type %q, expected one of %v", req.Extension, media.SupportedExtensions()),
			}
		}
	}
	return &apiError{status: http.StatusBadRequest, code: "VALIDATION_ERROR", message: err.Error()}
}

// acquire persists the request media to a temp file and returns its path and
// the name used to decide how it is decoded.
func (h *Handlers) acquire(ctx context.Context, req TranscribeRequest, header *multipart.FileHeader) (string, string, *apiError) {
	if header != nil {
		f, err := header.Open()
		if err != nil {
			return "", "", &apiError{status: http.StatusBadRequest, code: "INVALID_FORM", message: "could not read uploaded file"}
		}
		defer func() { _ = f.Close() }()

		path, err := h.storage.SaveTemp(ctx, req.FileName, f)
		if err != nil {
			h.logger.Error("failed to save upload", slog.String("error", err.Error()))
			return "", "", &apiError{status: http.StatusInternalServerError, code: "UPLOAD_FAILED", message: "failed to store upload"}
		}
		return path, req.FileName, nil
	}

	path, err := h.storage.FetchFromS3(ctx, req.SourceKey)
	if err != nil {
		if errors.Is(err, storage.ErrS3NotConfigured) {
			return "", "", &apiError{status: http.StatusBadRequest, code: "S3_NOT_CONFIGURED", message: "source_key requires S3 to be configured"}
		}
		h.logger.Error("failed to fetch source object",
			slog.String("key", req.SourceKey),
			slog.String("error", err.Error()),
		)
		return "", "", &apiError{status: http.StatusBadGateway, code: "FETCH_FAILED", message: "failed to fetch source object"}
	}
	return path, req.SourceKey, nil
}

// classify maps a pipeline error to an HTTP status and error code.
func classify(err error) *apiError {
	switch {
	case errors.Is(err, media.ErrUnsupportedExtension):
		return &apiError{status: http.StatusBadRequest, code: "UNSUPPORTED_FORMAT", message: err.Error()}
	case errors.Is(err, media.ErrDecode):
		return &apiError{status: http.StatusUnprocessableEntity, code: "DECODE_ERROR", message: "could not extract audio from the uploaded file"}
	case errors.Is(err, media.ErrFormat):
		return &apiError{status: http.StatusUnprocessableEntity, code: "FORMAT_ERROR", message: "could not decode the uploaded audio"}
	default:
		return &apiError{status: http.StatusInternalServerError, code: "TRANSCRIPTION_FAILED", message: "transcription failed"}
	}
}

// writeTranscript writes the transcript as a downloadable text file.
func writeTranscript(w http.ResponseWriter, transcript string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transcript.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(transcript))
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
