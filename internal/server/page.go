package server

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maauso/mindscribe/internal/media"
	"github.com/maauso/mindscribe/internal/transcription"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// pageData is the view model of the upload page.
type pageData struct {
	Accept      string
	Messages    []transcription.Message
	Transcript  string
	DownloadURL template.URL
}

func newPageData(sess *transcription.Session) pageData {
	exts := media.SupportedExtensions()
	accept := make([]string, len(exts))
	for i, e := range exts {
		accept[i] = "." + e
	}

	data := pageData{Accept: strings.Join(accept, ",")}
	if sess == nil {
		return data
	}

	data.Messages = sess.Messages
	data.Transcript = sess.Transcript.String()
	if data.Transcript != "" {
		data.DownloadURL = downloadURL(data.Transcript)
	}
	return data
}

// downloadURL embeds the transcript in a data URI so the download needs no
// server-side state.
func downloadURL(transcript string) template.URL {
	// #nosec G203 - the URI is built from a fixed prefix and base64 output
	return template.URL("data:text/plain;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(transcript)))
}

// Index handles GET / requests.
func (h *Handlers) Index(w http.ResponseWriter, _ *http.Request) {
	h.renderPage(w, http.StatusOK, newPageData(nil))
}

// Upload handles POST / requests from the upload form and re-renders the page
// with the outcome.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	sess, _, apiErr := h.transcribe(w, r)
	if apiErr != nil {
		data := newPageData(apiErr.session)
		if apiErr.session == nil {
			data.Messages = []transcription.Message{{Level: transcription.LevelError, Text: apiErr.message}}
		}
		h.renderPage(w, apiErr.status, data)
		return
	}
	h.renderPage(w, http.StatusOK, newPageData(sess))
}

func (h *Handlers) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render page", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
