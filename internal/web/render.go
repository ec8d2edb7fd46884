package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gammasurf/gamma/internal/errors"
)

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	Title      string
	Version    string
	StatusCode int
	Message    string
}

// Renderer renders the viewer's own pages and error responses.
type Renderer struct {
	errorPage *template.Template
	version   string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *slog.Logger) *Renderer {
	return &Renderer{
		errorPage: template.Must(template.New("error.html").ParseFS(templateFS, "error.html")),
		version:   version,
		logger:    logger,
	}
}

// writeHTML writes a rendered page with the given status.
func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	r.writeError(w, req, err, wantsJSON(req))
}

// renderAPIError always answers with a JSON error body.
func (r *Renderer) renderAPIError(w http.ResponseWriter, req *http.Request, err error) {
	r.writeError(w, req, err, true)
}

func (r *Renderer) writeError(w http.ResponseWriter, req *http.Request, err error, asJSON bool) {
	gErr := errors.As(err)
	if gErr.Status >= 500 {
		r.logger.Error("request error", "request_id", RequestIDFromContext(req.Context()), "code", gErr.Code, "error", err)
	}

	if asJSON {
		renderJSON(w, gErr.Status, map[string]any{
			"error": map[string]any{
				"code":    string(gErr.Code),
				"message": gErr.Message,
				"status":  gErr.Status,
			},
		})
		return
	}

	var buf bytes.Buffer
	if err := r.errorPage.Execute(&buf, ErrorPageData{
		Title:      fmt.Sprintf("Error %d", gErr.Status),
		Version:    r.version,
		StatusCode: gErr.Status,
		Message:    gErr.Message,
	}); err != nil {
		r.logger.Error("template execution error", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, gErr.Status, buf.Bytes())
}

// wantsJSON reports whether the client asked for JSON.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}
