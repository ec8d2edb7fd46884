package web

import (
	"bytes"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/ops"
	"github.com/gammasurf/gamma/internal/report"
	"github.com/gammasurf/gamma/internal/structure"
)

// Handlers contains HTTP route handlers for the viewer.
type Handlers struct {
	store    dataset.Store
	db       *sql.DB
	oracle   structure.Oracle
	reports  *report.Renderer
	renderer *Renderer
}

// HandleReport handles GET / with the live report page. The dataset is read
// on every request so edits show up without restarting.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		h.HandleStructures(w, r)
		return
	}

	ds, err := h.store.Load()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	rep := h.reports.Build(ds.Files, h.oracle)
	var buf bytes.Buffer
	if err := h.reports.Render(&buf, rep); err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleStructures handles GET /structures with an optional ?status= filter.
func (h *Handlers) HandleStructures(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Status(h.store, h.oracle, ops.StatusInput{
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleStructure handles GET /structures/{filename}.
func (h *Handlers) HandleStructure(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Get(h.store, h.oracle, ops.GetInput{Filename: r.PathValue("filename")})
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleInventory handles GET /inventory, a query over the SQLite index.
func (h *Handlers) HandleInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.InventoryInput{
		Status: q.Get("status"),
		Prefix: q.Get("prefix"),
		Limit:  parseIntParam(r, "limit", ops.DefaultInventoryLimit),
		Offset: parseIntParam(r, "offset", 0),
	}
	if p := q.Get("plane"); p != "" {
		key, err := structure.ParseHKLText(p)
		if err != nil {
			h.renderer.renderAPIError(w, r, errors.NewInvalidRequest(err.Error()))
			return
		}
		input.Plane = &key
	}

	result, err := ops.Inventory(h.db, input)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleHistory handles GET /history, the recorded report builds.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	result, err := ops.History(h.db, ops.HistoryInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultHistoryLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
