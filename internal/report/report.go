// Package report renders the dataset status page: one card per structure with
// its availability label, descriptor, plane image gallery and per-plane details.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/gammasurf/gamma/internal/assets"
	"github.com/gammasurf/gamma/internal/structure"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options selects what the page shows.
type Options struct {
	Title    string
	Subtitle string

	// IntroMarkdown is rendered with goldmark above the structure list.
	IntroMarkdown string

	ShowGallery       bool
	ShowPlanes        bool
	ShowStructureLink bool

	// StructureDir and StructureExt locate a record's viewer file:
	// <StructureDir>/<filename>.<StructureExt>.
	StructureDir string
	StructureExt string

	// GeneratedAt is printed in the footer when non-zero.
	GeneratedAt time.Time
}

// DefaultOptions shows every section.
func DefaultOptions() Options {
	return Options{
		Title:             "Crystal Structures",
		ShowGallery:       true,
		ShowPlanes:        true,
		ShowStructureLink: true,
		StructureDir:      "cif",
		StructureExt:      "xyz",
	}
}

// Counts tallies structures per status.
type Counts struct {
	Total        int `json:"total"`
	AllAvailable int `json:"all_available"`
	Partial      int `json:"partial"`
	Bad          int `json:"bad"`
}

// Add counts one status.
func (c *Counts) Add(s structure.Status) {
	c.Total++
	switch s {
	case structure.StatusAllAvailable:
		c.AllAvailable++
	case structure.StatusPartial:
		c.Partial++
	default:
		c.Bad++
	}
}

// Report is the view model of the page.
type Report struct {
	Options     Options
	Intro       template.HTML
	Counts      Counts
	Structures  []StructureView
	GeneratedAt string
}

// StructureView is one card.
type StructureView struct {
	Filename  string
	SMILES    string
	Status    structure.Status
	Total     int
	Available int

	// StructureRef is the viewer file reference; StructureFound tells whether it resolves.
	StructureRef   string
	StructureFound bool

	// Gallery holds the planes whose image resolves.
	Gallery []PlaneView
	Planes  []PlaneView
}

// StatusClass is the CSS class for the status badge.
func (s StructureView) StatusClass() string {
	switch s.Status {
	case structure.StatusAllAvailable:
		return "status-all"
	case structure.StatusPartial:
		return "status-partial"
	default:
		return "status-bad"
	}
}

// PlaneView is one plane observation as displayed.
type PlaneView struct {
	Plane     string
	DSpacing  string
	Distance  string
	Image     string
	Available bool
}

// Renderer builds and renders reports with fixed options.
type Renderer struct {
	tmpl   *template.Template
	opts   Options
	logger *slog.Logger
}

// NewRenderer parses the embedded page template. A nil logger discards output.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}
	tmpl := template.Must(template.New("report.html").ParseFS(templateFS, "templates/report.html"))
	return &Renderer{tmpl: tmpl, opts: opts, logger: logger}
}

// Build assesses every record through oracle and assembles the view model.
func (r *Renderer) Build(files []structure.Structure, oracle structure.Oracle) *Report {
	rep := &Report{
		Options:    r.opts,
		Structures: make([]StructureView, 0, len(files)),
	}
	if strings.TrimSpace(r.opts.IntroMarkdown) != "" {
		rep.Intro = renderMarkdown(r.opts.IntroMarkdown)
	}
	if !r.opts.GeneratedAt.IsZero() {
		rep.GeneratedAt = r.opts.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")
	}

	for _, s := range files {
		view := r.buildStructure(s, oracle)
		rep.Counts.Add(view.Status)
		rep.Structures = append(rep.Structures, view)
	}
	return rep
}

func (r *Renderer) buildStructure(s structure.Structure, oracle structure.Oracle) StructureView {
	avail := structure.Assess(s.HKLs, oracle)
	view := StructureView{
		Filename:  s.Filename,
		SMILES:    s.SMILES,
		Status:    avail.Status,
		Total:     avail.Total,
		Available: avail.Available,
	}
	if view.SMILES == "" {
		view.SMILES = "N/A"
	}

	if r.opts.ShowStructureLink {
		view.StructureRef = StructureRef(r.opts.StructureDir, s.Filename, r.opts.StructureExt)
		view.StructureFound = oracle != nil && oracle.Exists(view.StructureRef)
		if !view.StructureFound {
			r.logger.Debug("structure file missing", "filename", s.Filename, "ref", view.StructureRef)
		}
	}

	for _, p := range s.HKLs {
		pv := PlaneView{
			Plane:     planeLabel(p),
			DSpacing:  p.DSpacing.String(),
			Distance:  distanceLabel(p.Distance),
			Image:     assets.WebPath(p.Image),
			Available: structure.PlaneAvailable(p, oracle),
		}
		if p.Image != "" && !pv.Available {
			r.logger.Debug("plane image missing", "filename", s.Filename, "plane", pv.Plane, "ref", p.Image)
		}
		if pv.Available {
			view.Gallery = append(view.Gallery, pv)
		}
		view.Planes = append(view.Planes, pv)
	}
	return view
}

// Render writes the report page.
func (r *Renderer) Render(w io.Writer, rep *Report) error {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, rep); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// StructureRef returns "<dir>/<filename>.<ext>", leaving the name alone when
// it already carries the extension.
func StructureRef(dir, filename, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := filename
	if ext != "" && !strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(ext)) {
		name += "." + ext
	}
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

func planeLabel(p structure.Plane) string {
	if p.Key == nil {
		return "(?, ?, ?)"
	}
	return p.Key.String()
}

func distanceLabel(d []float64) string {
	if len(d) == 0 {
		return "N/A"
	}
	return structure.FormatFloats(d)
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
