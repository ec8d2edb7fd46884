package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gammasurf/gamma/internal/config"
	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/db"
	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/fsutil"
	"github.com/gammasurf/gamma/internal/report"
	"github.com/gammasurf/gamma/internal/structure"
)

// BuildInput contains parameters for the Build operation.
type BuildInput struct {
	OutputPath  string // default: cfg.ReportPath
	DatasetPath string // recorded in the run history
	Now         time.Time
	Logger      *slog.Logger
}

// BuildOutput contains the result of the Build operation.
type BuildOutput struct {
	RunID      string        `json:"run_id"`
	OutputPath string        `json:"output_path"`
	Counts     report.Counts `json:"counts"`
	Recorded   bool          `json:"recorded"`
}

// ReportOptions maps configuration onto renderer options.
func ReportOptions(cfg *config.Config) report.Options {
	return report.Options{
		Title:             cfg.ReportTitle,
		IntroMarkdown:     cfg.ReportIntro,
		ShowGallery:       !cfg.HideGallery,
		ShowPlanes:        !cfg.HidePlanes,
		ShowStructureLink: !cfg.HideStructureLink,
		StructureDir:      cfg.StructureDir,
		StructureExt:      cfg.StructureExt,
	}
}

// Build renders the HTML report to a file. When database is non-nil the run
// is recorded in the history table.
func Build(ctx context.Context, store dataset.Store, oracle structure.Oracle, database *sql.DB, cfg *config.Config, input BuildInput) (*BuildOutput, error) {
	outputPath := firstNonEmpty(input.OutputPath, cfg.ReportPath)
	if err := fsutil.ValidateOutputPath(outputPath, ".html", ".htm"); err != nil {
		return nil, err
	}

	ds, err := store.Load()
	if err != nil {
		return nil, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	runID, err := generateULID(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	opts := ReportOptions(cfg)
	opts.GeneratedAt = now
	renderer := report.NewRenderer(opts, input.Logger)
	rep := renderer.Build(ds.Files, oracle)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := fsutil.WriteAtomic(outputPath, 0644, func(w io.Writer) error {
		return renderer.Render(w, rep)
	}); err != nil {
		return nil, errors.As(err)
	}

	out := &BuildOutput{
		RunID:      runID,
		OutputPath: outputPath,
		Counts:     rep.Counts,
	}
	if database != nil {
		if err := db.InsertRun(database, &db.Run{
			ID:           runID,
			DatasetPath:  input.DatasetPath,
			OutputPath:   outputPath,
			Structures:   rep.Counts.Total,
			AllAvailable: rep.Counts.AllAvailable,
			Partial:      rep.Counts.Partial,
			Bad:          rep.Counts.Bad,
			CreatedAt:    now.Unix(),
		}); err != nil {
			return nil, err
		}
		out.Recorded = true
	}
	return out, nil
}

// generateULID generates a new ULID for the given time.
func generateULID(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
