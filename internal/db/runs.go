package db

import (
	"database/sql"

	"github.com/gammasurf/gamma/internal/errors"
)

// Run records one report build.
type Run struct {
	ID           string `json:"id"`
	DatasetPath  string `json:"dataset_path"`
	OutputPath   string `json:"output_path"`
	Structures   int    `json:"structures"`
	AllAvailable int    `json:"all_available"`
	Partial      int    `json:"partial"`
	Bad          int    `json:"bad"`
	CreatedAt    int64  `json:"created_at"`
}

// InsertRun stores a report run.
func InsertRun(db *sql.DB, r *Run) error {
	_, err := db.Exec(`
		INSERT INTO report_runs (id, dataset_path, output_path, structures, all_available, partial, bad, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.DatasetPath, r.OutputPath, r.Structures, r.AllAvailable, r.Partial, r.Bad, r.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListRuns returns runs newest first with the total count.
func ListRuns(db *sql.DB, limit, offset int) ([]Run, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM report_runs`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	// ULIDs sort by time, so id breaks ties within the same second
	rows, err := db.Query(`
		SELECT id, dataset_path, output_path, structures, all_available, partial, bad, created_at
		FROM report_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.DatasetPath, &r.OutputPath, &r.Structures, &r.AllAvailable, &r.Partial, &r.Bad, &r.CreatedAt); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return runs, total, nil
}
