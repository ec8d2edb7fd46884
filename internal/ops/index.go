package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/db"
	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/report"
	"github.com/gammasurf/gamma/internal/structure"
)

// IndexInput contains parameters for the Index operation.
type IndexInput struct {
	Now time.Time
}

// IndexOutput contains the result of the Index operation.
type IndexOutput struct {
	Structures int           `json:"structures"`
	Planes     int           `json:"planes"`
	Counts     report.Counts `json:"counts"`
	IndexedAt  int64         `json:"indexed_at"`
}

// Index rebuilds the SQLite index from the dataset, storing each record's
// availability as of now.
func Index(ctx context.Context, store dataset.Store, oracle structure.Oracle, database *sql.DB, input IndexInput) (*IndexOutput, error) {
	if database == nil {
		return nil, errors.NewIndexUnavailable()
	}

	ds, err := store.Load()
	if err != nil {
		return nil, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := &IndexOutput{IndexedAt: now.Unix()}
	entries := make([]db.Entry, 0, len(ds.Files))
	for _, s := range ds.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := db.Entry{
			Structure:      s,
			Availability:   structure.Assess(s.HKLs, oracle),
			PlaneAvailable: make([]bool, len(s.HKLs)),
		}
		for i, p := range s.HKLs {
			e.PlaneAvailable[i] = structure.PlaneAvailable(p, oracle)
		}
		out.Counts.Add(e.Availability.Status)
		out.Planes += len(s.HKLs)
		entries = append(entries, e)
	}

	if err := db.ReplaceIndex(database, entries, out.IndexedAt); err != nil {
		return nil, err
	}
	out.Structures = len(entries)
	return out, nil
}

// InventoryInput contains parameters for the Inventory operation.
type InventoryInput struct {
	Status string         // optional filter
	Prefix string         // optional filename prefix
	Plane  *structure.HKL // optional: only records observing this plane
	Limit  int            // default: 100, max: 500
	Offset int
}

// InventoryOutput contains the result of the Inventory operation.
type InventoryOutput struct {
	Items      []db.IndexedStructure    `json:"items"`
	Counts     map[structure.Status]int `json:"counts"`
	Pagination Pagination               `json:"pagination"`
}

// Inventory queries the index built by Index.
func Inventory(database *sql.DB, input InventoryInput) (*InventoryOutput, error) {
	if database == nil {
		return nil, errors.NewIndexUnavailable()
	}

	var filters db.StructureFilters
	status, err := parseStatusFilter(input.Status)
	if err != nil {
		return nil, err
	}
	filters.Status = status
	if input.Prefix != "" {
		prefix := input.Prefix
		filters.Prefix = &prefix
	}
	filters.Plane = input.Plane

	limit := clampLimit(input.Limit, DefaultInventoryLimit, MaxInventoryLimit)
	offset := max(input.Offset, 0)

	items, total, err := db.ListStructures(database, filters, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.IndexedStructure{}
	}

	counts, err := db.CountByStatus(database)
	if err != nil {
		return nil, err
	}

	return &InventoryOutput{
		Items:  items,
		Counts: counts,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit  int // default: 20, max: 200
	Offset int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Runs       []db.Run   `json:"runs"`
	Pagination Pagination `json:"pagination"`
}

// History lists recorded report builds, newest first.
func History(database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if database == nil {
		return nil, errors.NewIndexUnavailable()
	}

	limit := clampLimit(input.Limit, DefaultHistoryLimit, MaxHistoryLimit)
	offset := max(input.Offset, 0)

	runs, total, err := db.ListRuns(database, limit, offset)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []db.Run{}
	}

	return &HistoryOutput{
		Runs: runs,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(runs) < total,
			Total:   total,
		},
	}, nil
}
