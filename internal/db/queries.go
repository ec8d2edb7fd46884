package db

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/structure"
)

// Entry is one structure to index together with its assessed availability.
type Entry struct {
	Structure    structure.Structure
	Availability structure.Availability

	// PlaneAvailable is parallel to Structure.HKLs.
	PlaneAvailable []bool
}

// IndexedStructure is a row of the structures table.
type IndexedStructure struct {
	Filename  string           `json:"filename"`
	Position  int              `json:"position"`
	SMILES    string           `json:"smiles"`
	Status    structure.Status `json:"status"`
	Total     int              `json:"total"`
	Available int              `json:"available"`
	IndexedAt int64            `json:"indexed_at"`
}

// IndexedPlane is a row of the planes table.
type IndexedPlane struct {
	Position  int           `json:"position"`
	Plane     structure.HKL `json:"plane"`
	DSpacing  string        `json:"d_spacing,omitempty"`
	Distance  []float64     `json:"distance"`
	Image     string        `json:"image,omitempty"`
	Available bool          `json:"available"`
}

// StructureFilters narrows ListStructures. Nil fields are ignored.
type StructureFilters struct {
	Status *structure.Status
	Prefix *string
	Plane  *structure.HKL
}

// ReplaceIndex swaps the whole index for entries in one transaction.
// Entries are stored with their slice position so listings keep dataset order.
func ReplaceIndex(db *sql.DB, entries []Entry, now int64) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM planes`); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.Exec(`DELETE FROM structures`); err != nil {
		return errors.NewInternal(err)
	}

	structStmt, err := tx.Prepare(`
		INSERT INTO structures (filename, position, smiles, status, total, available, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer structStmt.Close()

	planeStmt, err := tx.Prepare(`
		INSERT INTO planes (filename, position, h, k, l, d_spacing, distances_json, image, available)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer planeStmt.Close()

	for i, e := range entries {
		s := e.Structure
		a := e.Availability
		if _, err := structStmt.Exec(s.Filename, i, s.SMILES, string(a.Status), a.Total, a.Available, now); err != nil {
			if isUniqueConstraintError(err) {
				return errors.NewAlreadyExists(s.Filename)
			}
			return errors.NewInternal(err)
		}

		for j, p := range s.HKLs {
			if p.Key == nil {
				return errors.NewInvalidRecord(s.Filename, "plane without key cannot be indexed")
			}
			dist := p.Distance
			if dist == nil {
				dist = []float64{}
			}
			distJSON, err := json.Marshal(dist)
			if err != nil {
				return errors.NewInternal(err)
			}
			var dspacing sql.NullString
			if p.DSpacing != nil {
				dspacing = sql.NullString{String: p.DSpacing.String(), Valid: true}
			}
			available := j < len(e.PlaneAvailable) && e.PlaneAvailable[j]

			if _, err := planeStmt.Exec(
				s.Filename, j, p.Key[0], p.Key[1], p.Key[2],
				dspacing, string(distJSON), toNullString(p.Image), available,
			); err != nil {
				return errors.NewInternal(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListStructures returns indexed structures in dataset order with the total
// number of matching rows.
func ListStructures(db *sql.DB, filters StructureFilters, limit, offset int) ([]IndexedStructure, int, error) {
	var (
		where []string
		args  []any
	)
	if filters.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filters.Status))
	}
	if filters.Prefix != nil && *filters.Prefix != "" {
		where = append(where, `filename LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(*filters.Prefix)+"%")
	}
	if filters.Plane != nil {
		where = append(where, `EXISTS (
			SELECT 1 FROM planes p
			WHERE p.filename = structures.filename AND p.h = ? AND p.k = ? AND p.l = ?
		)`)
		args = append(args, filters.Plane[0], filters.Plane[1], filters.Plane[2])
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM structures`+clause, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT filename, position, smiles, status, total, available, indexed_at
		FROM structures` + clause + `
		ORDER BY position
		LIMIT ? OFFSET ?
	`
	rows, err := db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []IndexedStructure
	for rows.Next() {
		var (
			s      IndexedStructure
			status string
		)
		if err := rows.Scan(&s.Filename, &s.Position, &s.SMILES, &status, &s.Total, &s.Available, &s.IndexedAt); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		s.Status = structure.Status(status)
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return items, total, nil
}

// GetPlanes returns the indexed planes of one structure in dataset order.
func GetPlanes(db *sql.DB, filename string) ([]IndexedPlane, error) {
	var exists int
	err := db.QueryRow(`SELECT 1 FROM structures WHERE filename = ?`, filename).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(filename)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.Query(`
		SELECT position, h, k, l, d_spacing, distances_json, image, available
		FROM planes
		WHERE filename = ?
		ORDER BY position
	`, filename)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	planes := []IndexedPlane{}
	for rows.Next() {
		var (
			p        IndexedPlane
			dspacing sql.NullString
			distJSON string
			image    sql.NullString
		)
		if err := rows.Scan(&p.Position, &p.Plane[0], &p.Plane[1], &p.Plane[2], &dspacing, &distJSON, &image, &p.Available); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(distJSON), &p.Distance); err != nil {
			return nil, errors.NewInternal(err)
		}
		p.DSpacing = dspacing.String
		p.Image = image.String
		planes = append(planes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return planes, nil
}

// CountByStatus returns the number of indexed structures per status.
// Every status is present in the result, possibly with zero.
func CountByStatus(db *sql.DB) (map[structure.Status]int, error) {
	counts := make(map[structure.Status]int, len(structure.AllStatuses))
	for _, st := range structure.AllStatuses {
		counts[st] = 0
	}

	rows, err := db.Query(`SELECT status, COUNT(*) FROM structures GROUP BY status`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts[structure.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// escapeLike escapes LIKE wildcards so a prefix matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
