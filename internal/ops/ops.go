// Package ops implements the dataset operations shared by the CLI, the MCP
// server and the web viewer. Each operation loads the dataset through a
// dataset.Store, works on the loaded value and saves it back when it changed.
package ops

import (
	"strings"

	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit      = 50
	MaxListLimit          = 500
	DefaultInventoryLimit = 100
	MaxInventoryLimit     = 500
	DefaultHistoryLimit   = 20
	MaxHistoryLimit       = 200
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// ReservedKeys are record keys owned by dedicated operations. SetInfo refuses them.
var ReservedKeys = []string{"filename", "smiles", "hkls"}

func isReservedKey(key string) bool {
	for _, k := range ReservedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// clampLimit applies the default and upper bound to a requested page size.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

// requireFilename trims and checks a record identifier.
func requireFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", errors.NewInvalidRequest("filename is required")
	}
	return filename, nil
}

// mutate loads the dataset, applies fn and saves when fn reports a change.
// With dryRun set the dataset is never saved.
func mutate(store dataset.Store, dryRun bool, fn func(ds *dataset.Dataset) (bool, error)) (saved bool, err error) {
	ds, err := store.Load()
	if err != nil {
		return false, err
	}
	changed, err := fn(ds)
	if err != nil {
		return false, err
	}
	if !changed || dryRun {
		return false, nil
	}
	if err := store.Save(ds); err != nil {
		return false, err
	}
	return true, nil
}
