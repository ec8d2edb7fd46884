package dataset

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/fsutil"
	"github.com/gammasurf/gamma/internal/structure"
)

// FileStore keeps the dataset in a single JSON file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and validates the whole file. A missing or unparsable file is
// DATASET_UNREADABLE; a record breaking the contract is INVALID_RECORD.
func (s *FileStore) Load() (*Dataset, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.NewDatasetUnreadable(s.Path, err)
	}
	return Decode(s.Path, data)
}

// Save validates ds and writes it atomically with 4-space indentation.
func (s *FileStore) Save(ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	return fsutil.WriteAtomic(s.Path, 0644, func(w io.Writer) error {
		return Encode(w, ds)
	})
}

// Decode parses and validates a dataset document. name is used in errors.
func Decode(name string, data []byte) (*Dataset, error) {
	ds := &Dataset{}
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, errors.NewDatasetUnreadable(name, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Encode writes ds as indented JSON.
func Encode(w io.Writer, ds *Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ds); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// MemStore keeps a dataset in memory. Load and Save copy, so callers never
// share state with the store.
type MemStore struct {
	mu    sync.Mutex
	ds    *Dataset
	saves int
}

// NewMemStore returns a store seeded with a copy of ds (empty if nil).
func NewMemStore(ds *Dataset) *MemStore {
	if ds == nil {
		ds = &Dataset{Files: []structure.Structure{}}
	}
	return &MemStore{ds: ds.Clone()}
}

// Load returns a copy of the stored dataset.
func (m *MemStore) Load() (*Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ds.Clone(), nil
}

// Save validates and stores a copy of ds.
func (m *MemStore) Save(ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ds = ds.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
