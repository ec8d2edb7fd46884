// Package dataset loads and saves the JSON document holding all structure
// records. Callers treat a Dataset as a value: load it, change it, save it.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/structure"
)

// Dataset is the whole persisted document.
type Dataset struct {
	Files []structure.Structure

	// Extra holds top-level keys other than "files", preserved verbatim.
	Extra map[string]json.RawMessage
}

// Store is the persistence boundary for a Dataset.
type Store interface {
	Load() (*Dataset, error)
	Save(ds *Dataset) error
}

// Find returns the index of the record with the given filename.
func (d *Dataset) Find(filename string) (int, bool) {
	for i := range d.Files {
		if d.Files[i].Filename == filename {
			return i, true
		}
	}
	return -1, false
}

// Get returns a pointer to the record with the given filename, or a NOT_FOUND error.
func (d *Dataset) Get(filename string) (*structure.Structure, error) {
	i, ok := d.Find(filename)
	if !ok {
		return nil, errors.NewNotFound(filename)
	}
	return &d.Files[i], nil
}

// Filenames lists record identifiers in dataset order.
func (d *Dataset) Filenames() []string {
	names := make([]string, len(d.Files))
	for i, f := range d.Files {
		names[i] = f.Filename
	}
	return names
}

// Validate checks every record and that filenames are unique.
func (d *Dataset) Validate() error {
	seen := make(map[string]int, len(d.Files))
	for i, f := range d.Files {
		if err := f.Validate(); err != nil {
			if f.Filename == "" {
				return errors.NewInvalidRecord("", fmt.Sprintf("files[%d]: filename is required", i))
			}
			return err
		}
		if j, dup := seen[f.Filename]; dup {
			return errors.NewInvalidRecord(f.Filename, fmt.Sprintf("duplicate filename (files[%d] and files[%d])", j, i))
		}
		seen[f.Filename] = i
	}
	return nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	c := &Dataset{}
	if d.Files != nil {
		c.Files = make([]structure.Structure, len(d.Files))
		for i, f := range d.Files {
			c.Files[i] = f.Clone()
		}
	}
	if d.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// MarshalJSON writes "files" first, then preserved top-level keys.
func (d Dataset) MarshalJSON() ([]byte, error) {
	files := d.Files
	if files == nil {
		files = []structure.Structure{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteString(`{"files":`)
	if err := enc.Encode(files); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		if k != "files" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteByte(',')
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.Write(d.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON requires a top-level object with a "files" array.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dataset must be a JSON object: %w", err)
	}
	files, ok := raw["files"]
	if !ok {
		return fmt.Errorf(`dataset has no top-level "files" list`)
	}
	delete(raw, "files")

	*d = Dataset{}
	if err := json.Unmarshal(files, &d.Files); err != nil {
		return fmt.Errorf("files: %w", err)
	}
	if len(raw) > 0 {
		d.Extra = raw
	}
	return nil
}
