package ops

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/structure"
)

// AddInput contains parameters for the Add operation.
type AddInput struct {
	Filename string
	SMILES   string

	// Path is stored as the record's "path" key when set.
	Path string
	HKLs []structure.Plane
}

// AddOutput contains the result of the Add operation.
type AddOutput struct {
	Filename string `json:"filename"`
	Planes   int    `json:"planes"`
	Total    int    `json:"total"`
}

// Add appends a new record.
func Add(store dataset.Store, input AddInput) (*AddOutput, error) {
	filename, err := requireFilename(input.Filename)
	if err != nil {
		return nil, err
	}

	rec := structure.Structure{
		Filename: filename,
		SMILES:   input.SMILES,
		HKLs:     []structure.Plane{},
	}
	for _, p := range input.HKLs {
		rec.HKLs = append(rec.HKLs, p.Clone())
	}
	if input.Path != "" {
		raw, err := json.Marshal(input.Path)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		rec.Extra = map[string]json.RawMessage{"path": raw}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	out := &AddOutput{Filename: filename, Planes: len(rec.HKLs)}
	_, err = mutate(store, false, func(ds *dataset.Dataset) (bool, error) {
		if _, exists := ds.Find(filename); exists {
			return false, errors.NewAlreadyExists(filename)
		}
		ds.Files = append(ds.Files, rec)
		out.Total = len(ds.Files)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Filenames []string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted  []string `json:"deleted"`
	NotFound []string `json:"not_found"`
	Total    int      `json:"total"`
}

// Delete removes the named records. Unknown names are reported in NotFound;
// the call fails with NOT_FOUND only when nothing was deleted.
func Delete(store dataset.Store, input DeleteInput) (*DeleteOutput, error) {
	targets := make(map[string]bool, len(input.Filenames))
	var order []string
	for _, f := range input.Filenames {
		f = strings.TrimSpace(f)
		if f != "" && !targets[f] {
			targets[f] = true
			order = append(order, f)
		}
	}
	if len(order) == 0 {
		return nil, errors.NewInvalidRequest("at least one filename is required")
	}

	out := &DeleteOutput{Deleted: []string{}, NotFound: []string{}}
	_, err := mutate(store, false, func(ds *dataset.Dataset) (bool, error) {
		found := make(map[string]bool, len(order))
		kept := ds.Files[:0]
		for _, s := range ds.Files {
			if targets[s.Filename] {
				found[s.Filename] = true
				continue
			}
			kept = append(kept, s)
		}
		ds.Files = kept
		out.Total = len(kept)

		for _, f := range order {
			if found[f] {
				out.Deleted = append(out.Deleted, f)
			} else {
				out.NotFound = append(out.NotFound, f)
			}
		}
		if len(out.Deleted) == 0 {
			return false, errors.NewNotFound(strings.Join(order, ", "))
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSMILESInput contains parameters for the UpdateSMILES operation.
type UpdateSMILESInput struct {
	Filename string
	SMILES   string
}

// UpdateSMILESOutput contains the result of the UpdateSMILES operation.
type UpdateSMILESOutput struct {
	Filename string `json:"filename"`
	Previous string `json:"previous"`
	SMILES   string `json:"smiles"`
}

// UpdateSMILES replaces a record's descriptor.
func UpdateSMILES(store dataset.Store, input UpdateSMILESInput) (*UpdateSMILESOutput, error) {
	filename, err := requireFilename(input.Filename)
	if err != nil {
		return nil, err
	}

	out := &UpdateSMILESOutput{Filename: filename, SMILES: input.SMILES}
	_, err = mutate(store, false, func(ds *dataset.Dataset) (bool, error) {
		s, err := ds.Get(filename)
		if err != nil {
			return false, err
		}
		out.Previous = s.SMILES
		s.SMILES = input.SMILES
		return out.Previous != input.SMILES, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetInfoInput contains parameters for the SetInfo operation.
type SetInfoInput struct {
	Filename string
	Key      string

	// Value is stored as JSON when it parses as JSON, otherwise as a string.
	Value string
}

// SetInfoOutput contains the result of the SetInfo operation.
type SetInfoOutput struct {
	Filename string          `json:"filename"`
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	Replaced bool            `json:"replaced"`
}

// SetInfo sets an arbitrary extra key on a record.
func SetInfo(store dataset.Store, input SetInfoInput) (*SetInfoOutput, error) {
	filename, err := requireFilename(input.Filename)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, errors.NewInvalidRequest("key is required")
	}
	if isReservedKey(key) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("key %q is managed by its own command", key))
	}

	value := ParseInfoValue(input.Value)
	out := &SetInfoOutput{Filename: filename, Key: key, Value: value}
	_, err = mutate(store, false, func(ds *dataset.Dataset) (bool, error) {
		s, err := ds.Get(filename)
		if err != nil {
			return false, err
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		_, out.Replaced = s.Extra[key]
		s.Extra[key] = value
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseInfoValue returns v as JSON when it is valid JSON, else as a JSON string.
func ParseInfoValue(v string) json.RawMessage {
	trimmed := strings.TrimSpace(v)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	raw, _ := json.Marshal(v)
	return raw
}

// StripExtensionsInput contains parameters for the StripExtensions operation.
type StripExtensionsInput struct {
	DryRun bool
}

// Rename is one filename change.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StripExtensionsOutput contains the result of the StripExtensions operation.
type StripExtensionsOutput struct {
	Renamed []Rename `json:"renamed"`
	Saved   bool     `json:"saved"`
}

// StripExtensions drops a trailing ".cif" from every filename. A rename that
// would collide with another record or produce an empty name fails the whole
// operation.
func StripExtensions(store dataset.Store, input StripExtensionsInput) (*StripExtensionsOutput, error) {
	out := &StripExtensionsOutput{Renamed: []Rename{}}
	saved, err := mutate(store, input.DryRun, func(ds *dataset.Dataset) (bool, error) {
		taken := make(map[string]bool, len(ds.Files))
		for _, s := range ds.Files {
			taken[s.Filename] = true
		}
		for i := range ds.Files {
			s := &ds.Files[i]
			stripped, ok := structure.StripCIFExtension(s.Filename)
			if !ok {
				continue
			}
			if strings.TrimSpace(stripped) == "" {
				return false, errors.NewInvalidRecord(s.Filename, "stripping the extension leaves an empty filename")
			}
			if taken[stripped] {
				return false, errors.NewAlreadyExists(stripped)
			}
			delete(taken, s.Filename)
			taken[stripped] = true
			out.Renamed = append(out.Renamed, Rename{From: s.Filename, To: stripped})
			s.Filename = stripped
		}
		return len(out.Renamed) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	out.Saved = saved
	return out, nil
}
