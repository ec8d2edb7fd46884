package structure

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/gammasurf/gamma/internal/errors"
)

// KeyError reports a plane observation without a usable (h, k, l) key.
type KeyError struct {
	Index  int
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("hkls[%d]: %s", e.Index, e.Reason)
}

// NormalizeStats summarises what Normalize changed in one record.
type NormalizeStats struct {
	PlanesBefore int `json:"planes_before"`
	PlanesAfter  int `json:"planes_after"`
}

// Merged returns the number of duplicate observations folded into survivors.
func (s NormalizeStats) Merged() int {
	return s.PlanesBefore - s.PlanesAfter
}

// NormalizePlanes collapses observations sharing an (h, k, l) key into one
// entry, keeping first-occurrence order. For a repeated key the survivor keeps
// its d-spacing, its distance list becomes the ordered union of both lists, and
// its image is only filled in when it had none. The input is not modified.
func NormalizePlanes(planes []Plane) ([]Plane, error) {
	out := make([]Plane, 0, len(planes))
	index := make(map[HKL]int, len(planes))

	for i, p := range planes {
		if p.Key == nil {
			return nil, &KeyError{Index: i, Reason: p.missingKeyReason()}
		}
		if j, ok := index[*p.Key]; ok {
			out[j] = mergePlane(out[j], p)
			continue
		}
		index[*p.Key] = len(out)
		out = append(out, p.Clone())
	}
	return out, nil
}

// Normalize returns a copy of s with duplicate planes merged.
func Normalize(s Structure) (Structure, NormalizeStats, error) {
	stats := NormalizeStats{PlanesBefore: len(s.HKLs)}
	planes, err := NormalizePlanes(s.HKLs)
	if err != nil {
		return Structure{}, stats, invalidRecord(s.Filename, err.Error())
	}
	out := s.Clone()
	if s.HKLs != nil {
		out.HKLs = planes
	}
	stats.PlanesAfter = len(planes)
	return out, stats, nil
}

// mergePlane folds incoming into survivor. survivor must already be a copy.
func mergePlane(survivor, incoming Plane) Plane {
	survivor.Distance = MergeDistances(survivor.Distance, incoming.Distance)
	if survivor.Image == "" && incoming.Image != "" {
		survivor.Image = incoming.Image
	}
	for k, v := range incoming.Extra {
		if _, ok := survivor.Extra[k]; ok {
			continue
		}
		if survivor.Extra == nil {
			survivor.Extra = make(map[string]json.RawMessage)
		}
		survivor.Extra[k] = append(json.RawMessage(nil), v...)
	}
	return survivor
}

// MergeDistances returns a followed by b with exact duplicates removed,
// keeping the first occurrence of each value.
func MergeDistances(a, b []float64) []float64 {
	seen := make(map[float64]bool, len(a)+len(b))
	out := make([]float64, 0, len(a)+len(b))
	for _, list := range [][]float64{a, b} {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// CanonicalImagePath returns the conventional image location for a plane:
// <imagesDir>/<filename>/plane_<h>_<k>_<l>.<ext>
func CanonicalImagePath(imagesDir, filename string, key HKL, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := fmt.Sprintf("plane_%d_%d_%d.%s", key[0], key[1], key[2], ext)
	return path.Join(imagesDir, filename, name)
}

// StripCIFExtension removes a trailing ".cif" from a filename.
func StripCIFExtension(filename string) (string, bool) {
	return strings.CutSuffix(filename, ".cif")
}

func invalidRecord(filename, msg string) error {
	return errors.NewInvalidRecord(filename, msg)
}
