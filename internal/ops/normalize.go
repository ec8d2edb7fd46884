package ops

import (
	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/structure"
)

// NormalizeInput contains parameters for the Normalize operation.
type NormalizeInput struct {
	DryRun bool
}

// NormalizeOutput contains the result of the Normalize operation.
type NormalizeOutput struct {
	Structures   int      `json:"structures"`
	Changed      []string `json:"changed"`
	PlanesBefore int      `json:"planes_before"`
	PlanesAfter  int      `json:"planes_after"`
	Merged       int      `json:"merged"`
	Saved        bool     `json:"saved"`
}

// Normalize merges duplicate plane observations in every record.
// Running it twice leaves the dataset unchanged the second time.
func Normalize(store dataset.Store, input NormalizeInput) (*NormalizeOutput, error) {
	out := &NormalizeOutput{Changed: []string{}}

	saved, err := mutate(store, input.DryRun, func(ds *dataset.Dataset) (bool, error) {
		out.Structures = len(ds.Files)
		for i, s := range ds.Files {
			normalized, stats, err := structure.Normalize(s)
			if err != nil {
				return false, err
			}
			out.PlanesBefore += stats.PlanesBefore
			out.PlanesAfter += stats.PlanesAfter
			if stats.Merged() > 0 {
				out.Merged += stats.Merged()
				out.Changed = append(out.Changed, s.Filename)
				ds.Files[i] = normalized
			}
		}
		return len(out.Changed) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	out.Saved = saved
	return out, nil
}
