package ops

import (
	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/structure"
)

// AddHKLInput contains parameters for the AddHKL operation.
type AddHKLInput struct {
	Filename string
	Plane    structure.HKL
	DSpacing *structure.DSpacing
	Distance []float64
	Image    string

	// Merge normalizes the record when the plane is already present, so the
	// new observation is folded into the first one.
	Merge bool
}

// AddHKLOutput contains the result of the AddHKL operation.
type AddHKLOutput struct {
	Filename string          `json:"filename"`
	Plane    structure.HKL   `json:"plane"`
	Merged   bool            `json:"merged"`
	Planes   int             `json:"planes"`
	Entry    structure.Plane `json:"entry"`
}

// AddHKL appends a plane observation to a record.
func AddHKL(store dataset.Store, input AddHKLInput) (*AddHKLOutput, error) {
	filename, err := requireFilename(input.Filename)
	if err != nil {
		return nil, err
	}

	key := input.Plane
	obs := structure.Plane{
		Key:      &key,
		DSpacing: input.DSpacing,
		Distance: input.Distance,
		Image:    input.Image,
	}.Clone()

	out := &AddHKLOutput{Filename: filename, Plane: key}
	_, err = mutate(store, false, func(ds *dataset.Dataset) (bool, error) {
		s, err := ds.Get(filename)
		if err != nil {
			return false, err
		}
		existed := false
		for _, p := range s.HKLs {
			if p.Key != nil && *p.Key == key {
				existed = true
				break
			}
		}
		s.HKLs = append(s.HKLs, obs)
		out.Entry = obs

		if input.Merge && existed {
			normalized, _, err := structure.Normalize(*s)
			if err != nil {
				return false, err
			}
			*s = normalized
			out.Merged = true
			for _, p := range s.HKLs {
				if *p.Key == key {
					out.Entry = p
					break
				}
			}
		}
		out.Planes = len(s.HKLs)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
