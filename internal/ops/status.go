package ops

import (
	"fmt"

	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/report"
	"github.com/gammasurf/gamma/internal/structure"
)

// StatusInput contains parameters for the Status operation.
type StatusInput struct {
	// Status optionally keeps only records with this label ("partial", "All Available", ...).
	Status string
}

// StatusItem is the availability of one record.
type StatusItem struct {
	Filename  string           `json:"filename"`
	Status    structure.Status `json:"status"`
	Available int              `json:"available"`
	Total     int              `json:"total"`
}

// StatusOutput contains the result of the Status operation.
// Counts always covers the whole dataset, regardless of the filter.
type StatusOutput struct {
	Items  []StatusItem  `json:"items"`
	Counts report.Counts `json:"counts"`
}

// Status classifies every record by checking its plane images through oracle.
func Status(store dataset.Store, oracle structure.Oracle, input StatusInput) (*StatusOutput, error) {
	filter, err := parseStatusFilter(input.Status)
	if err != nil {
		return nil, err
	}

	ds, err := store.Load()
	if err != nil {
		return nil, err
	}

	out := &StatusOutput{Items: []StatusItem{}}
	for _, s := range ds.Files {
		a := structure.Assess(s.HKLs, oracle)
		out.Counts.Add(a.Status)
		if filter != nil && a.Status != *filter {
			continue
		}
		out.Items = append(out.Items, StatusItem{
			Filename:  s.Filename,
			Status:    a.Status,
			Available: a.Available,
			Total:     a.Total,
		})
	}
	return out, nil
}

// GetInput contains parameters for the Get operation.
type GetInput struct {
	Filename string
}

// PlaneStatus is the availability of one plane image.
type PlaneStatus struct {
	Plane     structure.HKL `json:"plane"`
	Image     string        `json:"image,omitempty"`
	Available bool          `json:"available"`
}

// GetOutput contains the result of the Get operation.
type GetOutput struct {
	Structure    structure.Structure    `json:"structure"`
	Availability structure.Availability `json:"availability"`
	Planes       []PlaneStatus          `json:"planes"`
}

// Get returns one record with its availability.
func Get(store dataset.Store, oracle structure.Oracle, input GetInput) (*GetOutput, error) {
	filename, err := requireFilename(input.Filename)
	if err != nil {
		return nil, err
	}
	ds, err := store.Load()
	if err != nil {
		return nil, err
	}
	s, err := ds.Get(filename)
	if err != nil {
		return nil, err
	}

	out := &GetOutput{
		Structure:    *s,
		Availability: structure.Assess(s.HKLs, oracle),
		Planes:       make([]PlaneStatus, 0, len(s.HKLs)),
	}
	for _, p := range s.HKLs {
		out.Planes = append(out.Planes, PlaneStatus{
			Plane:     *p.Key,
			Image:     p.Image,
			Available: structure.PlaneAvailable(p, oracle),
		})
	}
	return out, nil
}

func parseStatusFilter(s string) (*structure.Status, error) {
	if s == "" {
		return nil, nil
	}
	st, ok := structure.ParseStatus(s)
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown status %q (want %q, %q or %q)",
			s, structure.StatusAllAvailable, structure.StatusPartial, structure.StatusBad))
	}
	return &st, nil
}
