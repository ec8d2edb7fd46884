package ops

import (
	"strings"

	"github.com/gammasurf/gamma/internal/dataset"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Prefix string // optional filename prefix
	Limit  int    // default: 50, max: 500
	Offset int
}

// ListItem summarizes one record.
type ListItem struct {
	Filename string `json:"filename"`
	SMILES   string `json:"smiles"`
	Planes   int    `json:"planes"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []ListItem `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// List returns records in dataset order.
func List(store dataset.Store, input ListInput) (*ListOutput, error) {
	ds, err := store.Load()
	if err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	var matched []ListItem
	for _, s := range ds.Files {
		if input.Prefix != "" && !strings.HasPrefix(s.Filename, input.Prefix) {
			continue
		}
		matched = append(matched, ListItem{Filename: s.Filename, SMILES: s.SMILES, Planes: len(s.HKLs)})
	}

	total := len(matched)
	items := []ListItem{}
	if offset < total {
		items = matched[offset:min(offset+limit, total)]
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}
