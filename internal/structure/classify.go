package structure

import "strings"

// Status is the availability label of a structure.
type Status string

const (
	StatusAllAvailable Status = "All Available"
	StatusPartial      Status = "Partial"
	StatusBad          Status = "Bad"
)

// AllStatuses lists the labels from best to worst.
var AllStatuses = []Status{StatusAllAvailable, StatusPartial, StatusBad}

// ParseStatus accepts a label case-insensitively, with spaces, dashes or
// underscores between words ("all-available", "All Available", "partial").
func ParseStatus(s string) (Status, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	for _, st := range AllStatuses {
		if strings.ToLower(string(st)) == norm {
			return st, true
		}
	}
	return "", false
}

// Oracle answers whether an asset reference resolves to a readable asset.
type Oracle interface {
	Exists(ref string) bool
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ref string) bool

// Exists calls f(ref).
func (f OracleFunc) Exists(ref string) bool {
	return f(ref)
}

// Availability is the result of checking a structure's plane assets.
type Availability struct {
	Total     int    `json:"total"`
	Available int    `json:"available"`
	Status    Status `json:"status"`
}

// Assess counts the planes whose image reference resolves through oracle and
// derives the status. A record with no planes is Bad.
func Assess(planes []Plane, oracle Oracle) Availability {
	a := Availability{Total: len(planes)}
	for _, p := range planes {
		if PlaneAvailable(p, oracle) {
			a.Available++
		}
	}
	a.Status = StatusFor(a.Total, a.Available)
	return a
}

// Classify returns only the status part of Assess.
func Classify(planes []Plane, oracle Oracle) Status {
	return Assess(planes, oracle).Status
}

// PlaneAvailable reports whether the plane has an image that resolves.
func PlaneAvailable(p Plane, oracle Oracle) bool {
	return p.Image != "" && oracle != nil && oracle.Exists(p.Image)
}

// StatusFor maps counts to a status label.
func StatusFor(total, available int) Status {
	switch {
	case total > 0 && available == total:
		return StatusAllAvailable
	case available > 0 && available < total:
		return StatusPartial
	default:
		return StatusBad
	}
}
