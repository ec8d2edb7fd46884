package structure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Structure is one crystal structure record of the dataset.
type Structure struct {
	// Filename identifies the structure and is unique within a dataset.
	Filename string

	// SMILES is the chemical descriptor. It is opaque to this package.
	SMILES string

	// HKLs holds the plane observations in dataset order.
	HKLs []Plane

	// Extra holds any other top-level keys of the record, preserved verbatim.
	Extra map[string]json.RawMessage
}

// Plane is a single Miller-plane observation.
type Plane struct {
	// Key is the (h, k, l) triple. Nil means the record had no usable key.
	Key *HKL

	// DSpacing is the lattice spacing as stored (scalar or list). Nil if absent.
	DSpacing *DSpacing

	// Distance lists the measured distances in first-seen order.
	Distance []float64

	// Image is an asset reference relative to the asset root. Empty means none.
	Image string

	// Extra holds any other keys of the observation, preserved verbatim.
	Extra map[string]json.RawMessage

	// keyProblem describes why Key is nil when decoding found a bad "plane" value.
	keyProblem string
}

// HKL is a Miller index triple.
type HKL [3]int

// String formats the triple as "(h, k, l)".
func (k HKL) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k[0], k[1], k[2])
}

// ParseHKL decodes a JSON array of exactly three integers.
func ParseHKL(raw []byte) (HKL, error) {
	var key HKL
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var vals []any
	if err := dec.Decode(&vals); err != nil || len(vals) != 3 {
		return key, fmt.Errorf("plane must be an array of three integers, got %s", compact(raw))
	}
	for i, v := range vals {
		num, ok := v.(json.Number)
		if !ok {
			return key, fmt.Errorf("plane must be an array of three integers, got %s", compact(raw))
		}
		n, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil {
			return key, fmt.Errorf("plane index %d is not an integer: %s", i, num)
		}
		key[i] = int(n)
	}
	return key, nil
}

// ParseHKLText parses a triple written as "1,0,0", "1 0 0", "(1, 0, 0)" or "[1,0,0]".
func ParseHKLText(s string) (HKL, error) {
	var key HKL
	inner := strings.Trim(strings.TrimSpace(s), "()[]")
	fields := strings.FieldsFunc(inner, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return key, fmt.Errorf("plane must have three integers, got %q", s)
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return key, fmt.Errorf("plane index %d is not an integer: %q", i, f)
		}
		key[i] = n
	}
	return key, nil
}

// DSpacing is a d-spacing value that may be stored as a scalar or a list.
type DSpacing struct {
	Values []float64
	list   bool
}

// NewDSpacing returns a scalar d-spacing.
func NewDSpacing(v float64) *DSpacing {
	return &DSpacing{Values: []float64{v}}
}

// NewDSpacingList returns a list-valued d-spacing.
func NewDSpacingList(vs ...float64) *DSpacing {
	return &DSpacing{Values: append([]float64{}, vs...), list: true}
}

// IsList reports whether the value was stored as a list.
func (d *DSpacing) IsList() bool {
	return d.list
}

// String formats the value the way it is stored.
func (d *DSpacing) String() string {
	if d == nil {
		return "N/A"
	}
	if !d.list && len(d.Values) == 1 {
		return formatFloat(d.Values[0])
	}
	return FormatFloats(d.Values)
}

// MarshalJSON writes the value back in its original form.
func (d DSpacing) MarshalJSON() ([]byte, error) {
	if !d.list && len(d.Values) == 1 {
		return json.Marshal(d.Values[0])
	}
	if d.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Values)
}

// UnmarshalJSON accepts a number or an array of numbers.
func (d *DSpacing) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var vs []float64
		if err := json.Unmarshal(trimmed, &vs); err != nil {
			return fmt.Errorf("d_spacing: %w", err)
		}
		*d = DSpacing{Values: vs, list: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("d_spacing: %w", err)
	}
	*d = DSpacing{Values: []float64{v}}
	return nil
}

// Clone returns a deep copy of the plane.
func (p Plane) Clone() Plane {
	c := p
	if p.Key != nil {
		k := *p.Key
		c.Key = &k
	}
	if p.DSpacing != nil {
		d := DSpacing{Values: append([]float64(nil), p.DSpacing.Values...), list: p.DSpacing.list}
		c.DSpacing = &d
	}
	if p.Distance != nil {
		c.Distance = append([]float64{}, p.Distance...)
	}
	c.Extra = cloneRaw(p.Extra)
	return c
}

// Clone returns a deep copy of the structure.
func (s Structure) Clone() Structure {
	c := s
	if s.HKLs != nil {
		c.HKLs = make([]Plane, len(s.HKLs))
		for i, p := range s.HKLs {
			c.HKLs[i] = p.Clone()
		}
	}
	c.Extra = cloneRaw(s.Extra)
	return c
}

// Validate checks the record contract: a non-empty filename and a key triple
// on every plane.
func (s Structure) Validate() error {
	if strings.TrimSpace(s.Filename) == "" {
		return invalidRecord("", "filename is required")
	}
	for i, p := range s.HKLs {
		if p.Key == nil {
			return invalidRecord(s.Filename, (&KeyError{Index: i, Reason: p.missingKeyReason()}).Error())
		}
	}
	return nil
}

func (p Plane) missingKeyReason() string {
	if p.keyProblem != "" {
		return p.keyProblem
	}
	return "missing plane"
}

// MarshalJSON writes known keys first, then preserved extras in key order.
func (p Plane) MarshalJSON() ([]byte, error) {
	fields := make([]field, 0, 4)
	if p.Key != nil {
		fields = append(fields, field{"plane", *p.Key})
	}
	if p.DSpacing != nil {
		fields = append(fields, field{"d_spacing", *p.DSpacing})
	}
	dist := p.Distance
	if dist == nil {
		dist = []float64{}
	}
	fields = append(fields, field{"distance", dist})
	if p.Image != "" {
		fields = append(fields, field{"image", p.Image})
	}
	return marshalObject(fields, p.Extra)
}

// UnmarshalJSON decodes a plane observation. A missing or malformed "plane"
// key leaves Key nil; Validate and NormalizePlanes reject such planes.
func (p *Plane) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("hkl entry must be an object: %w", err)
	}
	*p = Plane{}

	if v, ok := raw["plane"]; ok {
		delete(raw, "plane")
		if isNull(v) {
			p.keyProblem = "missing plane"
		} else if key, err := ParseHKL(v); err != nil {
			p.keyProblem = err.Error()
		} else {
			p.Key = &key
		}
	}
	if v, ok := raw["d_spacing"]; ok {
		delete(raw, "d_spacing")
		if !isNull(v) {
			var d DSpacing
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			p.DSpacing = &d
		}
	}
	if v, ok := raw["distance"]; ok {
		delete(raw, "distance")
		dist, err := decodeDistance(v)
		if err != nil {
			return err
		}
		p.Distance = dist
	}
	if v, ok := raw["image"]; ok {
		delete(raw, "image")
		if !isNull(v) {
			if err := json.Unmarshal(v, &p.Image); err != nil {
				return fmt.Errorf("image: %w", err)
			}
		}
	}
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

// MarshalJSON writes filename, smiles and hkls first, then preserved extras.
func (s Structure) MarshalJSON() ([]byte, error) {
	hkls := s.HKLs
	if hkls == nil {
		hkls = []Plane{}
	}
	return marshalObject([]field{
		{"filename", s.Filename},
		{"smiles", s.SMILES},
		{"hkls", hkls},
	}, s.Extra)
}

// UnmarshalJSON decodes a structure record, keeping unknown keys.
func (s *Structure) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("file entry must be an object: %w", err)
	}
	*s = Structure{}

	if v, ok := raw["filename"]; ok {
		delete(raw, "filename")
		if !isNull(v) {
			if err := json.Unmarshal(v, &s.Filename); err != nil {
				return fmt.Errorf("filename: %w", err)
			}
		}
	}
	if v, ok := raw["smiles"]; ok {
		delete(raw, "smiles")
		if !isNull(v) {
			if err := json.Unmarshal(v, &s.SMILES); err != nil {
				return fmt.Errorf("%s: smiles: %w", s.Filename, err)
			}
		}
	}
	if v, ok := raw["hkls"]; ok {
		delete(raw, "hkls")
		if !isNull(v) {
			if err := json.Unmarshal(v, &s.HKLs); err != nil {
				return fmt.Errorf("%s: hkls: %w", s.Filename, err)
			}
		}
	}
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// FormatFloats formats a list as "[a, b, c]".
func FormatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// decodeDistance accepts a list of numbers or a bare number.
func decodeDistance(v json.RawMessage) ([]float64, error) {
	if isNull(v) {
		return nil, nil
	}
	var list []float64
	if err := json.Unmarshal(v, &list); err == nil {
		return list, nil
	}
	var single float64
	if err := json.Unmarshal(v, &single); err != nil {
		return nil, fmt.Errorf("distance must be a number or a list of numbers, got %s", compact(v))
	}
	return []float64{single}, nil
}

type field struct {
	key   string
	value any
}

func marshalObject(fields []field, extra map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := encodeValue(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
	}

	for _, f := range fields {
		v, err := encodeValue(f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		write(f.key, v)
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, extra[k])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeValue marshals v without HTML escaping so SMILES strings such as
// "C&C" are stored as written.
func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	c := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		c[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
