package structure

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gammasurf/gamma/internal/errors"
)

func TestPlane_UnmarshalJSON(t *testing.T) {
	var p Plane
	err := json.Unmarshal([]byte(`{"plane":[1,-1,0],"d_spacing":4.25,"distance":[2.1,3.4],"image":"/images/a/plane_1_-1_0.jpg","energy":0.31}`), &p)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if p.Key == nil || *p.Key != (HKL{1, -1, 0}) {
		t.Errorf("Key = %v, want (1, -1, 0)", p.Key)
	}
	if p.DSpacing == nil || p.DSpacing.IsList() || p.DSpacing.Values[0] != 4.25 {
		t.Errorf("DSpacing = %v, want scalar 4.25", p.DSpacing)
	}
	if len(p.Distance) != 2 || p.Distance[1] != 3.4 {
		t.Errorf("Distance = %v", p.Distance)
	}
	if p.Image != "/images/a/plane_1_-1_0.jpg" {
		t.Errorf("Image = %q", p.Image)
	}
	if string(p.Extra["energy"]) != "0.31" {
		t.Errorf("Extra[energy] = %s", p.Extra["energy"])
	}
}

func TestPlane_BadKeys(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"missing", `{"distance":[1]}`, "missing plane"},
		{"null", `{"plane":null}`, "missing plane"},
		{"two elements", `{"plane":[1,0]}`, "three integers"},
		{"four elements", `{"plane":[1,0,0,1]}`, "three integers"},
		{"fraction", `{"plane":[1,0.5,0]}`, "not an integer"},
		{"string element", `{"plane":["1",0,0]}`, "three integers"},
		{"not an array", `{"plane":"111"}`, "three integers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Structure
			doc := `{"filename":"x","smiles":"C","hkls":[` + tt.input + `]}`
			if err := json.Unmarshal([]byte(doc), &s); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			err := s.Validate()
			if !errors.Is(err, errors.ErrInvalidRecord) {
				t.Fatalf("Validate() = %v, want INVALID_RECORD", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) || !strings.Contains(err.Error(), "hkls[0]") {
				t.Errorf("error %q should mention %q and hkls[0]", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDSpacing_RoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		list bool
		str  string
	}{
		{`3.5`, false, "3.5"},
		{`[3.5, 3.6]`, true, "[3.5, 3.6]"},
		{`[3.5]`, true, "[3.5]"},
	}

	for _, tt := range tests {
		var d DSpacing
		if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
		}
		if d.IsList() != tt.list {
			t.Errorf("%s: IsList = %v, want %v", tt.in, d.IsList(), tt.list)
		}
		if d.String() != tt.str {
			t.Errorf("%s: String() = %q, want %q", tt.in, d.String(), tt.str)
		}
		out, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("Marshal error = %v", err)
		}
		var back DSpacing
		if err := json.Unmarshal(out, &back); err != nil {
			t.Fatalf("re-Unmarshal error = %v", err)
		}
		if back.IsList() != tt.list {
			t.Errorf("%s: form changed after round trip: %s", tt.in, out)
		}
	}

	var bad DSpacing
	if err := json.Unmarshal([]byte(`"n/a"`), &bad); err == nil {
		t.Error("expected error for string d_spacing")
	}
}

func TestStructure_MarshalPreservesExtras(t *testing.T) {
	in := `{"filename":"4-FBN","smiles":"N#Cc1ccc(F)cc1","hkls":[{"plane":[0,0,1],"distance":[5]}],"Status":"Good","path":"cif/4-FBN.cif"}`
	var s Structure
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"filename":"4-FBN","smiles":"N#Cc1ccc(F)cc1","hkls":[{"plane":[0,0,1],"distance":[5]}],"Status":"Good","path":"cif/4-FBN.cif"}`
	if string(out) != want {
		t.Errorf("Marshal() =\n%s\nwant\n%s", out, want)
	}
}

func TestStructure_ScalarDistanceBecomesList(t *testing.T) {
	var p Plane
	if err := json.Unmarshal([]byte(`{"plane":[1,0,0],"distance":2.5}`), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(p.Distance) != 1 || p.Distance[0] != 2.5 {
		t.Errorf("Distance = %v, want [2.5]", p.Distance)
	}

	if err := json.Unmarshal([]byte(`{"plane":[1,0,0],"distance":"far"}`), &p); err == nil {
		t.Error("expected error for non-numeric distance")
	}
}

func TestStructure_ValidateFilename(t *testing.T) {
	if err := (Structure{Filename: "  "}).Validate(); !errors.Is(err, errors.ErrInvalidRecord) {
		t.Errorf("Validate() = %v, want INVALID_RECORD", err)
	}
	if err := (Structure{Filename: "ok"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestHKL_String(t *testing.T) {
	if got := (HKL{1, -2, 0}).String(); got != "(1, -2, 0)" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseHKLText(t *testing.T) {
	for _, in := range []string{"1,-1,0", "1 -1 0", "(1, -1, 0)", "[1,-1,0]", " 1, -1 ,0 "} {
		got, err := ParseHKLText(in)
		if err != nil {
			t.Errorf("ParseHKLText(%q) error = %v", in, err)
			continue
		}
		if got != (HKL{1, -1, 0}) {
			t.Errorf("ParseHKLText(%q) = %v", in, got)
		}
	}
	for _, in := range []string{"", "1,0", "1,0,0,0", "a,b,c", "1.5,0,0"} {
		if _, err := ParseHKLText(in); err == nil {
			t.Errorf("ParseHKLText(%q) expected error", in)
		}
	}
}
