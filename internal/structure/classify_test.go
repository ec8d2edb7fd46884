package structure

import (
	"fmt"
	"testing"
)

// setOracle resolves exactly the references it contains.
type setOracle map[string]bool

func (s setOracle) Exists(ref string) bool { return s[ref] }

func planesWithImages(n int) []Plane {
	planes := make([]Plane, n)
	for i := range planes {
		planes[i] = Plane{Key: key(i, 0, 0), Image: fmt.Sprintf("images/x/plane_%d_0_0.jpg", i)}
	}
	return planes
}

func TestAssess(t *testing.T) {
	four := planesWithImages(4)

	tests := []struct {
		name          string
		planes        []Plane
		oracle        Oracle
		wantAvailable int
		wantStatus    Status
	}{
		{
			name:          "all four resolve",
			planes:        four,
			oracle:        OracleFunc(func(string) bool { return true }),
			wantAvailable: 4,
			wantStatus:    StatusAllAvailable,
		},
		{
			name:          "two of four resolve",
			planes:        four,
			oracle:        setOracle{four[0].Image: true, four[3].Image: true},
			wantAvailable: 2,
			wantStatus:    StatusPartial,
		},
		{
			name:          "none resolve",
			planes:        four,
			oracle:        setOracle{},
			wantAvailable: 0,
			wantStatus:    StatusBad,
		},
		{
			name:          "no observations is bad",
			planes:        nil,
			oracle:        OracleFunc(func(string) bool { return true }),
			wantAvailable: 0,
			wantStatus:    StatusBad,
		},
		{
			name:          "planes without image never count",
			planes:        []Plane{{Key: key(1, 1, 1)}, {Key: key(0, 0, 1), Image: "a.jpg"}},
			oracle:        OracleFunc(func(string) bool { return true }),
			wantAvailable: 1,
			wantStatus:    StatusPartial,
		},
		{
			name:          "nil oracle resolves nothing",
			planes:        four,
			oracle:        nil,
			wantAvailable: 0,
			wantStatus:    StatusBad,
		},
		{
			name:          "duplicates are counted as given",
			planes:        []Plane{{Key: key(1, 1, 1), Image: "a.jpg"}, {Key: key(1, 1, 1), Image: "b.jpg"}},
			oracle:        setOracle{"a.jpg": true},
			wantAvailable: 1,
			wantStatus:    StatusPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.planes, tt.oracle)
			if got.Total != len(tt.planes) {
				t.Errorf("Total = %d, want %d", got.Total, len(tt.planes))
			}
			if got.Available != tt.wantAvailable {
				t.Errorf("Available = %d, want %d", got.Available, tt.wantAvailable)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if c := Classify(tt.planes, tt.oracle); c != tt.wantStatus {
				t.Errorf("Classify() = %q, want %q", c, tt.wantStatus)
			}
		})
	}
}

func TestStatusFor_Totals(t *testing.T) {
	for n := 0; n <= 5; n++ {
		for k := 0; k <= n; k++ {
			got := StatusFor(n, k)
			var want Status
			switch {
			case n > 0 && k == n:
				want = StatusAllAvailable
			case k > 0 && k < n:
				want = StatusPartial
			default:
				want = StatusBad
			}
			if got != want {
				t.Errorf("StatusFor(%d, %d) = %q, want %q", n, k, got, want)
			}
		}
	}
}

func TestAssess_DoesNotMutate(t *testing.T) {
	planes := planesWithImages(2)
	calls := 0
	Assess(planes, OracleFunc(func(ref string) bool {
		calls++
		return ref == planes[0].Image
	}))
	if calls != 2 {
		t.Errorf("oracle calls = %d, want 2", calls)
	}
	if planes[0].Image == "" || planes[1].Image == "" {
		t.Error("planes were modified")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"All Available", StatusAllAvailable, true},
		{"all-available", StatusAllAvailable, true},
		{"ALL_AVAILABLE", StatusAllAvailable, true},
		{" partial ", StatusPartial, true},
		{"bad", StatusBad, true},
		{"good", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
