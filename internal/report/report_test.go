package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/gammasurf/gamma/internal/structure"
)

type setOracle map[string]bool

func (s setOracle) Exists(ref string) bool { return s[strings.TrimPrefix(ref, "/")] }

func plane(h, k, l int, image string, dist ...float64) structure.Plane {
	key := structure.HKL{h, k, l}
	return structure.Plane{Key: &key, Image: image, Distance: dist, DSpacing: structure.NewDSpacing(3.5)}
}

func sampleFiles() []structure.Structure {
	return []structure.Structure{
		{
			Filename: "4-FBN",
			SMILES:   "N#Cc1ccc(F)cc1",
			HKLs: []structure.Plane{
				plane(1, 0, 0, "/images/4-FBN/plane_1_0_0.jpg", 2.1, 3.4),
				plane(0, 1, 0, "images/4-FBN/plane_0_1_0.jpg"),
				plane(0, 0, 1, ""),
			},
		},
		{
			Filename: "benzene",
			SMILES:   "c1ccccc1",
			HKLs:     []structure.Plane{plane(1, 1, 1, "images/benzene/plane_1_1_1.jpg", 4)},
		},
		{Filename: "empty"},
	}
}

func sampleOracle() setOracle {
	return setOracle{
		"images/4-FBN/plane_1_0_0.jpg":   true,
		"images/benzene/plane_1_1_1.jpg": true,
		"cif/benzene.xyz":                true,
	}
}

func render(t *testing.T, opts Options) (*Report, *goquery.Document) {
	t.Helper()
	r := NewRenderer(opts, nil)
	rep := r.Build(sampleFiles(), sampleOracle())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, rep))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return rep, doc
}

func TestBuild_StatusesAndCounts(t *testing.T) {
	rep, _ := render(t, DefaultOptions())

	require.Len(t, rep.Structures, 3)
	require.Equal(t, structure.StatusPartial, rep.Structures[0].Status)
	require.Equal(t, 1, rep.Structures[0].Available)
	require.Equal(t, 3, rep.Structures[0].Total)
	require.Equal(t, structure.StatusAllAvailable, rep.Structures[1].Status)
	require.Equal(t, structure.StatusBad, rep.Structures[2].Status)
	require.Equal(t, "N/A", rep.Structures[2].SMILES)

	require.Equal(t, Counts{Total: 3, AllAvailable: 1, Partial: 1, Bad: 1}, rep.Counts)
}

func TestRender_Cards(t *testing.T) {
	_, doc := render(t, DefaultOptions())

	cards := doc.Find(".card")
	require.Equal(t, 3, cards.Length())

	first := cards.First()
	require.Equal(t, "4-FBN", first.AttrOr("data-filename", ""))
	require.Equal(t, "Partial", first.AttrOr("data-status", ""))
	require.Contains(t, first.Find("summary.file-toggle").Text(), "(Partial)")
	require.Equal(t, "N#Cc1ccc(F)cc1", first.Find(".smiles").Text())

	// Only the resolvable plane appears in the gallery, with its web path
	gallery := first.Find(".gallery img")
	require.Equal(t, 1, gallery.Length())
	require.Equal(t, "images/4-FBN/plane_1_0_0.jpg", gallery.AttrOr("src", ""))
	require.Contains(t, first.Find(".d-label").Text(), "Plane (1, 0, 0): distance = [2.1, 3.4]")

	// Every plane has a detail section
	require.Equal(t, 3, first.Find("details.plane").Length())
	require.Contains(t, first.Find(".missing").Text(), "Image not found: images/4-FBN/plane_0_1_0.jpg")

	require.Equal(t, "1", strings.Fields(doc.Find("#count-all").Text())[0])
}

func TestRender_StructureLink(t *testing.T) {
	_, doc := render(t, DefaultOptions())

	benzene := doc.Find(`.card[data-filename="benzene"]`)
	require.Equal(t, "cif/benzene.xyz", benzene.Find("a.structure-link").AttrOr("href", ""))

	fbn := doc.Find(`.card[data-filename="4-FBN"]`)
	require.Equal(t, 0, fbn.Find("a.structure-link").Length())
	require.Contains(t, fbn.Find(".structure-file").Text(), "Structure file not found: cif/4-FBN.xyz")
}

func TestRender_OptionsHideSections(t *testing.T) {
	opts := Options{Title: "Surfaces"}
	_, doc := render(t, opts)

	require.Equal(t, "Surfaces", doc.Find("h1").Text())
	require.Equal(t, 0, doc.Find(".gallery").Length())
	require.Equal(t, 0, doc.Find("details.plane").Length())
	require.Equal(t, 0, doc.Find(".structure-file").Length())
}

func TestRender_IntroAndFooter(t *testing.T) {
	opts := DefaultOptions()
	opts.IntroMarkdown = "Surface energies for **molecular crystals**."
	opts.GeneratedAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	_, doc := render(t, opts)

	require.Equal(t, "molecular crystals", doc.Find(".intro strong").Text())
	require.Contains(t, doc.Find("footer").Text(), "2026-03-01 09:30 UTC")
}

func TestRender_EscapesText(t *testing.T) {
	r := NewRenderer(DefaultOptions(), nil)
	rep := r.Build([]structure.Structure{{Filename: "<b>x</b>", SMILES: "C&C"}}, nil)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, rep))
	require.NotContains(t, buf.String(), "<b>x</b>")
	require.Contains(t, buf.String(), "&lt;b&gt;x&lt;/b&gt;")
}

func TestStructureRef(t *testing.T) {
	tests := []struct {
		dir, name, ext, want string
	}{
		{"cif", "benzene", "xyz", "cif/benzene.xyz"},
		{"cif/", "benzene.XYZ", ".xyz", "cif/benzene.XYZ"},
		{"", "benzene", "xyz", "benzene.xyz"},
		{"cif", "benzene", "", "cif/benzene"},
	}
	for _, tt := range tests {
		if got := StructureRef(tt.dir, tt.name, tt.ext); got != tt.want {
			t.Errorf("StructureRef(%q, %q, %q) = %q, want %q", tt.dir, tt.name, tt.ext, got, tt.want)
		}
	}
}
