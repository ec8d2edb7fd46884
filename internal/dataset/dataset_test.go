package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/structure"
)

const sampleDoc = `{
    "files": [
        {
            "filename": "4-FBN",
            "smiles": "N#Cc1ccc(F)cc1",
            "hkls": [
                {"plane": [1, 0, 0], "d_spacing": 3.5, "distance": [1.2], "image": "/images/4-FBN/plane_1_0_0.jpg"}
            ],
            "Status": "Good"
        },
        {"filename": "benzene", "smiles": "c1ccccc1", "hkls": []}
    ],
    "version": 2
}`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileStore_Load(t *testing.T) {
	store := NewFileStore(writeDoc(t, sampleDoc))

	ds, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"4-FBN", "benzene"}, ds.Filenames())
	require.Equal(t, `2`, string(ds.Extra["version"]))

	s, err := ds.Get("4-FBN")
	require.NoError(t, err)
	require.Len(t, s.HKLs, 1)
	require.Equal(t, structure.HKL{1, 0, 0}, *s.HKLs[0].Key)
	require.Equal(t, `"Good"`, string(s.Extra["Status"]))

	_, err = ds.Get("missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFileStore_LoadFailures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode errors.ErrorCode
	}{
		{"not json", `{"files": [`, errors.ErrDatasetUnreadable},
		{"not an object", `[1, 2]`, errors.ErrDatasetUnreadable},
		{"no files key", `{"records": []}`, errors.ErrDatasetUnreadable},
		{"bad record type", `{"files": [42]}`, errors.ErrDatasetUnreadable},
		{"bad key", `{"files": [{"filename": "a", "hkls": [{"plane": [1, 2]}]}]}`, errors.ErrInvalidRecord},
		{"missing key", `{"files": [{"filename": "a", "hkls": [{"distance": [1]}]}]}`, errors.ErrInvalidRecord},
		{"empty filename", `{"files": [{"filename": "", "hkls": []}]}`, errors.ErrInvalidRecord},
		{"duplicate filename", `{"files": [{"filename": "a"}, {"filename": "a"}]}`, errors.ErrInvalidRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileStore(writeDoc(t, tt.content)).Load()
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.wantCode), "got %v, want %s", err, tt.wantCode)
		})
	}
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	_, err := store.Load()
	require.True(t, errors.Is(err, errors.ErrDatasetUnreadable))
	require.Contains(t, err.Error(), "absent.json")
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	path := writeDoc(t, sampleDoc)
	store := NewFileStore(path)

	ds, err := store.Load()
	require.NoError(t, err)
	ds.Files[1].SMILES = "C&C<O>"
	require.NoError(t, store.Save(ds))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.True(t, strings.HasPrefix(text, "{\n    \"files\": ["), "indent should be 4 spaces:\n%s", text)
	require.Contains(t, text, `"smiles": "C&C<O>"`)
	require.Contains(t, text, `"Status": "Good"`)
	require.Contains(t, text, `"version": 2`)
	require.Less(t, strings.Index(text, `"files"`), strings.Index(text, `"version"`))

	again, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, ds.Filenames(), again.Filenames())
	require.Equal(t, "C&C<O>", again.Files[1].SMILES)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_SaveRejectsInvalid(t *testing.T) {
	path := writeDoc(t, sampleDoc)
	store := NewFileStore(path)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	bad := &Dataset{Files: []structure.Structure{{Filename: "x"}, {Filename: "x"}}}
	err = store.Save(bad)
	require.True(t, errors.Is(err, errors.ErrInvalidRecord))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestDataset_CloneIsDeep(t *testing.T) {
	ds, err := Decode("sample", []byte(sampleDoc))
	require.NoError(t, err)

	c := ds.Clone()
	c.Files[0].HKLs[0].Distance[0] = 99
	c.Files[0].SMILES = "changed"
	c.Extra["version"][0] = '3'

	require.Equal(t, 1.2, ds.Files[0].HKLs[0].Distance[0])
	require.Equal(t, "N#Cc1ccc(F)cc1", ds.Files[0].SMILES)
	require.Equal(t, `2`, string(ds.Extra["version"]))
}

func TestDataset_MarshalEmpty(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Encode(&buf, &Dataset{}))
	require.Equal(t, "{\n    \"files\": []\n}\n", buf.String())
}

func TestMemStore(t *testing.T) {
	store := NewMemStore(nil)

	ds, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, ds.Files)

	ds.Files = append(ds.Files, structure.Structure{Filename: "a"})
	require.NoError(t, store.Save(ds))
	require.Equal(t, 1, store.Saves())

	ds.Files[0].Filename = "mutated after save"
	again, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, again.Filenames())

	err = store.Save(&Dataset{Files: []structure.Structure{{Filename: ""}}})
	require.True(t, errors.Is(err, errors.ErrInvalidRecord))
	require.Equal(t, 1, store.Saves())
}
