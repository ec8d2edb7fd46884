package ops

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/structure"
)

func TestExportXLSX(t *testing.T) {
	files, oracle := statusFixture()
	files[0].SMILES = "N#Cc1ccc(F)cc1"
	files[0].HKLs[0].DSpacing = structure.NewDSpacing(3.5)
	files[0].HKLs[0].Distance = []float64{1.5, 2}
	store := newStore(files...)
	path := filepath.Join(t.TempDir(), "status.xlsx")

	out, err := ExportXLSX(store, oracle, ExportXLSXInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, &ExportXLSXOutput{Path: path, Structures: 3, Planes: 6}, out)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{StatusSheet, PlanesSheet}, f.GetSheetList())

	rows, err := f.GetRows(StatusSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, []string{"filename", "smiles", "status", "available", "total"}, rows[0])
	require.Equal(t, []string{"all", "N#Cc1ccc(F)cc1", "All Available", "2", "2"}, rows[1])
	require.Equal(t, []string{"partial", "", "Partial", "2", "4"}, rows[2])
	require.Equal(t, []string{"empty", "", "Bad", "0", "0"}, rows[3])

	rows, err = f.GetRows(PlanesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	require.Equal(t, []string{"filename", "h", "k", "l", "d_spacing", "distance", "image", "available"}, rows[0])
	require.Equal(t, []string{"all", "1", "0", "0", "3.5", "[1.5, 2]", "images/all/plane_1_0_0.jpg", "TRUE"}, rows[1])
	require.Equal(t, "partial", rows[5][0])
	require.Equal(t, "FALSE", rows[5][7])
	require.Empty(t, rows[5][6])
}

func TestExportXLSX_RejectsBadPath(t *testing.T) {
	for _, p := range []string{"status.csv", "", "../x.xlsx"} {
		_, err := ExportXLSX(newStore(), nil, ExportXLSXInput{Path: p})
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "path %q", p)
	}
}
