package ops

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/fsutil"
	"github.com/gammasurf/gamma/internal/structure"
)

// Sheet names of the exported workbook.
const (
	StatusSheet = "Status"
	PlanesSheet = "Planes"
)

// ExportXLSXInput contains parameters for the ExportXLSX operation.
type ExportXLSXInput struct {
	Path string
}

// ExportXLSXOutput contains the result of the ExportXLSX operation.
type ExportXLSXOutput struct {
	Path       string `json:"path"`
	Structures int    `json:"structures"`
	Planes     int    `json:"planes"`
}

// ExportXLSX writes a workbook with one row per record on the Status sheet
// and one row per plane observation on the Planes sheet.
func ExportXLSX(store dataset.Store, oracle structure.Oracle, input ExportXLSXInput) (*ExportXLSXOutput, error) {
	if err := fsutil.ValidateOutputPath(input.Path, ".xlsx"); err != nil {
		return nil, err
	}

	ds, err := store.Load()
	if err != nil {
		return nil, err
	}

	f, err := buildWorkbook(ds, oracle)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := fsutil.WriteAtomic(input.Path, 0644, func(w io.Writer) error {
		return f.Write(w)
	}); err != nil {
		return nil, errors.As(err)
	}

	out := &ExportXLSXOutput{Path: input.Path, Structures: len(ds.Files)}
	for _, s := range ds.Files {
		out.Planes += len(s.HKLs)
	}
	return out, nil
}

func buildWorkbook(ds *dataset.Dataset, oracle structure.Oracle) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), StatusSheet); err != nil {
		f.Close()
		return nil, errors.NewInternal(err)
	}
	if _, err := f.NewSheet(PlanesSheet); err != nil {
		f.Close()
		return nil, errors.NewInternal(err)
	}

	writeRow(f, StatusSheet, 1, "filename", "smiles", "status", "available", "total")
	writeRow(f, PlanesSheet, 1, "filename", "h", "k", "l", "d_spacing", "distance", "image", "available")

	planeRow := 2
	for i, s := range ds.Files {
		a := structure.Assess(s.HKLs, oracle)
		writeRow(f, StatusSheet, i+2, s.Filename, s.SMILES, string(a.Status), a.Available, a.Total)

		for _, p := range s.HKLs {
			dspacing := ""
			if p.DSpacing != nil {
				dspacing = p.DSpacing.String()
			}
			writeRow(f, PlanesSheet, planeRow,
				s.Filename, p.Key[0], p.Key[1], p.Key[2],
				dspacing, structure.FormatFloats(p.Distance), p.Image,
				structure.PlaneAvailable(p, oracle),
			)
			planeRow++
		}
	}

	for _, sheet := range []string{StatusSheet, PlanesSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			f.Close()
			return nil, errors.NewInternal(fmt.Errorf("freeze header on %s: %w", sheet, err))
		}
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
