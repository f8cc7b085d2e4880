// Package export renders sheets as spreadsheet files.
package export

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/beasiswa/core"
)

// XLSXContentType is the MIME type of the files XLSX builds.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// XLSX builds a workbook holding a single sheet: a bold header row followed by the rows.
func XLSX(sheet core.Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	name := sheet.Name
	if name == "" {
		name = "Sheet1"
	}
	if name != "Sheet1" {
		f.SetSheetName("Sheet1", name)
	}

	if len(sheet.Header) > 0 {
		if err := setRow(f, name, 1, toRow(sheet.Header)); err != nil {
			return nil, err
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, errors.Wrap(err, "creating header style")
		}
		last, err := excelize.CoordinatesToCellName(len(sheet.Header), 1)
		if err != nil {
			return nil, err
		}
		if err = f.SetCellStyle(name, "A1", last, style); err != nil {
			return nil, errors.Wrap(err, "styling header")
		}
	}

	offset := 1
	if len(sheet.Header) == 0 {
		offset = 0
	}
	for i, row := range sheet.Rows {
		if err := setRow(f, name, i+1+offset, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, 0, len(cells))
	for _, c := range cells {
		row = append(row, c)
	}
	return row
}

func setRow(f *excelize.File, sheet string, n int, row []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return errors.Wrapf(f.SetSheetRow(sheet, cell, &row), "writing row %d", n)
}
