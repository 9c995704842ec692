package store

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheetName = "Sheet1"

// XLSXCodec reads and writes the first worksheet of an Excel workbook.
type XLSXCodec struct{}

// Decode implements Codec.
func (XLSXCodec) Decode(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Sheet{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return &Sheet{}, nil
	}
	return newSheet(rows[0], rows[1:]), nil
}

// Encode implements Codec.
func (XLSXCodec) Encode(w io.Writer, sheet *Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, col := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(defaultSheetName, cell, col); err != nil {
			return fmt.Errorf("set header %s: %w", cell, err)
		}
	}

	for rowIdx, rec := range sheet.Records() {
		for colIdx, val := range rec {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(defaultSheetName, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	return f.Write(w)
}
