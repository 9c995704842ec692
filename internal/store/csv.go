package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// CSVCodec reads and writes comma-separated files with a header line.
type CSVCodec struct{}

// Decode implements Codec.
func (CSVCodec) Decode(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Sheet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return newSheet(header, records), nil
}

// Encode implements Codec.
func (CSVCodec) Encode(w io.Writer, sheet *Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sheet.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(sheet.Records()); err != nil {
		return err
	}
	return cw.Error()
}
