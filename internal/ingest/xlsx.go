package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet; its first non-empty row is the header.
func readXLSX(raw []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("excel: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("excel: read sheet %q: %w", sheets[0], err)
	}

	var table *Table
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if table == nil {
			table = &Table{Header: row}
			continue
		}
		if len(row) > len(table.Header) {
			row = row[:len(table.Header)]
		}
		table.Rows = append(table.Rows, pad(row, len(table.Header)))
	}
	if table == nil {
		return nil, errEmptyFile
	}
	return table, nil
}
