// Package ingest turns uploaded membership exports into registry rows.
//
// CSV files are read twice at most: a strict pass with encoding/csv, then a
// lenient pass that understands backslash escapes and stray quoting. The
// strict toggle only decides what the lenient pass does with rows that have
// too many fields.
package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jaam8/council_bot/internal/models"
)

// Table is a parsed upload with every cell kept as text.
type Table struct {
	Header []string
	Rows   [][]string
	// Skipped counts malformed rows dropped by the lenient pass.
	Skipped int
}

func (t *Table) Columns() int {
	return len(t.Header)
}

// Preview returns the first n rows.
func (t *Table) Preview(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// ParseError reports both CSV passes when neither could read the file.
type ParseError struct {
	Fast    error
	Lenient error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("CSV parse failed.\nFast parser: %v\nLenient parser: %v", e.Fast, e.Lenient)
}

// Read parses an upload by file extension.
func Read(name string, raw []byte, strict bool) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return readXLSX(raw)
	case ".csv":
		return readCSV(raw, strict)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFile, name)
	}
}

func readCSV(raw []byte, strict bool) (*Table, error) {
	raw = trimBOM(raw)
	table, fastErr := parseFast(raw)
	if fastErr == nil {
		return table, nil
	}
	table, lenientErr := parseLenient(raw, strict)
	if lenientErr == nil {
		return table, nil
	}
	return nil, &ParseError{Fast: fastErr, Lenient: lenientErr}
}

// RegistryRows maps the table onto registry rows. RegionCode and CustomerID
// must exist as columns; Email and MemberStatus default to empty.
func RegistryRows(t *Table) ([]models.RegistryRow, error) {
	index := make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, required := range []string{models.ColRegionCode, models.ColCustomerID} {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrMissingColumns, strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	rows := make([]models.RegistryRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, models.RegistryRow{
			RegionCode:   cell(row, models.ColRegionCode),
			CustomerID:   cell(row, models.ColCustomerID),
			Email:        cell(row, models.ColEmail),
			MemberStatus: cell(row, models.ColMemberStatus),
		})
	}
	return rows, nil
}

func trimBOM(raw []byte) []byte {
	return bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
}

func blank(record []string) bool {
	for _, field := range record {
		if field != "" {
			return false
		}
	}
	return true
}

// pad stretches short rows to the header width.
func pad(record []string, width int) []string {
	if len(record) >= width {
		return record
	}
	out := make([]string, width)
	copy(out, record)
	return out
}
