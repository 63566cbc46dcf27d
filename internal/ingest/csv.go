package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var errEmptyFile = errors.New("no columns to parse from file")

// parseFast is the strict pass: RFC 4180 quoting and a fixed field count.
func parseFast(raw []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errEmptyFile
	}
	table := &Table{Header: records[0]}
	for _, record := range records[1:] {
		if blank(record) {
			continue
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

const (
	delimiter = ','
	quoteChar = '"'
	escape    = '\\'
)

// parseLenient reads comma-separated text with backslash escapes, doubled
// quotes, leading spaces skipped and quotes tolerated mid-field. Rows longer
// than the header are an error when strict, otherwise skipped. Short rows
// are padded.
func parseLenient(raw []byte, strict bool) (*Table, error) {
	lx := &lexer{data: []rune(string(raw)), line: 1}
	var table *Table
	for {
		line := lx.line
		record, err := lx.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(record) {
			continue
		}
		if table == nil {
			table = &Table{Header: record}
			continue
		}
		if len(record) > len(table.Header) {
			if strict {
				return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(table.Header), line, len(record))
			}
			table.Skipped++
			continue
		}
		table.Rows = append(table.Rows, pad(record, len(table.Header)))
	}
	if table == nil {
		return nil, errEmptyFile
	}
	return table, nil
}

type lexer struct {
	data []rune
	pos  int
	line int
}

func (lx *lexer) next() ([]string, error) {
	if lx.pos >= len(lx.data) {
		return nil, io.EOF
	}
	var (
		record     []string
		field      []rune
		inQuotes   bool
		fieldStart = true
	)
	for lx.pos < len(lx.data) {
		ch := lx.data[lx.pos]
		lx.pos++

		if fieldStart && !inQuotes && ch == ' ' {
			continue
		}

		switch {
		case ch == escape:
			if lx.pos >= len(lx.data) {
				return nil, fmt.Errorf("line %d: unexpected end of data after escape character", lx.line)
			}
			escaped := lx.data[lx.pos]
			lx.pos++
			if escaped == '\n' {
				lx.line++
			}
			field = append(field, escaped)
			fieldStart = false
		case inQuotes && ch == quoteChar:
			if lx.pos < len(lx.data) && lx.data[lx.pos] == quoteChar {
				field = append(field, quoteChar)
				lx.pos++
				continue
			}
			inQuotes = false
		case inQuotes:
			if ch == '\n' {
				lx.line++
			}
			field = append(field, ch)
		case ch == quoteChar && fieldStart:
			inQuotes = true
			fieldStart = false
		case ch == delimiter:
			record = append(record, string(field))
			field = field[:0]
			fieldStart = true
		case ch == '\r':
			// dropped; \r\n ends a record at the \n
		case ch == '\n':
			lx.line++
			return append(record, string(field)), nil
		default:
			field = append(field, ch)
			fieldStart = false
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("line %d: EOF inside quoted field", lx.line)
	}
	return append(record, string(field)), nil
}
