package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrEmptyCSV        = errors.New("csv has no header row")
	ErrDuplicateHeader = errors.New("csv has a duplicate header")
)

const utf8BOM = "\ufeff"

// CSVTable is a parsed CSV file. Lines[i] is the line in the file Rows[i] was
// read from, the header being line 1.
type CSVTable struct {
	Headers []string
	Rows    []RawRow
	Lines   []int
}

// Resolve is ResolveBatch for the table's rows, with each row keeping its line.
func (t *CSVTable) Resolve(cm ColumnMap, format DateFormat) []ImportRow {
	resolved := ResolveBatch(t.Rows, cm, format)
	for i := range resolved {
		resolved[i].Line = t.Lines[i]
	}
	return resolved
}

// ReadCSV reads a CSV file with a header row. Blank lines and records with only
// empty fields are dropped; short records leave the missing columns empty.
// Two columns with the same name are rejected.
func ReadCSV(r io.Reader) (*CSVTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	seen := make(map[string]int, len(headers))
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headers[i], utf8BOM))
		if headers[i] == "" {
			continue
		}
		if first, ok := seen[headers[i]]; ok {
			return nil, fmt.Errorf("%w: %q in columns %d and %d", ErrDuplicateHeader, headers[i], first+1, i+1)
		}
		seen[headers[i]] = i
	}

	table := &CSVTable{Headers: headers}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(record) {
			continue
		}

		row := make(RawRow, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			} else {
				row[h] = ""
			}
		}
		line, _ := reader.FieldPos(0)
		table.Rows = append(table.Rows, row)
		table.Lines = append(table.Lines, line)
	}

	return table, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
