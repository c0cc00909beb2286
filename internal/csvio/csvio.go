package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table holds one parsed CSV file. Headers keep the column order of the
// source file; every row maps header name to the raw cell value.
type Table struct {
	Path    string
	Headers []string
	Rows    []map[string]string
}

// ReadFile parses the CSV file at path into a Table.
func ReadFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %q: %w", path, err)
	}
	defer file.Close()

	return Read(file, path)
}

// Read parses CSV content from r. The first record is treated as the header
// row. Short records are padded with empty fields, long records are truncated
// to the header width.
func Read(r io.Reader, path string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %q: %w", path, err)
	}

	table := &Table{Path: path}
	if len(records) == 0 {
		return table, nil
	}

	for _, header := range records[0] {
		table.Headers = append(table.Headers, strings.TrimSpace(header))
	}

	for _, record := range records[1:] {
		row := make(map[string]string, len(table.Headers))
		for i, header := range table.Headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table header contains the given column.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, header := range t.Headers {
		if header == name {
			return true
		}
	}
	return false
}
