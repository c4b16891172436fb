// Package tabular reads header-keyed row sets from CSV and XLSX files.
package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header row plus its data rows.
type Table struct {
	Header []string
	Rows   [][]string
	colIdx map[string]int
}

// NewTable indexes header and returns a table over rows. Header cells are
// trimmed; a UTF-8 byte order mark on the first cell is dropped.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: make([]string, len(header)), Rows: rows, colIdx: make(map[string]int, len(header))}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		t.Header[i] = col
		if _, dup := t.colIdx[col]; !dup {
			t.colIdx[col] = i
		}
	}
	return t
}

// Has reports whether every named column is present.
func (t *Table) Has(cols ...string) bool {
	for _, c := range cols {
		if _, ok := t.colIdx[c]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the named columns absent from the header, in input order.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if _, ok := t.colIdx[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Record returns row i.
func (t *Table) Record(i int) Record {
	return Record{row: t.Rows[i], colIdx: t.colIdx}
}

// Record is one data row addressed by column name.
type Record struct {
	row    []string
	colIdx map[string]int
}

// Get returns the trimmed value of col, or "" when the column is absent or
// the row is short.
func (r Record) Get(col string) string {
	idx, ok := r.colIdx[col]
	if !ok || idx >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[idx])
}

// Has reports whether col exists in the header.
func (r Record) Has(col string) bool {
	_, ok := r.colIdx[col]
	return ok
}

// Open reads path as CSV or XLSX depending on its extension. The first row
// is the header.
func Open(ctx context.Context, path string) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "tabular: open csv")
		}
		defer f.Close() //nolint:errcheck
		t, err := ReadCSV(ctx, f)
		return t, eris.Wrapf(err, "tabular: read %s", path)
	case ".xlsx", ".xlsm":
		rows, err := readXLSX(path)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, eris.Errorf("tabular: %s has no header row", path)
		}
		return NewTable(rows[0], rows[1:]), nil
	default:
		return nil, eris.Errorf("tabular: unsupported file type %q (%s)", ext, path)
	}
}
