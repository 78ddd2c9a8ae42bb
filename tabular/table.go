// Package tabular reads and writes header-first CSV tables as ordered rows of
// column-name to value maps.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\ufeff"

// Row maps column names to cell values for one data row
type Row = map[string]string

// ReadTable reads the CSV file at path. Failures are reported as *LoadError.
func ReadTable(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return rows, nil
}

// ReadRows reads a CSV table from r, one Row per data line in input order.
// Cells past the end of the header are dropped. A short line leaves its
// trailing columns absent from the Row rather than set to "". Quoting is
// lenient: a quote inside an unquoted cell (12" gate valve) is kept as text.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}

		row := make(Row, len(header))
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteTable writes header and rows to path, replacing any existing file.
// Failures are reported as *WriteError.
func WriteTable(path string, header []string, rows [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &WriteError{Path: path, Err: cerr}
		}
	}()

	if err := WriteRows(f, header, rows); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// WriteRows writes header followed by rows to w as CSV
func WriteRows(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
