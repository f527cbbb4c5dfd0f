// Package ingest loads vendor spreadsheets into rows keyed by canonical
// field name.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/GapFill/internal/types"
)

// Reader converts spreadsheet files to rows.
type Reader struct {
	columns *ColumnNormalizer
}

// NewReader creates a Reader using the given column aliases.
func NewReader(aliases map[string][]string) *Reader {
	return &Reader{columns: NewColumnNormalizer(aliases)}
}

// ReadFile opens path and reads it according to its extension.
func (r *Reader) ReadFile(path string) ([]types.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.IngestError{File: path, Err: err}
	}
	defer f.Close()
	return r.Read(path, f)
}

// Read parses src as the format implied by name's extension.
// The first row is the header; fully empty rows are skipped.
func (r *Reader) Read(name string, src io.Reader) ([]types.Row, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		records, err = readCSV(src)
	case ".xlsx", ".xlsm", ".xls":
		records, err = readXLSX(src)
	default:
		return nil, &types.IngestError{File: name, Err: fmt.Errorf("%w: %q", types.ErrUnsupportedFile, ext)}
	}
	if err != nil {
		return nil, &types.IngestError{File: name, Err: err}
	}
	return r.toRows(records), nil
}

func (r *Reader) toRows(records [][]string) []types.Row {
	if len(records) == 0 {
		return nil
	}

	headers := r.columns.Map(records[0])
	rows := make([]types.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		row := types.NewRow()
		for i, h := range headers {
			if h == "" {
				continue
			}
			var v string
			if i < len(record) {
				v = record[i]
			}
			row.Set(h, v)
		}
		rows = append(rows, row)
	}
	return rows
}

func readCSV(src io.Reader) ([][]string, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// readXLSX returns the rows of the first sheet.
func readXLSX(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
