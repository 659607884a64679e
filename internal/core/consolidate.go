package core

// consolidate.go merges same-shaped tables and validates the result.
//
// Validation happens at two points, and both are required:
//  1. CheckHeaders runs as each file finishes processing, so a mismatch aborts
//     the run before any merge and names the first offending file.
//  2. ValidateConsolidation re-checks the merged table: headers again, and that
//     the row count equals the sum of the per-file row counts.

import (
	"errors"
	"fmt"
)

// ConsolidatedFileName is the fixed output name of the consolidated table.
const ConsolidatedFileName = "consolidated_output.csv"

// CheckHeaders compares next's header sequence with first's. The comparison is
// order-sensitive. On mismatch the returned error names next.FileName.
func CheckHeaders(first, next FileStats) error {
	if len(first.Headers) != len(next.Headers) {
		return &PipelineError{
			Kind: KindHeaderMismatch,
			File: next.FileName,
			Err: fmt.Errorf("has %d columns, %q has %d",
				len(next.Headers), first.FileName, len(first.Headers)),
		}
	}

	for i := range first.Headers {
		if first.Headers[i] != next.Headers[i] {
			return &PipelineError{
				Kind: KindHeaderMismatch,
				File: next.FileName,
				Err: fmt.Errorf("column %d is %q, %q has %q",
					i+1, next.Headers[i], first.FileName, first.Headers[i]),
			}
		}
	}

	return nil
}

// Consolidate concatenates tables in order. All tables must share the header
// sequence of the first one; callers normally verify this with CheckHeaders.
func Consolidate(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.New("consolidate: no tables")
	}

	first := tables[0]
	total := 0
	for _, t := range tables {
		if len(t.Columns) != len(first.Columns) {
			return nil, &PipelineError{
				Kind: KindHeaderMismatch,
				Err:  fmt.Errorf("table has %d columns, want %d", len(t.Columns), len(first.Columns)),
			}
		}
		total += t.RowCount()
	}

	out := &Table{Columns: make([]Column, len(first.Columns))}
	for i, col := range first.Columns {
		cells := make([]Cell, 0, total)
		colType := col.Type
		for _, t := range tables {
			other := t.Columns[i]
			if other.Header != col.Header {
				return nil, &PipelineError{
					Kind: KindHeaderMismatch,
					Err:  fmt.Errorf("column %d is %q, want %q", i+1, other.Header, col.Header),
				}
			}
			if other.Type != colType {
				colType = TypeText
			}
			cells = append(cells, other.Cells...)
		}
		out.Columns[i] = Column{Header: col.Header, Type: colType, Cells: cells}
	}

	return out, nil
}

// ValidateConsolidation checks a merged table against the per-file stats it
// was built from. It returns nil when every file shares the first file's
// headers and the merged row count equals the per-file total.
func ValidateConsolidation(perFile []FileStats, consolidated *Table) error {
	if len(perFile) == 0 {
		return nil
	}

	first := perFile[0]
	expected := 0
	for _, fs := range perFile {
		if err := CheckHeaders(first, fs); err != nil {
			return err
		}
		expected += fs.RowCount
	}

	merged := FileStats{FileName: ConsolidatedFileName, Headers: consolidated.Headers()}
	if err := CheckHeaders(first, merged); err != nil {
		return err
	}

	if actual := consolidated.RowCount(); actual != expected {
		return &PipelineError{
			Kind:     KindRowCountMismatch,
			File:     ConsolidatedFileName,
			Expected: expected,
			Actual:   actual,
			Err:      fmt.Errorf("expected %d rows, got %d", expected, actual),
		}
	}

	return nil
}
