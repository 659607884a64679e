package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// OutputFileName derives the CSV name for a source file by replacing its
// extension: "sales.xlsx" becomes "sales.csv".
func OutputFileName(source string) string {
	base := filepath.Base(source)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ".csv"
}

// WriteCSV writes the header row followed by every data row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Headers()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for i := 0; i < t.RowCount(); i++ {
		for j, col := range t.Columns {
			record[j] = col.Cells[i].String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
