package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// NullMarker is the literal written for blank, placeholder and missing values.
const NullMarker = "NULL"

// TimestampLayout is the serialization format for every normalized timestamp.
const TimestampLayout = "2006-01-02 15:04:05-0700"

// CellKind identifies which field of a Cell holds the value.
type CellKind int

const (
	CellNull CellKind = iota
	CellText
	CellNumber
	CellTime
)

// Cell is a single spreadsheet value.
type Cell struct {
	Kind   CellKind
	Text   string
	Number decimal.Decimal
	Time   time.Time
}

// NullCell returns a cell holding no value.
func NullCell() Cell { return Cell{Kind: CellNull} }

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// NumberCell returns a numeric cell.
func NumberCell(d decimal.Decimal) Cell { return Cell{Kind: CellNumber, Number: d} }

// ParsedNumberCell returns a numeric cell that renders as its source text, so
// leading zeros, trailing zeros and exponents survive output.
func ParsedNumberCell(d decimal.Decimal, source string) Cell {
	return Cell{Kind: CellNumber, Number: d, Text: source}
}

// TimeCell returns a timestamp cell.
func TimeCell(t time.Time) Cell { return Cell{Kind: CellTime, Time: t} }

// IsNull reports whether the cell is a native null or already holds the null marker.
func (c Cell) IsNull() bool {
	return c.Kind == CellNull || (c.Kind == CellText && c.Text == NullMarker)
}

// String renders the cell the way it is written to CSV.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		if c.Text != "" {
			return c.Text
		}
		return c.Number.String()
	case CellTime:
		return c.Time.Format(TimestampLayout)
	default:
		return NullMarker
	}
}

// ColumnType is the structurally detected type of a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeNumber
	TypeDateTime
)

func (t ColumnType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeDateTime:
		return "datetime"
	default:
		return "text"
	}
}

// Column is a named sequence of cells.
type Column struct {
	Header string
	Type   ColumnType
	Cells  []Cell
}

// Table is an ordered set of equal-length columns.
type Table struct {
	Columns []Column
}

// RawTable is a table as decoded from a source file, before any normalization.
type RawTable struct {
	Name string // Source file name
	Table
}

// Headers returns the column headers in order.
func (t *Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	return headers
}

// RowCount returns the number of rows. All columns share the same length.
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Clone returns a deep copy of the table so callers can transform it freely.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.Columns[i] = Column{Header: c.Header, Type: c.Type, Cells: cells}
	}
	return out
}

// Warning describes a recoverable, column-level problem.
type Warning struct {
	File    string `json:"file"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

// FileStats is a read-only snapshot of a processed table.
type FileStats struct {
	FileName    string         `json:"file_name"`
	RowCount    int            `json:"row_count"`
	ColumnCount int            `json:"column_count"`
	Headers     []string       `json:"headers"`
	NullCounts  map[string]int `json:"null_counts,omitempty"`
	UniqueCount map[string]int `json:"unique_counts,omitempty"`
}

// ProcessOptions controls how a single table is normalized.
type ProcessOptions struct {
	NormalizeHeaders bool
	Location         *time.Location
	SampleSize       int
}

// ProcessResult is the output of processing one table.
type ProcessResult struct {
	Table            *Table
	TimestampColumns []string
	Warnings         []Warning
}
