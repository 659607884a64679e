package core

import "strings"

// IsNullLike reports whether text is a placeholder for a missing value:
// empty, whitespace-only, or a run of one or more dashes.
func IsNullLike(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	return strings.Trim(s, "-") == ""
}

// isNullCell reports whether a cell counts as null before sanitization.
func isNullCell(c Cell) bool {
	switch c.Kind {
	case CellNull:
		return true
	case CellText:
		return IsNullLike(c.Text)
	default:
		return false
	}
}

// Sanitize replaces every null-like cell with the null marker. The table is
// modified in place and returned for chaining.
func Sanitize(t *Table) *Table {
	for i := range t.Columns {
		cells := t.Columns[i].Cells
		for j, c := range cells {
			if isNullCell(c) {
				cells[j] = NullCell()
			}
		}
	}
	return t
}
