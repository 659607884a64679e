package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsNullLike(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"-", true},
		{"----", true},
		{" -- ", true},
		{"-5", false},
		{"a-b", false},
		{"NULL", false},
		{"0", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNullLike(tt.input), "input %q", tt.input)
	}
}

func TestSanitize(t *testing.T) {
	table := &Table{Columns: []Column{
		{Header: "a", Cells: []Cell{TextCell(""), TextCell("   "), TextCell("-"), TextCell("----")}},
		{Header: "b", Cells: []Cell{NullCell(), TextCell("x"), NumberCell(decimal.NewFromInt(0)), TextCell("-1")}},
	}}

	Sanitize(table)

	for _, c := range table.Columns[0].Cells {
		assert.Equal(t, CellNull, c.Kind)
		assert.Equal(t, NullMarker, c.String())
	}
	b := table.Columns[1].Cells
	assert.Equal(t, "NULL", b[0].String())
	assert.Equal(t, "x", b[1].String())
	assert.Equal(t, "0", b[2].String())
	assert.Equal(t, "-1", b[3].String())
}
