package core

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFileName(t *testing.T) {
	tests := map[string]string{
		"sales.xlsx":            "sales.csv",
		"sales.csv":             "sales.csv",
		"dir/report.final.xlsx": "report.final.csv",
		"noext":                 "noext.csv",
		".hidden":               ".hidden.csv",
	}
	for in, want := range tests {
		assert.Equal(t, want, OutputFileName(in), "input %q", in)
	}
}

func TestWriteCSV(t *testing.T) {
	table := &Table{Columns: []Column{
		{Header: "id", Type: TypeNumber, Cells: []Cell{NumberCell(decimal.NewFromInt(1)), NumberCell(decimal.RequireFromString("2.50"))}},
		{Header: "created_at", Type: TypeDateTime, Cells: []Cell{TimeCell(time.Date(2024, 1, 5, 2, 30, 0, 0, time.UTC)), NullCell()}},
		{Header: "note", Cells: []Cell{TextCell("a, b"), TextCell(`say "hi"`)}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	want := "id,created_at,note\n" +
		"1,2024-01-05 02:30:00+0000,\"a, b\"\n" +
		"2.5,NULL,\"say \"\"hi\"\"\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, &Table{Columns: []Column{{Header: "a"}, {Header: "b"}}}))

	assert.Equal(t, "a,b\n", buf.String())
}
