package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCollectStats(t *testing.T) {
	table := &Table{Columns: []Column{
		textColumn("name", "a", "b", "a", "NULL"),
		{Header: "amount", Type: TypeNumber, Cells: []Cell{
			NumberCell(decimal.NewFromInt(1)),
			NullCell(),
			NumberCell(decimal.RequireFromString("1.0")),
			NumberCell(decimal.NewFromInt(2)),
		}},
	}}

	stats := CollectStats("sales.csv", table)

	assert.Equal(t, "sales.csv", stats.FileName)
	assert.Equal(t, 4, stats.RowCount)
	assert.Equal(t, 2, stats.ColumnCount)
	assert.Equal(t, []string{"name", "amount"}, stats.Headers)
	assert.Equal(t, map[string]int{"name": 1, "amount": 1}, stats.NullCounts)
	assert.Equal(t, 2, stats.UniqueCount["name"])
	assert.Equal(t, 2, stats.UniqueCount["amount"], "1 and 1.0 are the same value")
}

func TestCollectStats_EmptyTable(t *testing.T) {
	stats := CollectStats("empty.csv", &Table{})

	assert.Zero(t, stats.RowCount)
	assert.Zero(t, stats.ColumnCount)
	assert.Empty(t, stats.Headers)
}
