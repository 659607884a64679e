package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawTable(name string, cols ...Column) *RawTable {
	return &RawTable{Name: name, Table: Table{Columns: cols}}
}

func TestProcessor_Process(t *testing.T) {
	raw := rawTable("orders.csv",
		textColumn("Order ID#!", "1", "2", "3"),
		textColumn("  Ship   Time ", "2024-01-05 10:30", "", "later"),
		textColumn("Note", "ok", "----", "   "),
	)

	result, err := NewProcessor(nil).Process(raw, ProcessOptions{
		NormalizeHeaders: true,
		Location:         mustLocation(t, DefaultTimezone),
	})
	require.NoError(t, err)

	table := result.Table
	assert.Equal(t, []string{"order_id", "ship_time", "note"}, table.Headers())
	assert.Equal(t, []string{"ship_time"}, result.TimestampColumns)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, []string{"2024-01-05 02:30:00+0000", "NULL", "NULL"}, renderCells(table.Columns[1]))
	assert.Equal(t, []string{"ok", "NULL", "NULL"}, renderCells(table.Columns[2]))

	// Input is left untouched.
	assert.Equal(t, "Order ID#!", raw.Columns[0].Header)
	assert.Equal(t, "----", raw.Columns[2].Cells[1].Text)
}

func TestProcessor_HeadersKeptWhenDisabled(t *testing.T) {
	raw := rawTable("a.csv", textColumn("Order ID", "1"), textColumn("Total $", "2"))

	result, err := NewProcessor(nil).Process(raw, ProcessOptions{Location: time.UTC})
	require.NoError(t, err)

	assert.Equal(t, []string{"Order ID", "Total $"}, result.Table.Headers())
}

func TestProcessor_ColumnFailureBecomesWarning(t *testing.T) {
	raw := rawTable("bad.csv",
		textColumn("created", "2024-13-45 99:99", "2024-99-01 10:30"),
		textColumn("name", "a", ""),
	)

	result, err := NewProcessor(nil).Process(raw, ProcessOptions{NormalizeHeaders: true, Location: time.UTC})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	w := result.Warnings[0]
	assert.Equal(t, "bad.csv", w.File)
	assert.Equal(t, "created", w.Column)
	assert.Empty(t, result.TimestampColumns)

	assert.Equal(t, []string{"2024-13-45 99:99", "2024-99-01 10:30"}, renderCells(result.Table.Columns[0]))
	assert.Equal(t, []string{"a", "NULL"}, renderCells(result.Table.Columns[1]))
}

func TestProcessor_HeaderCollisionNamesFile(t *testing.T) {
	raw := rawTable("dupes.xlsx", textColumn("Order ID", "1"), textColumn("order id!", "2"))

	_, err := NewProcessor(nil).Process(raw, ProcessOptions{NormalizeHeaders: true})

	require.Error(t, err)
	assert.Equal(t, KindHeaderCollision, KindOf(err))
	assert.Contains(t, err.Error(), "dupes.xlsx")
}

func TestProcessor_TimeRangesLeftAlone(t *testing.T) {
	raw := rawTable("shifts.csv", textColumn("Slot", "10:30-10:45", "11:00-11:15"))

	result, err := NewProcessor(nil).Process(raw, ProcessOptions{NormalizeHeaders: true, Location: time.UTC})
	require.NoError(t, err)

	assert.Empty(t, result.TimestampColumns)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []string{"10:30-10:45", "11:00-11:15"}, renderCells(result.Table.Columns[0]))
}
