package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableOf(headers []string, rows int) *Table {
	t := &Table{Columns: make([]Column, len(headers))}
	for i, h := range headers {
		cells := make([]Cell, rows)
		for j := range cells {
			cells[j] = TextCell(h)
		}
		t.Columns[i] = Column{Header: h, Cells: cells}
	}
	return t
}

func TestCheckHeaders(t *testing.T) {
	first := FileStats{FileName: "jan.csv", Headers: []string{"a", "b"}}

	tests := []struct {
		name    string
		next    []string
		wantErr bool
	}{
		{name: "identical", next: []string{"a", "b"}},
		{name: "different column", next: []string{"a", "c"}, wantErr: true},
		{name: "different order", next: []string{"b", "a"}, wantErr: true},
		{name: "extra column", next: []string{"a", "b", "c"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckHeaders(first, FileStats{FileName: "feb.csv", Headers: tt.next})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, KindHeaderMismatch, KindOf(err))
			assert.Contains(t, err.Error(), `"feb.csv"`)

			var pe *PipelineError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "feb.csv", pe.File)
		})
	}
}

func TestConsolidate(t *testing.T) {
	merged, err := Consolidate([]*Table{
		tableOf([]string{"a", "b"}, 3),
		tableOf([]string{"a", "b"}, 4),
	})
	require.NoError(t, err)

	assert.Equal(t, 7, merged.RowCount())
	assert.Equal(t, []string{"a", "b"}, merged.Headers())
}

func TestConsolidate_KeepsRowOrder(t *testing.T) {
	first := &Table{Columns: []Column{textColumn("id", "1", "2")}}
	second := &Table{Columns: []Column{textColumn("id", "3")}}

	merged, err := Consolidate([]*Table{first, second})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, renderCells(merged.Columns[0]))
}

func TestConsolidate_MixedTypesFallBackToText(t *testing.T) {
	first := &Table{Columns: []Column{{Header: "v", Type: TypeNumber, Cells: []Cell{NullCell()}}}}
	second := &Table{Columns: []Column{textColumn("v", "x")}}

	merged, err := Consolidate([]*Table{first, second})
	require.NoError(t, err)

	assert.Equal(t, TypeText, merged.Columns[0].Type)
}

func TestConsolidate_RejectsMismatch(t *testing.T) {
	_, err := Consolidate([]*Table{tableOf([]string{"a", "b"}, 1), tableOf([]string{"a", "c"}, 1)})
	assert.Equal(t, KindHeaderMismatch, KindOf(err))

	_, err = Consolidate(nil)
	assert.Error(t, err)
}

func TestValidateConsolidation(t *testing.T) {
	headers := []string{"a", "b"}
	perFile := []FileStats{
		{FileName: "jan.csv", Headers: headers, RowCount: 3},
		{FileName: "feb.csv", Headers: headers, RowCount: 4},
	}

	t.Run("matching totals pass", func(t *testing.T) {
		assert.NoError(t, ValidateConsolidation(perFile, tableOf(headers, 7)))
	})

	t.Run("row count mismatch reports both counts", func(t *testing.T) {
		err := ValidateConsolidation(perFile, tableOf(headers, 6))
		require.Error(t, err)
		assert.Equal(t, KindRowCountMismatch, KindOf(err))

		var pe *PipelineError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 7, pe.Expected)
		assert.Equal(t, 6, pe.Actual)
		assert.Contains(t, err.Error(), "expected 7")
	})

	t.Run("diverging file is named", func(t *testing.T) {
		bad := append([]FileStats{}, perFile...)
		bad = append(bad, FileStats{FileName: "mar.csv", Headers: []string{"a", "c"}, RowCount: 1})

		err := ValidateConsolidation(bad, tableOf(headers, 8))
		assert.Equal(t, KindHeaderMismatch, KindOf(err))
		assert.Contains(t, err.Error(), "mar.csv")
	})

	t.Run("merged headers are checked", func(t *testing.T) {
		err := ValidateConsolidation(perFile, tableOf([]string{"b", "a"}, 7))
		assert.Equal(t, KindHeaderMismatch, KindOf(err))
	})
}
