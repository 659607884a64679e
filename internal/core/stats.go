package core

// CollectStats computes a FileStats snapshot of a table. It never fails for a
// structurally valid table and does not modify it.
func CollectStats(name string, t *Table) FileStats {
	stats := FileStats{
		FileName:    name,
		RowCount:    t.RowCount(),
		ColumnCount: len(t.Columns),
		Headers:     t.Headers(),
		NullCounts:  make(map[string]int, len(t.Columns)),
		UniqueCount: make(map[string]int, len(t.Columns)),
	}

	for _, col := range t.Columns {
		nulls := 0
		distinct := make(map[string]struct{})
		for _, c := range col.Cells {
			if c.IsNull() || isNullCell(c) {
				nulls++
				continue
			}
			key := c.String()
			if c.Kind == CellNumber {
				key = c.Number.String()
			}
			distinct[key] = struct{}{}
		}
		stats.NullCounts[col.Header] = nulls
		stats.UniqueCount[col.Header] = len(distinct)
	}

	return stats
}
