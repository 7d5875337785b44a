package ml

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// separableTable builds n rows over the FeatureNames columns plus "output",
// where output is 1 exactly when age > 60. Every other column is constant.
func separableTable(n int) *Table {
	columns := append(FeatureNames(), "output")
	table := &Table{Columns: columns}
	for i := 0; i < n; i++ {
		label := i % 2
		age := 30 + float64(i/2)*2
		if label == 1 {
			age = 62 + float64(i/2)*2
		}
		table.Rows = append(table.Rows, []float64{
			age, 1, 0, 120, 200, 0, 0, 150, 0, 1.0, 0, 0, 1, float64(label),
		})
	}
	return table
}

func separableDataset(t *testing.T, n int) *Dataset {
	t.Helper()
	ds, err := NewDataset(separableTable(n), "output")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ds
}

func smallForestConfig() ForestConfig {
	cfg := DefaultForestConfig()
	cfg.TreeCount = 15
	return cfg
}

func writeCSV(t *testing.T, table *Table) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(table.Columns, ","))
	b.WriteByte('\n')
	for _, row := range table.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "heart.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}
