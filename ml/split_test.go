package ml

import (
	"reflect"
	"testing"
)

func TestSplitDatasetDeterministic(t *testing.T) {
	ds := separableDataset(t, 50)

	first, err := SplitDataset(ds, 0.2, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := SplitDataset(ds, 0.2, 42)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first.TrainIndex, again.TrainIndex) || !reflect.DeepEqual(first.TestIndex, again.TestIndex) {
			t.Fatal("expected identical partition for identical seed")
		}
		if !reflect.DeepEqual(first.Train.Table.Rows, again.Train.Table.Rows) {
			t.Fatal("expected identical training rows")
		}
	}

	other, err := SplitDataset(ds, 0.2, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reflect.DeepEqual(first.TestIndex, other.TestIndex) {
		t.Fatal("expected a different partition for a different seed")
	}
}

func TestSplitDatasetPartition(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		fraction float64
		wantTest int
	}{
		{name: "even", rows: 50, fraction: 0.2, wantTest: 10},
		{name: "rounds up", rows: 303, fraction: 0.2, wantTest: 61},
		{name: "small", rows: 3, fraction: 0.2, wantTest: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := separableDataset(t, tt.rows)
			split, err := SplitDataset(ds, tt.fraction, DefaultSeed)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if split.Test.Len() != tt.wantTest {
				t.Fatalf("expected %d test rows, got %d", tt.wantTest, split.Test.Len())
			}
			if split.Train.Len()+split.Test.Len() != ds.Len() {
				t.Fatalf("sizes do not add up: %d + %d != %d", split.Train.Len(), split.Test.Len(), ds.Len())
			}

			seen := make(map[int]int)
			train, test := split.Sorted()
			for _, i := range train {
				seen[i]++
			}
			for _, i := range test {
				seen[i]++
			}
			if len(seen) != ds.Len() {
				t.Fatalf("expected %d distinct rows, got %d", ds.Len(), len(seen))
			}
			for i, n := range seen {
				if n != 1 {
					t.Fatalf("row %d appears %d times", i, n)
				}
			}
			for j, idx := range split.TestIndex {
				if split.Test.Labels[j] != ds.Labels[idx] {
					t.Fatalf("test row %d does not match source row %d", j, idx)
				}
			}
		})
	}
}

func TestSplitDatasetErrors(t *testing.T) {
	ds := separableDataset(t, 10)
	for _, fraction := range []float64{0, 1, -0.5, 1.5} {
		if _, err := SplitDataset(ds, fraction, 1); err == nil {
			t.Fatalf("expected error for fraction %v", fraction)
		}
	}
	if _, err := SplitDataset(separableDataset(t, 1), 0.2, 1); err == nil {
		t.Fatal("expected error for a single row")
	}
	if _, err := SplitDataset(nil, 0.2, 1); err == nil {
		t.Fatal("expected error for nil dataset")
	}
}
