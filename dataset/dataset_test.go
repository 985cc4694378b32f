package dataset

import (
	"math"
	"testing"
)

func buildDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := New([]Column{
		{Name: "subject_id", Kind: Categorical, Strings: []string{"S001", "S002", "S003"}},
		{Name: "alanine", Kind: Numeric, Floats: []float64{310.5, 520.0, 280.2}},
		{Name: "sex", Kind: Categorical, Strings: []string{"F", "M", "F"}},
		{Name: "label", Kind: Numeric, Floats: []float64{0, 1, 0}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return ds
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cols []Column
	}{
		{"no columns", nil},
		{
			"ragged columns",
			[]Column{
				{Name: "a", Kind: Numeric, Floats: []float64{1, 2}},
				{Name: "b", Kind: Numeric, Floats: []float64{1}},
			},
		},
		{
			"duplicate names",
			[]Column{
				{Name: "a", Kind: Numeric, Floats: []float64{1}},
				{Name: "a", Kind: Numeric, Floats: []float64{2}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cols); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDropColumns(t *testing.T) {
	ds := buildDataset(t)

	dropped, err := ds.DropColumns("subject_id")
	if err != nil {
		t.Fatalf("DropColumns failed: %v", err)
	}
	if dropped.NumCols() != 3 {
		t.Errorf("NumCols() = %d, want 3", dropped.NumCols())
	}
	if dropped.HasColumn("subject_id") {
		t.Error("dropped column still present")
	}
	if dropped.NumRows() != ds.NumRows() {
		t.Errorf("row count changed: %d vs %d", dropped.NumRows(), ds.NumRows())
	}

	// Unknown column names are an error, not a no-op.
	if _, err := ds.DropColumns("no_such_column"); err == nil {
		t.Error("expected error for unknown column, got nil")
	}
}

func TestSubset(t *testing.T) {
	ds := buildDataset(t)

	sub, err := ds.Subset([]int{2, 0})
	if err != nil {
		t.Fatalf("Subset failed: %v", err)
	}
	if sub.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", sub.NumRows())
	}

	col, err := sub.Column("alanine")
	if err != nil {
		t.Fatalf("Column failed: %v", err)
	}
	if col.Floats[0] != 280.2 || col.Floats[1] != 310.5 {
		t.Errorf("subset rows out of order: %v", col.Floats)
	}

	if _, err := ds.Subset([]int{5}); err == nil {
		t.Error("expected error for out-of-range index, got nil")
	}
}

func TestFeatureMatrix(t *testing.T) {
	ds := buildDataset(t)

	// Categorical columns must be encoded before feature extraction.
	if _, _, err := ds.FeatureMatrix("label"); err == nil {
		t.Error("expected error for categorical column, got nil")
	}

	numeric, err := New([]Column{
		{Name: "alanine", Kind: Numeric, Floats: []float64{310.5, 520.0, 280.2}},
		{Name: "glycine", Kind: Numeric, Floats: []float64{200.0, 240.0, 190.0}},
		{Name: "label", Kind: Numeric, Floats: []float64{0, 1, 0}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	X, y, err := numeric.FeatureMatrix("label")
	if err != nil {
		t.Fatalf("FeatureMatrix failed: %v", err)
	}

	rows, cols := X.Dims()
	if rows != 3 || cols != 2 {
		t.Errorf("X dims = (%d, %d), want (3, 2)", rows, cols)
	}
	if X.At(1, 0) != 520.0 {
		t.Errorf("X[1,0] = %v, want 520.0", X.At(1, 0))
	}
	if y.AtVec(1) != 1 {
		t.Errorf("y[1] = %v, want 1", y.AtVec(1))
	}

	if _, _, err := numeric.FeatureMatrix("no_such_label"); err == nil {
		t.Error("expected error for missing label column, got nil")
	}
}

func TestCheckFinite(t *testing.T) {
	ds, err := New([]Column{
		{Name: "a", Kind: Numeric, Floats: []float64{1, math.NaN(), 3}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := ds.CheckFinite(); err == nil {
		t.Error("expected error for NaN value, got nil")
	}

	clean := buildDataset(t)
	if err := clean.CheckFinite(); err != nil {
		t.Errorf("CheckFinite on clean data failed: %v", err)
	}
}
