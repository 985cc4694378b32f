// Package dataset provides the tabular in-memory representation used by the
// screening pipeline: a fixed-schema table of numeric and categorical columns
// loaded from a delimited file.
package dataset

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/pkg/errors"
)

// ColumnKind distinguishes numeric measurement columns from categorical ones.
type ColumnKind int

const (
	// Numeric columns hold float64 measurements.
	Numeric ColumnKind = iota
	// Categorical columns hold free-form string values.
	Categorical
)

// String returns the column kind name.
func (k ColumnKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Column is a single named column of a Dataset. Exactly one of Floats or
// Strings is populated, depending on Kind.
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Strings []string
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// Dataset is an ordered collection of records with a fixed schema. All
// columns have the same length. A Dataset is treated as immutable once it has
// been handed to the splitter.
type Dataset struct {
	cols   []Column
	byName map[string]int
	nRows  int
}

// New builds a Dataset from columns. All columns must share the same length
// and names must be unique.
func New(cols []Column) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("dataset.New", "no columns")
	}

	nRows := cols[0].Len()
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Len() != nRows {
			return nil, errors.NewDimensionError("dataset.New", nRows, c.Len(), 0)
		}
		if _, dup := byName[c.Name]; dup {
			return nil, errors.NewValueError("dataset.New", "duplicate column name: "+c.Name)
		}
		byName[c.Name] = i
	}

	return &Dataset{cols: cols, byName: byName, nRows: nRows}, nil
}

// NumRows returns the number of records.
func (d *Dataset) NumRows() int { return d.nRows }

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.cols) }

// ColumnNames returns column names in schema order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, error) {
	idx, ok := d.byName[name]
	if !ok {
		return nil, errors.NewValueError("dataset.Column", "no such column: "+name)
	}
	return &d.cols[idx], nil
}

// DropColumns returns a new Dataset without the named columns. Dropping an
// unknown column is an error rather than a no-op.
func (d *Dataset) DropColumns(names ...string) (*Dataset, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !d.HasColumn(name) {
			return nil, errors.NewValueError("dataset.DropColumns", "no such column: "+name)
		}
		drop[name] = true
	}

	kept := make([]Column, 0, len(d.cols)-len(names))
	for _, c := range d.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	return New(kept)
}

// Subset returns a new Dataset containing the given rows, in order.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= d.nRows {
			return nil, errors.NewValueError("dataset.Subset", "row index out of range")
		}
	}

	cols := make([]Column, len(d.cols))
	for i, c := range d.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			nc.Floats = make([]float64, len(indices))
			for j, idx := range indices {
				nc.Floats[j] = c.Floats[idx]
			}
		} else {
			nc.Strings = make([]string, len(indices))
			for j, idx := range indices {
				nc.Strings[j] = c.Strings[idx]
			}
		}
		cols[i] = nc
	}
	return New(cols)
}

// FeatureMatrix assembles the numeric feature matrix and the label vector.
// Every column other than labelCol must be numeric; the label column must be
// numeric as well (run the encoder first for categorical data).
func (d *Dataset) FeatureMatrix(labelCol string) (*mat.Dense, *mat.VecDense, error) {
	if !d.HasColumn(labelCol) {
		return nil, nil, errors.NewValueError("dataset.FeatureMatrix", "no such label column: "+labelCol)
	}

	features := make([]*Column, 0, len(d.cols)-1)
	var label *Column
	for i := range d.cols {
		c := &d.cols[i]
		if c.Kind != Numeric {
			return nil, nil, errors.NewValueError("dataset.FeatureMatrix",
				"column "+c.Name+" is categorical; encode the dataset first")
		}
		if c.Name == labelCol {
			label = c
			continue
		}
		features = append(features, c)
	}
	if len(features) == 0 {
		return nil, nil, errors.NewValueError("dataset.FeatureMatrix", "no feature columns")
	}

	X := mat.NewDense(d.nRows, len(features), nil)
	for j, c := range features {
		for i := 0; i < d.nRows; i++ {
			X.Set(i, j, c.Floats[i])
		}
	}
	y := mat.NewVecDense(d.nRows, nil)
	for i := 0; i < d.nRows; i++ {
		y.SetVec(i, label.Floats[i])
	}
	return X, y, nil
}

// CheckFinite fails if any numeric column contains NaN or Inf.
func (d *Dataset) CheckFinite() error {
	for _, c := range d.cols {
		if c.Kind != Numeric {
			continue
		}
		for _, v := range c.Floats {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewNumericalInstabilityError("dataset.CheckFinite", []float64{v}, 0)
			}
		}
	}
	return nil
}
