package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/clinml/paascreen/pkg/errors"
	"github.com/clinml/paascreen/pkg/log"
)

// LoadCSV reads a comma-delimited file with one header row into a Dataset.
// Column types are inferred: a column is Numeric when every value parses as a
// float64, otherwise it is Categorical. Any malformed row (wrong field count)
// aborts the load; there is no partial recovery.
func LoadCSV(path string) (*Dataset, error) {
	return LoadDelimited(path, ',')
}

// LoadDelimited is LoadCSV with a configurable field delimiter.
func LoadDelimited(path string, comma rune) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: cannot open %s", path)
	}
	defer f.Close()

	ds, err := ReadDelimited(f, comma)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: failed to load %s", path)
	}

	logger := log.GetLoggerWithName("dataset.loader")
	logger.Debug("Loaded delimited file",
		"path", path,
		log.RowsKey, ds.NumRows(),
		log.FeaturesKey, ds.NumCols())
	return ds, nil
}

// ReadDelimited parses delimited data from r. The first record is the header.
func ReadDelimited(r io.Reader, comma rune) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewValueError("dataset.ReadDelimited", "empty input")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}

	raw := make([][]string, len(header))
	nRows := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.Reader reports wrong field counts here; fail fast.
			return nil, errors.Wrapf(err, "reading row %d", nRows+2)
		}
		for j, v := range rec {
			raw[j] = append(raw[j], v)
		}
		nRows++
	}
	if nRows == 0 {
		return nil, errors.NewValueError("dataset.ReadDelimited", "no data rows after header")
	}

	cols := make([]Column, len(header))
	for j, name := range header {
		cols[j] = inferColumn(name, raw[j])
	}
	return New(cols)
}

// inferColumn decides the column kind and parses values accordingly.
func inferColumn(name string, values []string) Column {
	floats := make([]float64, len(values))
	numeric := true
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = f
	}

	if numeric {
		return Column{Name: name, Kind: Numeric, Floats: floats}
	}
	strs := make([]string, len(values))
	copy(strs, values)
	return Column{Name: name, Kind: Categorical, Strings: strs}
}
