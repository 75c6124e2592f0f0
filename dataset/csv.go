// Package dataset loads the semicolon-delimited wine quality table and
// fetches it from a local file, an HTTP(S) URL or a Cloud Storage object.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/wine"
	"gonum.org/v1/gonum/mat"
)

// Dataset is the parsed table with columns reordered to wine.FeatureNames.
type Dataset struct {
	X        *mat.Dense
	Y        *mat.VecDense
	Features []string
}

// Samples returns the number of rows.
func (d *Dataset) Samples() int {
	r, _ := d.X.Dims()
	return r
}

// Load parses a semicolon-delimited CSV with a header row. The header must
// name exactly the eleven feature columns and "quality", in any order.
func Load(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("dataset.Load", "missing header row", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "dataset: read header")
	}
	featureCols, targetCol, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var (
		xs []float64
		ys []float64
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "dataset: read row")
		}

		for _, col := range featureCols {
			v, err := parseCell(reader, record, col)
			if err != nil {
				return nil, err
			}
			xs = append(xs, v)
		}
		v, err := parseCell(reader, record, targetCol)
		if err != nil {
			return nil, err
		}
		ys = append(ys, v)
	}

	if len(ys) == 0 {
		return nil, errors.NewModelError("dataset.Load", "no data rows", errors.ErrEmptyData)
	}
	return &Dataset{
		X:        mat.NewDense(len(ys), wine.NumFeatures, xs),
		Y:        mat.NewVecDense(len(ys), ys),
		Features: wine.FeatureNames(),
	}, nil
}

// mapHeader returns, for each feature in model order, its column index in
// the file, plus the index of the target column.
func mapHeader(header []string) ([]int, int, error) {
	want := wine.NumFeatures + 1
	if len(header) != want {
		return nil, 0, errors.NewValueError("dataset.Load",
			fmt.Sprintf("header has %d columns, want exactly %d (11 features plus %q)", len(header), want, wine.TargetColumn))
	}

	featureCols := make([]int, wine.NumFeatures)
	for i := range featureCols {
		featureCols[i] = -1
	}
	targetCol := -1

	for i, raw := range header {
		name := normalizeHeader(raw)
		if name == wine.TargetColumn {
			if targetCol >= 0 {
				return nil, 0, errors.NewValueError("dataset.Load", fmt.Sprintf("duplicate column %q", name))
			}
			targetCol = i
			continue
		}
		idx := wine.IndexOf(name)
		if idx < 0 {
			return nil, 0, errors.NewValueError("dataset.Load", fmt.Sprintf("unexpected column %q", name))
		}
		if featureCols[idx] >= 0 {
			return nil, 0, errors.NewValueError("dataset.Load", fmt.Sprintf("duplicate column %q", name))
		}
		featureCols[idx] = i
	}

	if targetCol < 0 {
		return nil, 0, errors.NewValueError("dataset.Load", fmt.Sprintf("missing column %q", wine.TargetColumn))
	}
	for idx, col := range featureCols {
		if col < 0 {
			return nil, 0, errors.NewValueError("dataset.Load", fmt.Sprintf("missing column %q", wine.FeatureNames()[idx]))
		}
	}
	return featureCols, targetCol, nil
}

func normalizeHeader(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	return strings.TrimSpace(strings.Trim(s, `"'`))
}

func parseCell(reader *csv.Reader, record []string, col int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	if err == nil && !errors.IsFinite(v) {
		err = errors.New("value is not finite")
	}
	if err != nil {
		line, column := reader.FieldPos(col)
		return 0, errors.NewValueError("dataset.Load",
			fmt.Sprintf("line %d, column %d: cannot parse %q: %v", line, column, record[col], err))
	}
	return v, nil
}
