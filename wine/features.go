// Package wine describes the eleven physicochemical measurements used to
// score a red wine, their accepted input ranges, and the quality assessment
// derived from a prediction.
package wine

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
)

// NumFeatures is the length of every feature vector.
const NumFeatures = 11

// TargetColumn is the CSV header of the quality score.
const TargetColumn = "quality"

// Feature is one measurement: its CSV column, UI label and input bounds.
type Feature struct {
	Column  string  `json:"column"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
	Format  string  `json:"format"`
}

// 列順は学習時と推論時で一致していなければならない
var features = [NumFeatures]Feature{
	{Column: "fixed acidity", Label: "Fixed Acidity (g/dm³)", Min: 4.0, Max: 16.0, Default: 8.3, Step: 0.01, Format: "%.2f"},
	{Column: "volatile acidity", Label: "Volatile Acidity (g/dm³)", Min: 0.1, Max: 1.6, Default: 0.5, Step: 0.01, Format: "%.2f"},
	{Column: "citric acid", Label: "Citric Acid (g/dm³)", Min: 0.0, Max: 1.0, Default: 0.27, Step: 0.01, Format: "%.2f"},
	{Column: "residual sugar", Label: "Residual Sugar (g/dm³)", Min: 0.9, Max: 15.5, Default: 2.5, Step: 0.01, Format: "%.2f"},
	{Column: "chlorides", Label: "Chlorides (g/dm³)", Min: 0.01, Max: 0.6, Default: 0.08, Step: 0.01, Format: "%.2f"},
	{Column: "free sulfur dioxide", Label: "Free Sulfur Dioxide", Min: 1, Max: 72, Default: 15, Step: 1, Format: "%d"},
	{Column: "total sulfur dioxide", Label: "Total Sulfur Dioxide", Min: 6, Max: 289, Default: 46, Step: 1, Format: "%d"},
	{Column: "density", Label: "Density (g/cm³)", Min: 0.9900, Max: 1.0040, Default: 0.9960, Step: 0.0001, Format: "%.4f"},
	{Column: "pH", Label: "pH Level", Min: 2.7, Max: 4.0, Default: 3.3, Step: 0.01, Format: "%.2f"},
	{Column: "sulphates", Label: "Sulphates (g/dm³)", Min: 0.3, Max: 2.0, Default: 0.65, Step: 0.01, Format: "%.2f"},
	{Column: "alcohol", Label: "Alcohol Volume %", Min: 8.0, Max: 15.0, Default: 10.5, Step: 0.01, Format: "%.2f"},
}

// Features returns the ordered feature table.
func Features() []Feature {
	out := make([]Feature, NumFeatures)
	copy(out, features[:])
	return out
}

// FeatureNames returns the CSV column names in model order.
func FeatureNames() []string {
	names := make([]string, NumFeatures)
	for i, f := range features {
		names[i] = f.Column
	}
	return names
}

// IndexOf returns the position of column in the feature vector, or -1.
func IndexOf(column string) int {
	for i, f := range features {
		if f.Column == column {
			return i
		}
	}
	return -1
}

// Slug is the form field name for the feature: lower case, spaces as
// underscores ("free sulfur dioxide" -> "free_sulfur_dioxide").
func (f Feature) Slug() string {
	return strings.ReplaceAll(strings.ToLower(f.Column), " ", "_")
}

// Integral reports whether the feature only takes whole numbers.
func (f Feature) Integral() bool {
	return f.Format == "%d"
}

// FormatValue renders v with the feature's display precision.
func (f Feature) FormatValue(v float64) string {
	if f.Integral() {
		return fmt.Sprintf("%d", int64(math.Round(v)))
	}
	return fmt.Sprintf(f.Format, v)
}

// StepString is the HTML step attribute.
func (f Feature) StepString() string {
	return f.FormatValue(f.Step)
}

func (f Feature) check(v float64) *errors.ValidationError {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &errors.ValidationError{ParamName: f.Column, Reason: "must be a finite number", Value: v}
	case v < f.Min || v > f.Max:
		return &errors.ValidationError{
			ParamName: f.Column,
			Reason:    fmt.Sprintf("must be between %s and %s", f.FormatValue(f.Min), f.FormatValue(f.Max)),
			Value:     v,
		}
	case f.Integral() && v != math.Trunc(v):
		return &errors.ValidationError{ParamName: f.Column, Reason: "must be a whole number", Value: v}
	}
	return nil
}

// Vector holds one value per feature in FeatureNames order.
type Vector [NumFeatures]float64

// DefaultVector returns the documented default measurements.
func DefaultVector() Vector {
	var v Vector
	for i, f := range features {
		v[i] = f.Default
	}
	return v
}

// Validate checks every value against its feature's inclusive bounds. All
// failures are returned together as errors.ValidationErrors.
func (v Vector) Validate() error {
	var errs errors.ValidationErrors
	for i, f := range features {
		if e := f.check(v[i]); e != nil {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Slice returns the values as a new slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// VectorFromSlice copies exactly NumFeatures values into a Vector.
func VectorFromSlice(values []float64) (Vector, error) {
	var v Vector
	if len(values) != NumFeatures {
		return v, errors.NewDimensionError("wine.VectorFromSlice", NumFeatures, len(values), 0)
	}
	copy(v[:], values)
	return v, nil
}

// VectorFromMap builds a Vector from values keyed by column name. Every
// column must be present and no unknown column is allowed.
func VectorFromMap(values map[string]float64) (Vector, error) {
	var (
		v    Vector
		errs errors.ValidationErrors
	)
	for i, f := range features {
		val, ok := values[f.Column]
		if !ok {
			errs = append(errs, &errors.ValidationError{ParamName: f.Column, Reason: "is required", Value: nil})
			continue
		}
		v[i] = val
	}
	for column, val := range values {
		if IndexOf(column) < 0 {
			errs = append(errs, &errors.ValidationError{ParamName: column, Reason: "is not a known feature", Value: val})
		}
	}
	if len(errs) > 0 {
		return v, errs
	}
	return v, nil
}
