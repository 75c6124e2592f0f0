package preprocessing

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/vinoscore/core/model"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStandardScaler_Fit(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	s := NewStandardScaler()
	require.NoError(t, s.Fit(X))

	assert.InDeltaSlice(t, []float64{2.5, 25}, s.Mean, 1e-12)
	// 母標準偏差: sqrt(1.25)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	assert.InDelta(t, math.Sqrt(125), s.Scale[1], 1e-12)
	assert.Equal(t, 2, s.NFeatures)
	assert.True(t, s.IsFitted())
}

func TestStandardScaler_TransformZeroMeanUnitVariance(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{2, 4, 4, 5, 7})

	s := NewStandardScaler()
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	var sum, sumSq float64
	for i := 0; i < 5; i++ {
		v := out.At(i, 0)
		sum += v
		sumSq += v * v
	}
	assert.InDelta(t, 0, sum/5, 1e-12)
	assert.InDelta(t, 1, sumSq/5, 1e-12)
}

func TestStandardScaler_ZeroVarianceColumn(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
	})

	s := NewStandardScaler()
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.Scale[1])
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, out.At(i, 1))
	}
}

func TestStandardScaler_InverseTransform(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		7.4, 0.70,
		7.8, 0.88,
		11.2, 0.28,
	})

	s := NewStandardScaler()
	scaled, err := s.FitTransform(X)
	require.NoError(t, err)

	back, err := s.InverseTransform(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScaler_Errors(t *testing.T) {
	tests := []struct {
		name  string
		run   func() error
		check func(t *testing.T, err error)
	}{
		{
			name: "transform before fit",
			run: func() error {
				_, err := NewStandardScaler().Transform(mat.NewDense(1, 1, []float64{1}))
				return err
			},
			check: func(t *testing.T, err error) {
				var nf *errors.NotFittedError
				assert.True(t, errors.As(err, &nf))
			},
		},
		{
			name: "empty data",
			run: func() error {
				return NewStandardScaler().Fit(&mat.Dense{})
			},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errors.ErrEmptyData))
			},
		},
		{
			name: "column mismatch",
			run: func() error {
				s := NewStandardScaler()
				if err := s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
					return err
				}
				_, err := s.Transform(mat.NewDense(1, 3, []float64{1, 2, 3}))
				return err
			},
			check: func(t *testing.T, err error) {
				var dim *errors.DimensionError
				assert.True(t, errors.As(err, &dim))
			},
		},
		{
			name: "feature names do not match columns",
			run: func() error {
				return NewStandardScaler(WithFeatureNames([]string{"a"})).Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
			},
			check: func(t *testing.T, err error) {
				var dim *errors.DimensionError
				assert.True(t, errors.As(err, &dim))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestStandardScaler_FeatureNames(t *testing.T) {
	names := []string{"alcohol", "pH"}
	s := NewStandardScaler(WithFeatureNames(names))
	names[0] = "mutated"

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{10, 3.1, 12, 3.5})))
	assert.True(t, s.MatchesFeatures([]string{"alcohol", "pH"}))
	assert.False(t, s.MatchesFeatures([]string{"pH", "alcohol"}))
}

func TestStandardScaler_GobRoundTrip(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 7})
	s := NewStandardScaler(WithFeatureNames([]string{"a", "b"}))
	require.NoError(t, s.Fit(X))

	data, err := model.EncodeGob(s)
	require.NoError(t, err)

	var restored StandardScaler
	require.NoError(t, model.DecodeGob(data, &restored))
	assert.True(t, restored.IsFitted())
	assert.Equal(t, s.FeatureNames, restored.FeatureNames)

	want, err := s.Transform(X)
	require.NoError(t, err)
	got, err := restored.Transform(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
