package model_selection

import (
	"math"
	"sort"
	"testing"

	"github.com/YuminosukeSato/vinoscore/core/model"
	"github.com/YuminosukeSato/vinoscore/linear"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestKFold(t *testing.T) {
	tests := []struct {
		name      string
		nSamples  int
		nSplits   int
		shuffle   bool
		wantSizes []int
	}{
		{"even", 10, 5, false, []int{2, 2, 2, 2, 2}},
		{"remainder goes to first folds", 12, 5, true, []int{3, 3, 2, 2, 2}},
		{"wine sized", 1599, 5, true, []int{320, 320, 320, 320, 319}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kf := NewKFold(tt.nSplits, tt.shuffle, 42)
			folds, err := kf.Split(tt.nSamples)
			require.NoError(t, err)
			require.Len(t, folds, tt.nSplits)

			seen := make([]int, tt.nSamples)
			for i, fold := range folds {
				assert.Len(t, fold.TestIndices, tt.wantSizes[i])
				assert.Len(t, fold.TrainIndices, tt.nSamples-tt.wantSizes[i])
				for _, idx := range fold.TestIndices {
					seen[idx]++
				}

				all := append(append([]int{}, fold.TrainIndices...), fold.TestIndices...)
				sort.Ints(all)
				for j, v := range all {
					require.Equal(t, j, v, "fold %d must partition all indices", i)
				}
			}
			for idx, n := range seen {
				assert.Equal(t, 1, n, "index %d must be tested exactly once", idx)
			}
		})
	}
}

func TestKFold_Deterministic(t *testing.T) {
	a, err := NewKFold(5, true, 42).Split(100)
	require.NoError(t, err)
	b, err := NewKFold(5, true, 42).Split(100)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewKFold(5, true, 7).Split(100)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestKFold_NoShuffleKeepsOrder(t *testing.T) {
	folds, err := NewKFold(3, false, 0).Split(6)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, folds[0].TestIndices)
	assert.Equal(t, []int{2, 3, 4, 5}, folds[0].TrainIndices)
	assert.Equal(t, []int{4, 5}, folds[2].TestIndices)
}

func TestKFold_TooFewSamples(t *testing.T) {
	_, err := NewKFold(5, true, 42).Split(4)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestNewKFold_DefaultsSplits(t *testing.T) {
	assert.Equal(t, 5, NewKFold(1, false, 0).GetNSplits())
}

// linearData は y = 3 + 2*x0 - x1 + ノイズ
func linearData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n)
		x1 := math.Sin(float64(i))
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.Set(i, 0, 3+2*x0-x1+0.01*math.Cos(float64(i*7)))
	}
	return X, y
}

func newLinear() model.Regressor { return linear.NewLinearRegression() }

func TestCrossValidate(t *testing.T) {
	X, y := linearData(103)

	result, err := CrossValidate(newLinear, X, y, NewKFold(5, true, 42))
	require.NoError(t, err)

	require.Len(t, result.TestScores, 5)
	require.Len(t, result.TestRMSE, 5)
	require.Len(t, result.OOFPredictions, 103)

	var sum float64
	for _, s := range result.TestScores {
		assert.Greater(t, s, 0.99)
		sum += s
	}
	assert.InDelta(t, sum/5, result.MeanScore(), 1e-12)
	assert.GreaterOrEqual(t, result.StdScore(), 0.0)
	assert.Less(t, result.MeanRMSE(), 0.05)

	for i, p := range result.OOFPredictions {
		assert.InDelta(t, y.At(i, 0), p, 0.05, "oof prediction %d", i)
	}
}

func TestCrossValidate_Deterministic(t *testing.T) {
	X, y := linearData(60)
	a, err := CrossValidate(newLinear, X, y, NewKFold(5, true, 42))
	require.NoError(t, err)
	b, err := CrossValidate(newLinear, X, y, NewKFold(5, true, 42))
	require.NoError(t, err)
	assert.Equal(t, a.TestScores, b.TestScores)
	assert.Equal(t, a.OOFPredictions, b.OOFPredictions)
}

func TestCrossValidate_Errors(t *testing.T) {
	X, y := linearData(10)

	t.Run("row mismatch", func(t *testing.T) {
		_, err := CrossValidate(newLinear, X, mat.NewDense(9, 1, nil), NewKFold(5, false, 0))
		var dim *errors.DimensionError
		assert.True(t, errors.As(err, &dim))
	})

	t.Run("fewer samples than splits", func(t *testing.T) {
		_, err := CrossValidate(newLinear, X, y, NewKFold(11, false, 0))
		var ve *errors.ValueError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("estimator panic becomes error", func(t *testing.T) {
		_, err := CrossValidate(func() model.Regressor { return panicky{} }, X, y, NewKFold(2, false, 0))
		require.Error(t, err)
		var pe *errors.PanicError
		assert.True(t, errors.As(err, &pe))
	})
}

type panicky struct{}

func (panicky) Fit(_, _ mat.Matrix) error              { panic("boom") }
func (panicky) Predict(mat.Matrix) (mat.Matrix, error) { return nil, nil }
func (panicky) Score(_, _ mat.Matrix) (float64, error) { return 0, nil }
