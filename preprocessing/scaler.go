// Package preprocessing は特徴量のスケーリングを提供する。
package preprocessing

import (
	"fmt"
	"math"
	"slices"

	"github.com/YuminosukeSato/vinoscore/core/model"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// 標準偏差がこれより小さい特徴量は定数とみなす
const zeroVarianceTolerance = 1e-8

var _ model.Transformer = (*StandardScaler)(nil)

// StandardScaler は特徴量ごとに平均0、標準偏差1へ標準化する。
// 標準偏差は母標準偏差（n で割る）を用いる。
//
// Fields are exported for gob persistence only.
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（分散0の特徴量は1.0）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// FeatureNames は学習時の列名（順序付き）。未設定なら空
	FeatureNames []string
}

// ScalerOption は StandardScaler の設定関数
type ScalerOption func(*StandardScaler)

// WithFeatureNames は学習する列の名前を記録する。
// Fit 時に列数と一致しない場合はエラーになる。
func WithFeatureNames(names []string) ScalerOption {
	return func(s *StandardScaler) {
		s.FeatureNames = slices.Clone(names)
	}
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(preprocessing.WithFeatureNames(wine.FeatureNames()))
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(opts ...ScalerOption) *StandardScaler {
	s := &StandardScaler{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
//
// パラメータ:
//   - X: 訓練データ (n_samples × n_features の行列)
//
// 戻り値:
//   - error: 空データ、または列名と列数が一致しない場合
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(s.FeatureNames) > 0 && len(s.FeatureNames) != c {
		return errors.NewDimensionError("StandardScaler.Fit", len(s.FeatureNames), c, 1)
	}

	mean := make([]float64, c)
	scale := make([]float64, c)
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		mean[j] = sum / float64(r)

		var sumSquares float64
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - mean[j]
			sumSquares += diff * diff
		}
		scale[j] = math.Sqrt(sumSquares / float64(r))
		if scale[j] < zeroVarianceTolerance {
			scale[j] = 1.0
		}
	}
	if err := errors.CheckNumericalStability("StandardScaler.Fit", append(slices.Clone(mean), scale...)); err != nil {
		return err
	}

	s.Mean = mean
	s.Scale = scale
	s.NFeatures = c
	s.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
//
// パラメータ:
//   - X: 変換するデータ
//
// 戻り値:
//   - mat.Matrix: 標準化されたデータ
//   - error: 未学習、または列数が一致しない場合
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// MatchesFeatures reports whether the scaler was fitted on exactly the given
// ordered column names.
func (s *StandardScaler) MatchesFeatures(names []string) bool {
	return slices.Equal(s.FeatureNames, names)
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return "StandardScaler()"
	}
	return fmt.Sprintf("StandardScaler(n_features=%d)", s.NFeatures)
}
