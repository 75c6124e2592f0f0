package linear

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"slices"

	"github.com/YuminosukeSato/vinoscore/core/model"
	"github.com/YuminosukeSato/vinoscore/core/parallel"
	"github.com/YuminosukeSato/vinoscore/metrics"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

var _ model.Regressor = (*LinearRegression)(nil)

// LinearRegression は最小二乗法による線形回帰モデル
//
// Fields are exported for gob persistence only. Use Coef and GetIntercept to
// read the fitted parameters.
type LinearRegression struct {
	model.BaseEstimator

	Weights      []float64 // 重み（係数）
	Intercept    float64   // 切片
	NFeatures    int       // 特徴量の数
	NSamples     int       // 学習サンプル数
	FitIntercept bool      // 切片を学習するかどうか
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{FitIntercept: true}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる
// [1 | X] w = y をQR分解で解く
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewDimensionError("LinearRegression.Fit", 1, cy, 1)
	}

	offset := 0
	if lr.FitIntercept {
		offset = 1
	}
	nParams := c + offset
	if r < nParams {
		return errors.NewValueError("LinearRegression.Fit",
			fmt.Sprintf("need at least %d samples to fit %d parameters, got %d", nParams, nParams, r))
	}

	design := mat.NewDense(r, nParams, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if lr.FitIntercept {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	target := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		target.Set(i, 0, y.At(i, 0))
	}

	var qr mat.QR
	qr.Factorize(design)

	solution := mat.NewDense(nParams, 1, nil)
	if err := qr.SolveTo(solution, false, target); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	weights := make([]float64, c)
	for j := 0; j < c; j++ {
		weights[j] = solution.At(j+offset, 0)
	}
	var intercept float64
	if lr.FitIntercept {
		intercept = solution.At(0, 0)
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", append(slices.Clone(weights), intercept)); err != nil {
		return err
	}

	lr.Weights = weights
	lr.Intercept = intercept
	lr.NFeatures = c
	lr.NSamples = r
	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
// y = X * weights + intercept
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	if !lr.IsFitted() {
		return 0, errors.NewNotFittedError("LinearRegression", "Score")
	}

	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, yPred)
}

// Coef は学習された重み（係数）のコピーを返す
func (lr *LinearRegression) Coef() []float64 {
	if lr.Weights == nil {
		return nil
	}
	out := make([]float64, len(lr.Weights))
	copy(out, lr.Weights)
	return out
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// WeightHash returns the SHA-256 of the IEEE-754 bits of the coefficients
// followed by the intercept, little endian. Empty for an unfitted model.
func (lr *LinearRegression) WeightHash() string {
	if !lr.IsFitted() {
		return ""
	}
	h := sha256.New()
	var buf [8]byte
	for _, v := range append(lr.Coef(), lr.Intercept) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Clone は同じハイパーパラメータを持つ未学習のモデルを返す
func (lr *LinearRegression) Clone() model.Regressor {
	return NewLinearRegression(WithFitIntercept(lr.FitIntercept))
}

// String returns the string representation of the model
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.FitIntercept)
	}
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, fitted=true)", lr.FitIntercept, lr.NFeatures)
}
