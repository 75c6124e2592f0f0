package model_selection

import (
	"fmt"
	"sync"
	"time"

	"github.com/YuminosukeSato/vinoscore/core/model"
	"github.com/YuminosukeSato/vinoscore/metrics"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CVResult stores cross-validation results
type CVResult struct {
	// TestScores は各分割の検証用 R²（分割順）
	TestScores []float64
	// TestRMSE は各分割の検証用 RMSE
	TestRMSE []float64
	// FitTimes は各分割の学習時間
	FitTimes []time.Duration
	// OOFPredictions は各サンプルが検証用に回ったときの予測値
	OOFPredictions []float64
}

// MeanScore returns the arithmetic mean of the fold R² scores.
func (cv *CVResult) MeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0
	}
	return stat.Mean(cv.TestScores, nil)
}

// StdScore returns the sample standard deviation of the fold R² scores.
func (cv *CVResult) StdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0
	}
	return stat.StdDev(cv.TestScores, nil)
}

// MeanRMSE returns the mean of the fold RMSE values.
func (cv *CVResult) MeanRMSE() float64 {
	if len(cv.TestRMSE) == 0 {
		return 0
	}
	return stat.Mean(cv.TestRMSE, nil)
}

// CrossValidate は各分割ごとに newEstimator で新しいモデルを作り、学習用インデックスで学習、
// 検証用インデックスで R² と RMSE を計算する。分割は並列に処理されるが、
// 結果は分割順に格納される。
//
// パラメータ:
//   - newEstimator: 未学習の推定器を返す関数
//   - X: 特徴量 (n_samples × n_features)
//   - y: 目的変数 (n_samples × 1)
//   - splitter: 分割器
func CrossValidate(newEstimator func() model.Regressor, X, y mat.Matrix, splitter Splitter) (*CVResult, error) {
	nSamples, _ := X.Dims()
	ry, cy := y.Dims()
	if ry != nSamples {
		return nil, errors.NewDimensionError("CrossValidate", nSamples, ry, 0)
	}
	if cy != 1 {
		return nil, errors.NewDimensionError("CrossValidate", 1, cy, 1)
	}

	folds, err := splitter.Split(nSamples)
	if err != nil {
		return nil, err
	}
	nFolds := len(folds)

	result := &CVResult{
		TestScores:     make([]float64, nFolds),
		TestRMSE:       make([]float64, nFolds),
		FitTimes:       make([]time.Duration, nFolds),
		OOFPredictions: make([]float64, nSamples),
	}

	var wg sync.WaitGroup
	foldErrs := make([]error, nFolds)

	for foldIdx := 0; foldIdx < nFolds; foldIdx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer errors.Recover(&foldErrs[idx], fmt.Sprintf("CrossValidate fold %d", idx))

			fold := folds[idx]
			trainX, trainY := extractSubset(X, y, fold.TrainIndices)
			testX, testY := extractSubset(X, y, fold.TestIndices)

			est := newEstimator()
			start := time.Now()
			if err := est.Fit(trainX, trainY); err != nil {
				foldErrs[idx] = errors.Wrapf(err, "fold %d training failed", idx)
				return
			}
			result.FitTimes[idx] = time.Since(start)

			pred, err := est.Predict(testX)
			if err != nil {
				foldErrs[idx] = errors.Wrapf(err, "fold %d prediction failed", idx)
				return
			}

			r2, err := metrics.R2ScoreMatrix(testY, pred)
			if err != nil {
				foldErrs[idx] = errors.Wrapf(err, "fold %d scoring failed", idx)
				return
			}
			rmse, err := metrics.RMSEMatrix(testY, pred)
			if err != nil {
				foldErrs[idx] = errors.Wrapf(err, "fold %d scoring failed", idx)
				return
			}
			result.TestScores[idx] = r2
			result.TestRMSE[idx] = rmse

			// 検証用インデックスは分割間で重ならないので競合しない
			for i, sampleIdx := range fold.TestIndices {
				result.OOFPredictions[sampleIdx] = pred.At(i, 0)
			}
		}(foldIdx)
	}

	wg.Wait()

	for _, err := range foldErrs {
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// extractSubset extracts subset of data based on indices, keeping their order.
func extractSubset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	rows := len(indices)
	_, xCols := X.Dims()

	xSubset := mat.NewDense(rows, xCols, nil)
	ySubset := mat.NewDense(rows, 1, nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xSubset.Set(i, j, X.At(idx, j))
		}
		ySubset.Set(i, 0, y.At(idx, 0))
	}
	return xSubset, ySubset
}
