// Package model_selection はデータ分割と交差検証を提供する。
package model_selection

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
)

// Splitter は交差検証の分割器のインターフェース
type Splitter interface {
	Split(nSamples int) ([]CVFold, error)
	GetNSplits() int
}

// CVFold は1つの分割（学習用と検証用のインデックス）
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter. nSplits below 2 falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split は nSamples 個のインデックスを NSplits 個の互いに素な検証用分割に分ける。
// 先頭の nSamples % NSplits 個の分割は1サンプル多い。
// 同じ RandomSeed からは常に同じ分割が得られる。
func (kf *KFold) Split(nSamples int) ([]CVFold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValueError("KFold.Split", fmt.Sprintf("n_splits must be at least 2, got %d", kf.NSplits))
	}
	if nSamples < kf.NSplits {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("cannot have n_splits=%d greater than the number of samples %d", kf.NSplits, nSamples))
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]CVFold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	start := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		end := start + testSize

		testIndices := make([]int, testSize)
		copy(testIndices, indices[start:end])

		trainIndices := make([]int, 0, nSamples-testSize)
		trainIndices = append(trainIndices, indices[:start]...)
		trainIndices = append(trainIndices, indices[end:]...)

		folds[i] = CVFold{
			TrainIndices: trainIndices,
			TestIndices:  testIndices,
		}
		start = end
	}
	return folds, nil
}
