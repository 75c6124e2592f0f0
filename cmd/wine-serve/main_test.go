package main

import (
	"bytes"
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/vinoscore/artifact"
	"github.com/YuminosukeSato/vinoscore/linear"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/preprocessing"
	"github.com/YuminosukeSato/vinoscore/wine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRun_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--model", filepath.Join(dir, "wine_model.gob"),
		"--scaler", filepath.Join(dir, "wine_scaler.gob"),
		"--log-level", "error",
	}, &stderr)

	require.ErrorIs(t, err, errReported)
	assert.Equal(t, missingAssetsMessage+"\n", stderr.String())
}

func TestRun_CorruptArtifacts(t *testing.T) {
	dir := t.TempDir()
	modelPath, scalerPath := saveArtifacts(t, dir)
	// model と scaler を入れ替える
	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--model", scalerPath,
		"--scaler", modelPath,
		"--log-level", "error",
	}, &stderr)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCorruptArtifact))
	assert.NotContains(t, stderr.String(), missingAssetsMessage)
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	dir := t.TempDir()
	modelPath, scalerPath := saveArtifacts(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stderr bytes.Buffer
	err := run(ctx, []string{
		"--model", modelPath,
		"--scaler", scalerPath,
		"--addr", "127.0.0.1:0",
		"--log-level", "error",
	}, &stderr)
	assert.NoError(t, err)
}

func saveArtifacts(t *testing.T, dir string) (string, string) {
	t.Helper()
	rng := rand.New(rand.NewPCG(3, 3))
	rows := 30
	X := mat.NewDense(rows, wine.NumFeatures, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		for j, f := range wine.Features() {
			X.Set(i, j, f.Min+rng.Float64()*(f.Max-f.Min))
		}
		y.Set(i, 0, 0.5*X.At(i, wine.IndexOf("alcohol")))
	}

	scaler := preprocessing.NewStandardScaler(preprocessing.WithFeatureNames(wine.FeatureNames()))
	Xs, err := scaler.FitTransform(X)
	require.NoError(t, err)
	model := linear.NewLinearRegression()
	require.NoError(t, model.Fit(Xs, y))

	modelPath := filepath.Join(dir, artifact.DefaultModelPath)
	scalerPath := filepath.Join(dir, artifact.DefaultScalerPath)
	require.NoError(t, artifact.Save(modelPath, scalerPath, &artifact.Artifacts{Model: model, Scaler: scaler}))
	return modelPath, scalerPath
}
