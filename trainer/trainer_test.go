package trainer

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/vinoscore/artifact"
	"github.com/YuminosukeSato/vinoscore/dataset"
	"github.com/YuminosukeSato/vinoscore/pkg/config"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/pkg/log"
	"github.com/YuminosukeSato/vinoscore/wine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticCSV は各特徴量の範囲内で一様に値を引き、alcohol と volatile acidity に
// 依存する品質スコアを持つ表を作る
func syntheticCSV(rows int, noise float64) string {
	rng := rand.New(rand.NewPCG(1, 2))
	var b strings.Builder
	b.WriteString(strings.Join(append(wine.FeatureNames(), wine.TargetColumn), ";"))
	b.WriteByte('\n')
	for i := 0; i < rows; i++ {
		var v wine.Vector
		cells := make([]string, 0, wine.NumFeatures+1)
		for j, f := range wine.Features() {
			v[j] = f.Min + rng.Float64()*(f.Max-f.Min)
			cells = append(cells, fmt.Sprintf("%g", v[j]))
		}
		q := 1.5 + 0.4*v[wine.IndexOf("alcohol")] - 1.2*v[wine.IndexOf("volatile acidity")] + noise*(rng.Float64()-0.5)
		cells = append(cells, fmt.Sprintf("%g", q))
		b.WriteString(strings.Join(cells, ";"))
		b.WriteByte('\n')
	}
	return b.String()
}

type csvFetcher struct {
	body string
	err  error
	uri  string
}

func (f *csvFetcher) Fetch(_ context.Context, uri string) (*dataset.Dataset, error) {
	f.uri = uri
	if f.err != nil {
		return nil, f.err
	}
	return dataset.Load(strings.NewReader(f.body))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Dataset.Source = "memory://wine"
	cfg.Artifacts.ModelPath = filepath.Join(dir, "wine_model.gob")
	cfg.Artifacts.ScalerPath = filepath.Join(dir, "wine_scaler.gob")
	return cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	fetcher := &csvFetcher{body: syntheticCSV(300, 0.5)}

	report, err := Run(context.Background(), cfg, fetcher, logger)
	require.NoError(t, err)

	assert.Equal(t, "memory://wine", fetcher.uri)
	assert.Equal(t, 300, report.Samples)
	require.Len(t, report.FoldScores, 5)
	require.Len(t, report.FoldRMSE, 5)

	var sum float64
	for _, s := range report.FoldScores {
		sum += s
	}
	assert.InDelta(t, sum/5, report.MeanR2, 1e-12)
	assert.Greater(t, report.MeanR2, 0.8)
	assert.Greater(t, report.TrainR2, 0.8)
	assert.Len(t, report.Coefficients, wine.NumFeatures)
	assert.Greater(t, report.Coefficients["alcohol"], 0.0)
	assert.Less(t, report.Coefficients["volatile acidity"], 0.0)
	assert.NotEmpty(t, report.WeightHash)

	loaded, err := artifact.LoadArtifacts(cfg.Artifacts.ModelPath, cfg.Artifacts.ScalerPath)
	require.NoError(t, err)
	assert.Equal(t, report.WeightHash, loaded.Model.WeightHash())
	assert.Equal(t, wine.FeatureNames(), loaded.Scaler.FeatureNames)
	assert.Equal(t, 5, loaded.CVFolds)

	for i := 0; i < 5; i++ {
		assert.True(t, logger.ContainsField(log.FoldKey, float64(i)), "fold %d logged", i)
	}
	assert.True(t, logger.ContainsMessage("Artifacts saved"))
}

func TestRun_SameSeedSameScores(t *testing.T) {
	body := syntheticCSV(120, 1.0)
	logger, _ := log.NewTestLogger(log.LevelError)

	a, err := Run(context.Background(), testConfig(t), &csvFetcher{body: body}, logger)
	require.NoError(t, err)
	b, err := Run(context.Background(), testConfig(t), &csvFetcher{body: body}, logger)
	require.NoError(t, err)
	assert.Equal(t, a.FoldScores, b.FoldScores)
	assert.Equal(t, a.WeightHash, b.WeightHash)
}

func TestRun_LowScoreOnlyWarns(t *testing.T) {
	cfg := testConfig(t)
	floor := 0.9999
	cfg.Training.MinMeanR2 = &floor

	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })

	logger, _ := log.NewTestLogger(log.LevelWarn)
	_, err := Run(context.Background(), cfg, &csvFetcher{body: syntheticCSV(100, 3.0)}, logger)
	require.NoError(t, err)

	require.Len(t, warned, 1)
	var low *errors.LowScoreWarning
	assert.True(t, errors.As(warned[0], &low))
	assert.True(t, logger.ContainsMessage("below configured floor"))

	_, err = os.Stat(cfg.Artifacts.ModelPath)
	assert.NoError(t, err, "artifacts are saved regardless")
}

func TestRun_FailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *csvFetcher
		ctx     func() context.Context
	}{
		{"fetch error", &csvFetcher{err: errors.New("network down")}, context.Background},
		{"bad table", &csvFetcher{body: "a;b\n1;2\n"}, context.Background},
		{"too few rows for folds", &csvFetcher{body: syntheticCSV(4, 0)}, context.Background},
		{"canceled", &csvFetcher{body: syntheticCSV(50, 0.5)}, func() context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			logger, _ := log.NewTestLogger(log.LevelError)
			_, err := Run(tt.ctx(), cfg, tt.fetcher, logger)
			require.Error(t, err)

			_, statErr := os.Stat(cfg.Artifacts.ModelPath)
			assert.True(t, os.IsNotExist(statErr))
			_, statErr = os.Stat(cfg.Artifacts.ScalerPath)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRun_WritesPlot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Training.PlotPath = filepath.Join(t.TempDir(), "cv.png")
	logger, _ := log.NewTestLogger(log.LevelError)

	report, err := Run(context.Background(), cfg, &csvFetcher{body: syntheticCSV(80, 0.5)}, logger)
	require.NoError(t, err)
	assert.Equal(t, cfg.Training.PlotPath, report.PlotPath)

	data, err := os.ReadFile(cfg.Training.PlotPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestRenderPlot_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderPlot(&buf, []float64{1, 2}, []float64{1}, 0))
	assert.Error(t, RenderPlot(&buf, nil, nil, 0))
}

func TestReport_Print(t *testing.T) {
	r := &Report{FoldScores: []float64{0.31, 0.4, 0.35}, MeanR2: 0.35333333}
	var buf bytes.Buffer
	require.NoError(t, r.Print(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Cross-Validation R2 Scores: [0.31000000 0.40000000 0.35000000]", lines[0])
	assert.Equal(t, "Mean R2 Score: 0.3533", lines[1])
	assert.Equal(t, "Model and Scaler successfully fitted and saved!", lines[2])
}
