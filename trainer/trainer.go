// Package trainer fits the wine quality model: it loads the table, scales
// the features, cross-validates a linear regression, refits on all rows and
// saves the model and scaler.
package trainer

import (
	"context"
	"time"

	"github.com/YuminosukeSato/vinoscore/artifact"
	"github.com/YuminosukeSato/vinoscore/core/model"
	"github.com/YuminosukeSato/vinoscore/dataset"
	"github.com/YuminosukeSato/vinoscore/linear"
	"github.com/YuminosukeSato/vinoscore/metrics"
	"github.com/YuminosukeSato/vinoscore/model_selection"
	"github.com/YuminosukeSato/vinoscore/pkg/config"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/pkg/log"
	"github.com/YuminosukeSato/vinoscore/preprocessing"
)

// Fetcher yields the training table for a URI. *dataset.Source implements it.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*dataset.Dataset, error)
}

// Run executes the full pipeline and returns the report. No artifact is
// written unless every earlier step succeeded.
func Run(ctx context.Context, cfg *config.Config, src Fetcher, logger log.Logger) (*Report, error) {
	start := time.Now()
	logger = logger.With(log.ComponentKey, "trainer", log.ModelNameKey, "LinearRegression")

	// (a) 読み込み
	logger.Info("Loading dataset", log.PhaseKey, log.PhaseLoading, log.DataSourceKey, cfg.Dataset.Source)
	ds, err := src.Fetch(ctx, cfg.Dataset.Source)
	if err != nil {
		return nil, errors.Wrap(err, "load dataset")
	}
	n := ds.Samples()
	logger.Info("Dataset loaded", log.SamplesKey, n, log.FeaturesKey, len(ds.Features))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// (b)(c) 標準化
	scaler := preprocessing.NewStandardScaler(preprocessing.WithFeatureNames(ds.Features))
	Xs, err := scaler.FitTransform(ds.X)
	if err != nil {
		return nil, errors.Wrap(err, "fit scaler")
	}

	// (d) 交差検証（診断のみ、保存可否には影響しない）
	tc := cfg.Training
	kf := model_selection.NewKFold(tc.Folds, tc.Shuffle, tc.Seed)
	logger.Info("Cross-validating",
		log.PhaseKey, log.PhaseValidation,
		log.FoldsKey, kf.GetNSplits(),
		log.RandomSeedKey, tc.Seed,
	)
	cv, err := model_selection.CrossValidate(
		func() model.Regressor { return linear.NewLinearRegression() },
		Xs, ds.Y, kf,
	)
	if err != nil {
		return nil, errors.Wrap(err, "cross-validate")
	}
	for i, s := range cv.TestScores {
		logger.Debug("Fold scored",
			log.FoldKey, i,
			log.R2ScoreKey, s,
			log.RMSEKey, cv.TestRMSE[i],
			log.DurationMsKey, cv.FitTimes[i].Milliseconds(),
		)
	}
	meanR2 := cv.MeanScore()
	logger.Info("Cross-validation finished", log.R2ScoreKey, meanR2, log.RMSEKey, cv.MeanRMSE())

	if floor := tc.MinMeanR2Value(); meanR2 < floor {
		errors.Warn(errors.NewLowScoreWarning("mean_r2", meanR2, floor))
		logger.Warn("Mean R2 below configured floor", log.R2ScoreKey, meanR2, "floor", floor)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// (e) 全データで再学習
	logger.Info("Fitting final model", log.PhaseKey, log.PhaseTraining, log.OperationKey, log.OperationFit)
	final := linear.NewLinearRegression()
	if err := final.Fit(Xs, ds.Y); err != nil {
		return nil, errors.Wrap(err, "fit final model")
	}
	trainPred, err := final.Predict(Xs)
	if err != nil {
		return nil, err
	}
	trainR2, err := metrics.R2ScoreMatrix(ds.Y, trainPred)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Samples:      n,
		Folds:        kf.GetNSplits(),
		Seed:         tc.Seed,
		FoldScores:   cv.TestScores,
		FoldRMSE:     cv.TestRMSE,
		MeanR2:       meanR2,
		StdR2:        cv.StdScore(),
		MeanRMSE:     cv.MeanRMSE(),
		TrainR2:      trainR2,
		Coefficients: make(map[string]float64, len(ds.Features)),
		Intercept:    final.GetIntercept(),
		WeightHash:   final.WeightHash(),
		ModelPath:    cfg.Artifacts.ModelPath,
		ScalerPath:   cfg.Artifacts.ScalerPath,
	}
	for i, c := range final.Coef() {
		report.Coefficients[ds.Features[i]] = c
	}

	if tc.PlotPath != "" {
		if err := savePlot(tc.PlotPath, ds.Y.RawVector().Data, cv.OOFPredictions, meanR2); err != nil {
			return nil, err
		}
		report.PlotPath = tc.PlotPath
		logger.Info("Diagnostic plot written", log.ArtifactPathKey, tc.PlotPath)
	}

	// (f) 保存
	err = artifact.Save(cfg.Artifacts.ModelPath, cfg.Artifacts.ScalerPath, &artifact.Artifacts{
		Model:   final,
		Scaler:  scaler,
		CVFolds: len(cv.TestScores),
	})
	if err != nil {
		return nil, errors.Wrap(err, "save artifacts")
	}
	logger.Info("Artifacts saved",
		log.PhaseKey, log.PhasePersistence,
		log.ArtifactPathKey, cfg.Artifacts.ModelPath,
		log.ChecksumKey, report.WeightHash,
	)

	report.Duration = time.Since(start)
	return report, nil
}
