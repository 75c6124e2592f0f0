// Package vinoscore predicts red wine quality from eleven chemical
// measurements.
//
// The module is split into a training side and a serving side that share
// nothing at runtime except two artifact files.
//
// # Training
//
// cmd/wine-train reads the semicolon separated wine table (local path,
// http(s) or gs:// URI), standardizes the features, reports k-fold
// cross-validation R² for an ordinary least squares model, refits on the
// full table and writes wine_model.gob and wine_scaler.gob:
//
//	wine-train --data winequality-red.csv --folds 5 --seed 42 --plot cv.png
//
// # Serving
//
// cmd/wine-serve loads both artifacts once and serves the assessment form,
// a JSON API and Prometheus metrics:
//
//	wine-serve --addr :8501
//
//	curl -s localhost:8501/api/v1/predict -d '{"features": {"alcohol": 12.5}}'
//
// Missing artifacts stop the server at startup with a short message instead
// of falling back to any default prediction.
//
// # Packages
//
//   - wine: feature table, input validation, premium threshold
//   - dataset: CSV parsing and source resolution
//   - preprocessing: StandardScaler
//   - linear: LinearRegression (QR least squares)
//   - metrics: R², MSE, RMSE, MAE
//   - model_selection: KFold and CrossValidate
//   - artifact: checksummed gob persistence
//   - trainer: the training pipeline and its report
//   - predictor: immutable inference over loaded artifacts
//   - web: HTTP handlers, middleware and metrics
//   - core/model, core/parallel: estimator state and worker fan-out
//   - pkg/config, pkg/errors, pkg/log: settings, typed errors, logging
//
// Settings are layered: defaults, then a YAML file (--config), then VINO_*
// environment variables, then flags. See configs/vinoscore.yaml.
package vinoscore
