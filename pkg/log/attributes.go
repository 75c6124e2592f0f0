package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "LinearRegression", "StandardScaler"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "trainer", "web", "dataset"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"

	// DataSourceKey is the URI the training data was read from.
	DataSourceKey = "data.source"

	// DataSizeKey indicates the size of the data in bytes.
	DataSizeKey = "data.size_bytes"
)

// Performance Metrics
const (
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² coefficient of determination for regression.
	// Range typically [-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records the root mean squared error.
	RMSEKey = "metrics.rmse"

	// FoldKey is the zero-based cross-validation fold index.
	FoldKey = "cv.fold"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "cv.folds"
)

// Prediction and Output Context
const (
	// PredictionKey is the scalar quality score returned to the user.
	PredictionKey = "preds.value"

	// PremiumKey marks predictions at or above the premium threshold.
	PremiumKey = "preds.premium"
)

// Error Context
const (
	ErrorKey      = "error"
	StacktraceKey = "error.stacktrace"
	ErrorTypeKey  = "error.type"
)

// Configuration and artifacts
const (
	RandomSeedKey   = "config.random_seed"
	ArtifactKindKey = "artifact.kind"
	ArtifactPathKey = "artifact.path"
	ChecksumKey     = "artifact.checksum"
)

// HTTP
const (
	RequestIDKey  = "http.request_id"
	MethodKey     = "http.method"
	PathKey       = "http.path"
	StatusCodeKey = "http.status"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
	PhaseLoading       = "loading"
	PhasePersistence   = "persistence"
)
