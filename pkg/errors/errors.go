// Package errors はvinoscore全体のエラーハンドリングを提供します。
// cockroachdb/errors をラップし、スタックトレース付きの構造化エラー型を定義します。
package errors

import (
	"fmt"
	"io/fs"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("vinoscore-warning: %v\n", w)
	}
)

// SetWarningHandler replaces the process-wide warning handler.
// pkg/log installs a zerolog-backed handler at setup.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// Warn は警告を発生させます。エラーとしては扱われません。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	if warningHandler != nil {
		warningHandler(w)
	}
}

// LowScoreWarning is raised when the cross-validated score falls below the
// configured floor. Persistence still happens.
type LowScoreWarning struct {
	Metric    string
	Score     float64
	Threshold float64
}

func (w *LowScoreWarning) Error() string {
	return fmt.Sprintf("%s %.4f is below the configured floor %.4f; artifacts are saved regardless", w.Metric, w.Score, w.Threshold)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *LowScoreWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Float64("score", w.Score).
		Float64("threshold", w.Threshold).
		Str("type", "LowScoreWarning")
}

// NewLowScoreWarning は新しいLowScoreWarningを作成します。
func NewLowScoreWarning(metric string, score, threshold float64) *LowScoreWarning {
	return &LowScoreWarning{Metric: metric, Score: score, Threshold: threshold}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("vinoscore: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vinoscore: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力値の検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("vinoscore: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValidationErrors collects per-field failures so a form can show all of
// them at once.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ByParam indexes the failures by parameter name.
func (v ValidationErrors) ByParam() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		out[e.ParamName] = e.Reason
	}
	return out
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("vinoscore: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vinoscore: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("vinoscore: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ArtifactMissingError is returned when a serialized model or scaler cannot
// be found on disk. It unwraps to fs.ErrNotExist.
type ArtifactMissingError struct {
	Kind string // "model" or "scaler"
	Path string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("vinoscore: %s artifact missing at %s", e.Kind, e.Path)
}

func (e *ArtifactMissingError) Unwrap() error {
	return fs.ErrNotExist
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ArtifactMissingError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", e.Kind).
		Str("path", e.Path).
		Str("type", "ArtifactMissingError")
}

// NewArtifactMissingError は新しいArtifactMissingErrorを作成し、スタックトレースを付与します。
func NewArtifactMissingError(kind, path string) error {
	return errors.WithStack(&ArtifactMissingError{Kind: kind, Path: path})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrCorruptArtifact is returned when an artifact's checksum or kind does
	// not match what the loader expects.
	ErrCorruptArtifact = New("corrupt artifact")
)
