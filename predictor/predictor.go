// Package predictor turns one wine.Vector into an assessment using a loaded
// scaler and model.
package predictor

import (
	"fmt"

	"github.com/YuminosukeSato/vinoscore/artifact"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/wine"
	"gonum.org/v1/gonum/mat"
)

// Predictor is safe for concurrent use; it only reads the artifacts.
type Predictor struct {
	art *artifact.Artifacts
}

// NewPredictor checks that both artifacts are fitted and that the scaler was
// fitted on wine.FeatureNames in order.
func NewPredictor(a *artifact.Artifacts) (*Predictor, error) {
	if a == nil || a.Model == nil || a.Scaler == nil {
		return nil, errors.NewValueError("predictor.New", "both model and scaler are required")
	}
	if !a.Scaler.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "predictor.New")
	}
	if !a.Model.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "predictor.New")
	}
	if !a.Scaler.MatchesFeatures(wine.FeatureNames()) {
		return nil, errors.NewValueError("predictor.New",
			fmt.Sprintf("scaler was fitted on %v, want %v", a.Scaler.FeatureNames, wine.FeatureNames()))
	}
	if n := a.Model.NFeatures; n != wine.NumFeatures {
		return nil, errors.NewDimensionError("predictor.New", wine.NumFeatures, n, 1)
	}
	return &Predictor{art: a}, nil
}

// Predict validates v, scales it and returns the model's quality estimate.
func (p *Predictor) Predict(v wine.Vector) (wine.Assessment, error) {
	if err := v.Validate(); err != nil {
		return wine.Assessment{}, err
	}
	score, err := p.score(v)
	if err != nil {
		return wine.Assessment{}, err
	}
	return wine.NewAssessment(score), nil
}

func (p *Predictor) score(v wine.Vector) (float64, error) {
	X := mat.NewDense(1, wine.NumFeatures, v.Slice())
	scaled, err := p.art.Scaler.Transform(X)
	if err != nil {
		return 0, err
	}
	pred, err := p.art.Model.Predict(scaled)
	if err != nil {
		return 0, err
	}
	score := pred.At(0, 0)
	if !errors.IsFinite(score) {
		return 0, errors.NewNumericalInstabilityError("predictor.Predict", []float64{score})
	}
	return score, nil
}

// Artifacts returns the loaded artifacts.
func (p *Predictor) Artifacts() *artifact.Artifacts {
	return p.art
}
