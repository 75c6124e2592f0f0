package trainer

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Report summarises one training run.
type Report struct {
	Samples int
	Folds   int
	Seed    uint64

	FoldScores []float64
	FoldRMSE   []float64
	MeanR2     float64
	StdR2      float64
	MeanRMSE   float64

	// TrainR2 is the in-sample R² of the final model.
	TrainR2      float64
	Coefficients map[string]float64
	Intercept    float64
	WeightHash   string

	ModelPath  string
	ScalerPath string
	PlotPath   string
	Duration   time.Duration
}

// Print writes the console summary: fold scores, their mean and the
// confirmation line.
func (r *Report) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Cross-Validation R2 Scores: %s\nMean R2 Score: %.4f\nModel and Scaler successfully fitted and saved!\n",
		formatScores(r.FoldScores), r.MeanR2)
	return err
}

func formatScores(scores []float64) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%.8f", s)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
