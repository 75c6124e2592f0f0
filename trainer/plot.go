package trainer

import (
	"fmt"
	"io"
	"os"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const plotSize = 6 * vg.Inch

// RenderPlot draws out-of-fold predictions against the true quality as a PNG
// scatter with the identity line.
func RenderPlot(w io.Writer, actual, predicted []float64, meanR2 float64) error {
	if len(actual) != len(predicted) {
		return errors.NewDimensionError("trainer.RenderPlot", len(actual), len(predicted), 0)
	}
	if len(actual) == 0 {
		return errors.NewValueError("trainer.RenderPlot", "nothing to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Cross-validated predictions (mean R² %.4f)", meanR2)
	p.X.Label.Text = "Actual quality"
	p.Y.Label.Text = "Predicted quality"

	pts := make(plotter.XYs, len(actual))
	lo, hi := actual[0], actual[0]
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
		for _, v := range [2]float64{actual[i], predicted[i]} {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "trainer: scatter")
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)

	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "trainer: identity line")
	}
	identity.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), scatter, identity)
	p.Legend.Add("out-of-fold", scatter)
	p.Legend.Add("y = x", identity)
	p.Legend.Top = true
	p.Legend.Left = true

	wt, err := p.WriterTo(plotSize, plotSize, "png")
	if err != nil {
		return errors.Wrap(err, "trainer: render plot")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "trainer: write plot")
	}
	return nil
}

func savePlot(path string, actual, predicted []float64, meanR2 float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "trainer: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "trainer: close %s", path)
		}
	}()
	return RenderPlot(f, actual, predicted, meanR2)
}
