package metrics

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/clinml/paascreen/pkg/errors"
)

// SavePRCurvePlot は精度-再現率曲線をPNG画像として保存する
// キャプションにはAUC-PRの値が入る
func SavePRCurvePlot(curve []PRPoint, aucpr float64, path string) error {
	if len(curve) == 0 {
		return errors.NewValueError("SavePRCurvePlot", "empty curve")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Precision-Recall curve (AUC-PR = %.4f)", aucpr)
	p.X.Label.Text = "Recall"
	p.Y.Label.Text = "Precision"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05

	pts := make(plotter.XYs, len(curve))
	for i, point := range curve {
		pts[i].X = point.Recall
		pts[i].Y = point.Precision
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build curve line")
	}
	p.Add(line)
	p.Add(plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrap(err, "failed to save plot")
	}
	return nil
}
