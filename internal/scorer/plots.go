package scorer

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderAccuracyPlot writes a bar chart of per-annotator accuracy with
// the review floor drawn as a horizontal line. The output format
// follows the file extension.
func RenderAccuracyPlot(dashboard *Dashboard, path string) error {
	p := plot.New()
	p.Title.Text = "Annotator Accuracy vs Gold Set"
	p.X.Label.Text = "Annotator"
	p.Y.Label.Text = "Accuracy"
	p.Y.Min, p.Y.Max = 0, 1

	var names []string
	values := make(plotter.Values, 0, len(dashboard.Scores))
	for _, s := range dashboard.Scores {
		if s.Status == StatusInsufficientGold {
			continue
		}
		names = append(names, s.AnnotatorID)
		values = append(values, s.Accuracy)
	}
	if len(values) == 0 {
		return fmt.Errorf("no scored annotators to plot")
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.RGBA{R: 68, G: 118, B: 255, A: 255}
	p.Add(bars)
	p.NominalX(names...)

	floor := plotter.NewFunction(func(float64) float64 { return dashboard.AccuracyFloor })
	floor.Color = color.RGBA{R: 220, G: 64, B: 64, A: 255}
	floor.Width = vg.Points(1)
	floor.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(floor)
	p.Legend.Add("review floor", floor)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save accuracy plot: %w", err)
	}
	return nil
}

// RenderSubtypeF1Plot writes one line per scored annotator tracing F1
// across the subtype vocabulary.
func RenderSubtypeF1Plot(dashboard *Dashboard, subtypes []string, path string) error {
	if len(subtypes) == 0 {
		return fmt.Errorf("no subtypes to plot")
	}

	p := plot.New()
	p.Title.Text = "Per-Subtype F1 by Annotator"
	p.X.Label.Text = "Subtype"
	p.Y.Label.Text = "F1"
	p.Y.Min, p.Y.Max = 0, 1

	index := make(map[string]int, len(subtypes))
	for i, s := range subtypes {
		index[s] = i
	}

	plotted := 0
	for i, score := range dashboard.Scores {
		if score.Status == StatusInsufficientGold {
			continue
		}
		pts := make(plotter.XYs, len(subtypes))
		for j := range pts {
			pts[j] = plotter.XY{X: float64(j)}
		}
		for _, ss := range score.SubtypeScores {
			if j, ok := index[ss.Subtype]; ok {
				pts[j].Y = ss.F1
			}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to build line for %s: %w", score.AnnotatorID, err)
		}
		line.Color = paletteColor(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(score.AnnotatorID, line)
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("no scored annotators to plot")
	}

	p.NominalX(subtypes...)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save subtype plot: %w", err)
	}
	return nil
}

// paletteColor cycles through a small set of distinct line colors.
func paletteColor(i int) color.Color {
	palette := []color.RGBA{
		{R: 68, G: 118, B: 255, A: 255},
		{R: 220, G: 64, B: 64, A: 255},
		{R: 64, G: 180, B: 90, A: 255},
		{R: 240, G: 160, B: 32, A: 255},
		{R: 150, G: 90, B: 220, A: 255},
		{R: 80, G: 190, B: 200, A: 255},
	}
	return palette[i%len(palette)]
}
