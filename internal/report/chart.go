package report

import (
	"fmt"
	"image/color"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 5 * vg.Inch
)

var (
	totalColor  = color.NRGBA{R: 31, G: 119, B: 180, A: 255}
	phaseColors = []color.NRGBA{
		{R: 255, G: 127, B: 14, A: 153},
		{R: 44, G: 160, B: 44, A: 153},
		{R: 214, G: 39, B: 40, A: 153},
	}
)

// ChartTitle returns the chart heading for a meter shape.
func ChartTitle(shape model.MeterShape) string {
	return fmt.Sprintf("Spotřeba na %s elektroměru", shape)
}

// LegendLabel turns a series label into its legend entry, e.g.
// "fáze A" → "Fáze A [W]".
func LegendLabel(label string) string {
	return cases.Title(language.Czech, cases.NoLower).String(label) + " [W]"
}

// RenderChart draws power over time as a step plot, one line per result
// with intervals, and saves it to path. The image format follows the file
// extension.
func RenderChart(path string, shape model.MeterShape, results []model.EnergyResult) error {
	p := plot.New()
	p.Title.Text = ChartTitle(shape)
	p.X.Label.Text = "Čas (UTC)"
	p.Y.Label.Text = "Výkon [W]"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	phase := 0
	for _, res := range results {
		if len(res.Intervals) == 0 {
			continue
		}
		line, err := plotter.NewLine(stepPoints(res))
		if err != nil {
			return fmt.Errorf("plotting %s: %w", res.Label, err)
		}
		line.StepStyle = plotter.PostStep

		if res.Label == model.LabelTotal {
			line.Width = vg.Points(1.5)
			line.Color = totalColor
		} else {
			line.Width = vg.Points(1)
			line.Color = phaseColors[phase%len(phaseColors)]
			phase++
		}

		p.Add(line)
		p.Legend.Add(LegendLabel(res.Label), line)
	}

	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("saving chart %s: %w", path, err)
	}
	return nil
}

// stepPoints lists the interval starts and closes the last step at its end
// time, so every held value is drawn for its full duration.
func stepPoints(res model.EnergyResult) plotter.XYs {
	pts := make(plotter.XYs, 0, len(res.Intervals)+1)
	for _, iv := range res.Intervals {
		pts = append(pts, plotter.XY{X: unixSeconds(iv.Start.Timestamp), Y: iv.Start.Value})
	}
	last := res.Intervals[len(res.Intervals)-1]
	pts = append(pts, plotter.XY{X: unixSeconds(last.End), Y: last.Start.Value})
	return pts
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
