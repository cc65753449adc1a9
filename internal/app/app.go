// Package app runs one analysis: pick the file, parse it, select the
// meter series, integrate them and write the reports.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/config"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/energy"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/ingest"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/report"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/selector"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/source"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/store"
)

// ErrNoReadings is returned when nothing numeric is left to analyse.
var ErrNoReadings = errors.New("no readings to analyse")

// App holds the collaborators of a run. Zero-valued optional fields fall
// back to sensible defaults in Run.
type App struct {
	Config   config.Config
	Resolver source.Resolver
	Chooser  selector.Chooser
	// Stdout receives the console messages of the selection step.
	Stdout io.Writer
	Logger *zap.Logger
	Now    func() time.Time
	// Show opens the chart after writing it. Nil leaves it closed.
	Show func(path string) error
}

// Outputs lists the files written by a run.
type Outputs struct {
	Text  string
	Chart string
	XLSX  string
	PDF   string
}

// Result is the outcome of a successful run.
type Result struct {
	Source  string
	// Entity is empty when a 3F export was split automatically.
	Entity  string
	Summary report.Summary
	Outputs Outputs
}

// Run executes the whole pipeline once.
func (a *App) Run() (Result, error) {
	log := a.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := a.Now
	if now == nil {
		now = time.Now
	}

	mode, err := selector.ParseMode(a.Config.Mode)
	if err != nil {
		return Result{}, err
	}

	path, err := a.Resolver.Resolve()
	if err != nil {
		return Result{}, err
	}
	if err := source.Check(path); err != nil {
		return Result{}, err
	}
	log.Info("analysing file", zap.String("path", path), zap.String("mode", string(mode)))

	readings, err := a.parse(path, mode == selector.ModeSelect, log)
	if err != nil {
		return Result{}, err
	}
	if len(readings) == 0 {
		return Result{}, ErrNoReadings
	}
	data := store.New(readings)

	sel := selector.New(mode, a.Config.PowerSuffixes, a.Chooser, a.Stdout)
	selection, err := sel.Select(data)
	if err != nil {
		return Result{}, err
	}
	log.Info("series selected",
		zap.String("entity", selection.Entity),
		zap.Stringer("shape", selection.Shape),
		zap.Int("candidates", len(selection.Candidates)))

	results := energy.IntegrateAll(selection.Series)
	for _, res := range results {
		log.Debug("integrated",
			zap.String("label", res.Label),
			zap.Int("intervals", len(res.Intervals)),
			zap.Float64("kwh", res.TotalKWh))
	}

	tr, ok := dataRange(selection, results)
	if !ok {
		return Result{}, ErrNoReadings
	}

	summary := report.Summary{
		SourceName: filepath.Base(path),
		Range:      tr,
		Shape:      selection.Shape,
		Results:    results,
	}
	outputs, err := a.write(summary, now())
	if err != nil {
		return Result{}, err
	}
	log.Info("reports written", zap.String("txt", outputs.Text), zap.String("png", outputs.Chart))

	if a.Config.ShowChart && a.Show != nil {
		if err := a.Show(outputs.Chart); err != nil {
			log.Debug("chart not shown", zap.Error(err))
		}
	}

	return Result{Source: path, Entity: selection.Entity, Summary: summary, Outputs: outputs}, nil
}

func (a *App) parse(path string, strict bool, log *zap.Logger) ([]model.Reading, error) {
	parser, err := ingest.NewParser(a.Config.Format, strict)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	readings, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if stats, ok := ingest.LastStats(parser); ok && stats.Dropped > 0 {
		log.Info("dropped non-numeric rows", zap.Int("rows", stats.Rows), zap.Int("dropped", stats.Dropped))
	}
	return readings, nil
}

// dataRange is the span of interval starts of the total series. When the
// total has no intervals the raw range of the selected readings is used.
func dataRange(selection selector.Selection, results []model.EnergyResult) (model.TimeRange, bool) {
	for _, res := range results {
		if res.Label == model.LabelTotal {
			if tr, ok := energy.Span(res); ok {
				return tr, true
			}
		}
	}

	var all []model.Reading
	for _, s := range selection.Series {
		all = append(all, s.Readings...)
	}
	return store.New(all).TimeRange()
}

func (a *App) write(summary report.Summary, now time.Time) (Outputs, error) {
	dir := a.Config.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Outputs{}, fmt.Errorf("creating output dir: %w", err)
	}
	base := filepath.Join(dir, report.OutputStem(now, summary.Range))

	out := Outputs{
		Text:  base + ".txt",
		Chart: base + ".png",
	}
	if err := report.WriteSummaryFile(out.Text, summary); err != nil {
		return Outputs{}, err
	}
	if err := report.RenderChart(out.Chart, summary.Shape, summary.Results); err != nil {
		return Outputs{}, err
	}

	if a.Config.WantsExport(config.ExportXLSX) {
		out.XLSX = base + ".xlsx"
		if err := report.WriteWorkbook(out.XLSX, summary); err != nil {
			return Outputs{}, err
		}
	}
	if a.Config.WantsExport(config.ExportPDF) {
		out.PDF = base + ".pdf"
		if err := report.WritePDF(out.PDF, summary, out.Chart); err != nil {
			return Outputs{}, err
		}
	}
	return out, nil
}
