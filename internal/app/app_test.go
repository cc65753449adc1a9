package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/config"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/selector"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/source"
)

type fixedChooser struct {
	index int
	calls int
}

func (c *fixedChooser) Choose(options []string) (int, error) {
	c.calls++
	return c.index, nil
}

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func newTestApp(t *testing.T, mode, file string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = mode
	cfg.OutputDir = t.TempDir()
	cfg.ShowChart = false

	var out bytes.Buffer
	return &App{
		Config:   cfg,
		Resolver: source.Argument{Path: testdata(file)},
		Stdout:   &out,
		Logger:   zaptest.NewLogger(t),
		Now: func() time.Time {
			return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
		},
	}, &out
}

func TestRun_SinglePhaseSelect(t *testing.T) {
	a, out := newTestApp(t, "select", "solight_1f_sample.csv")

	res, err := a.Run()
	require.NoError(t, err)

	assert.Equal(t, model.SinglePhase, res.Summary.Shape)
	require.Len(t, res.Summary.Results, 1)
	// 12.5 W * 15 min + 1200 W * 30 min + 800 W * 15 min
	assert.InDelta(t, 0.803125, res.Summary.Results[0].TotalKWh, 1e-9)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), res.Summary.Range.Start)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 45, 0, 0, time.UTC), res.Summary.Range.End)
	assert.Contains(t, out.String(), "Vybraná entita: sensor.solight_zasuvka_power")

	stem := "2025-04-01T08-00-00__2025-03-01T10-00-00+00-00_to_2025-03-01T10-45-00+00-00"
	assert.Equal(t, filepath.Join(a.Config.OutputDir, stem+".txt"), res.Outputs.Text)
	assert.Equal(t, filepath.Join(a.Config.OutputDir, stem+".png"), res.Outputs.Chart)
	assert.Empty(t, res.Outputs.XLSX)
	assert.Empty(t, res.Outputs.PDF)

	text, err := os.ReadFile(res.Outputs.Text)
	require.NoError(t, err)
	assert.Equal(t, "Soubor: solight_1f_sample.csv\n"+
		"Začátek dat: 2025-03-01T10:00:00+00:00\n"+
		"Konec dat:   2025-03-01T10:45:00+00:00\n\n"+
		"Spotřeba total: 0.803 kWh\n", string(text))

	info, err := os.Stat(res.Outputs.Chart)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRun_ThreePhaseAuto(t *testing.T) {
	a, _ := newTestApp(t, "auto", "shelly_3f_sample.csv")
	chooser := &fixedChooser{}
	a.Chooser = chooser

	res, err := a.Run()
	require.NoError(t, err)

	assert.Equal(t, 0, chooser.calls)
	assert.Empty(t, res.Entity)
	assert.Equal(t, model.ThreePhase, res.Summary.Shape)
	require.Len(t, res.Summary.Results, 4)

	totals := map[string]float64{}
	for _, r := range res.Summary.Results {
		totals[r.Label] = r.TotalKWh
	}
	assert.InDelta(t, 9.0, totals["total"], 1e-9)
	assert.InDelta(t, 3.0, totals["fáze A"], 1e-9)
	assert.InDelta(t, 4.5, totals["fáze B"], 1e-9)
	assert.InDelta(t, 1.5, totals["fáze C"], 1e-9)

	text, err := os.ReadFile(res.Outputs.Text)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(text),
		"Spotřeba total: 9.000 kWh\n"+
			"Spotřeba fáze A: 3.000 kWh\n"+
			"Spotřeba fáze B: 4.500 kWh\n"+
			"Spotřeba fáze C: 1.500 kWh\n"))
}

func TestRun_SelectAsksAmongPowerEntities(t *testing.T) {
	a, out := newTestApp(t, "select", "shelly_3f_sample.csv")
	// phase_a, phase_b, phase_c, total
	chooser := &fixedChooser{index: 3}
	a.Chooser = chooser

	res, err := a.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, chooser.calls)
	assert.Equal(t, "sensor.shellypro3em_total_active_power", res.Entity)
	assert.Equal(t, model.SinglePhase, res.Summary.Shape)
	assert.InDelta(t, 9.0, res.Summary.Results[0].TotalKWh, 1e-9)
	assert.Contains(t, out.String(), "Načteno více entit. Vyber jednu pro analýzu:")
}

func TestRun_Exports(t *testing.T) {
	a, _ := newTestApp(t, "auto", "shelly_3f_sample.csv")
	a.Config.EnableExport(config.ExportXLSX)
	a.Config.EnableExport(config.ExportPDF)

	res, err := a.Run()
	require.NoError(t, err)

	for _, p := range []string{res.Outputs.XLSX, res.Outputs.PDF} {
		require.NotEmpty(t, p)
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestRun_ShowChart(t *testing.T) {
	a, _ := newTestApp(t, "auto", "shelly_3f_sample.csv")
	a.Config.ShowChart = true
	var shown string
	a.Show = func(path string) error {
		shown = path
		return errors.New("no display")
	}

	res, err := a.Run()
	require.NoError(t, err)
	assert.Equal(t, res.Outputs.Chart, shown)
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		a, _ := newTestApp(t, "select", "does_not_exist.csv")
		_, err := a.Run()
		assert.ErrorIs(t, err, source.ErrInputNotFound)
	})

	t.Run("no power entities", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "voltage.csv")
		require.NoError(t, os.WriteFile(path, []byte(
			"entity_id,state,last_changed\n"+
				"sensor.x_voltage,230,2025-03-01T10:00:00Z\n"), 0o644))
		a, _ := newTestApp(t, "select", "")
		a.Resolver = source.Argument{Path: path}

		_, err := a.Run()
		assert.ErrorIs(t, err, selector.ErrNoEntities)
	})

	t.Run("only non-numeric states", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.csv")
		require.NoError(t, os.WriteFile(path, []byte(
			"entity_id,state,last_changed\n"+
				"sensor.x_power,unavailable,2025-03-01T10:00:00Z\n"), 0o644))
		a, _ := newTestApp(t, "select", "")
		a.Resolver = source.Argument{Path: path}

		_, err := a.Run()
		assert.ErrorIs(t, err, ErrNoReadings)
	})

	t.Run("cancelled picker", func(t *testing.T) {
		a, _ := newTestApp(t, "select", "")
		a.Resolver = source.Console{Dir: t.TempDir()}

		_, err := a.Run()
		assert.ErrorIs(t, err, source.ErrNoFileSelected)
	})

	t.Run("unknown mode", func(t *testing.T) {
		a, _ := newTestApp(t, "manual", "solight_1f_sample.csv")
		_, err := a.Run()
		assert.Error(t, err)
	})
}

func TestRun_OtherFormats(t *testing.T) {
	a, _ := newTestApp(t, "select", "stats_sample.csv")
	a.Config.Format = "stats"

	res, err := a.Run()
	require.NoError(t, err)
	// 500 W for 1 h, 250.5 W for 1 h; the empty avg row is dropped
	assert.InDelta(t, 0.5, res.Summary.Results[0].TotalKWh, 1e-9)
}
