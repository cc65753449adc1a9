package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

// Summary is everything the reports show about one run.
type Summary struct {
	SourceName string
	Range      model.TimeRange
	Shape      model.MeterShape
	Results    []model.EnergyResult
}

// WriteSummary writes the plain-text report. Totals are rounded to three
// decimals for display only.
func WriteSummary(w io.Writer, s Summary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Soubor: %s\n", s.SourceName)
	fmt.Fprintf(bw, "Začátek dat: %s\n", FormatISO(s.Range.Start))
	fmt.Fprintf(bw, "Konec dat:   %s\n\n", FormatISO(s.Range.End))
	for _, res := range s.Results {
		fmt.Fprintf(bw, "Spotřeba %s: %s kWh\n", res.Label, FormatKWh(res.TotalKWh))
	}
	return bw.Flush()
}

// WriteSummaryFile writes the text report to path as UTF-8.
func WriteSummaryFile(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSummary(f, s); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// FormatKWh renders an energy total with three decimals.
func FormatKWh(kwh float64) string {
	if math.IsNaN(kwh) || math.IsInf(kwh, 0) {
		return strconv.FormatFloat(kwh, 'f', 3, 64)
	}
	return decimal.NewFromFloat(kwh).StringFixed(3)
}
