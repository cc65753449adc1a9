package report

import (
	"fmt"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// WritePDF renders a one-page report. When chartPath is set, the chart
// image is placed under the totals.
func WritePDF(path string, s Summary, chartPath string) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, ascii(ChartTitle(s.Shape)))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, ascii(fmt.Sprintf("Soubor: %s", s.SourceName)))
	pdf.Ln(5)
	pdf.Cell(0, 6, ascii(fmt.Sprintf("Začátek dat: %s", FormatISO(s.Range.Start))))
	pdf.Ln(5)
	pdf.Cell(0, 6, ascii(fmt.Sprintf("Konec dat: %s", FormatISO(s.Range.End))))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, ascii("Řada"), "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, ascii("Spotřeba [kWh]"), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, res := range s.Results {
		pdf.CellFormat(50, 6, ascii(res.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, FormatKWh(res.TotalKWh), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if chartPath != "" {
		pdf.Ln(4)
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.ImageOptions(chartPath, 10, pdf.GetY(), 277, 0, false, opts, 0, "")
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ascii strips diacritics; the PDF core fonts cover Latin-1 only.
func ascii(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
