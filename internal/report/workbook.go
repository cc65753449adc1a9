package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "souhrn"

// WriteWorkbook saves an XLSX file with a summary sheet and one sheet of
// intervals per result.
func WriteWorkbook(path string, s Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	var err error
	set := func(sheet string, col, row int, value any) {
		if err != nil {
			return
		}
		var cell string
		if cell, err = excelize.CoordinatesToCellName(col, row); err == nil {
			err = f.SetCellValue(sheet, cell, value)
		}
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	set(summarySheet, 1, 1, "Soubor")
	set(summarySheet, 2, 1, s.SourceName)
	set(summarySheet, 1, 2, "Začátek dat")
	set(summarySheet, 2, 2, FormatISO(s.Range.Start))
	set(summarySheet, 1, 3, "Konec dat")
	set(summarySheet, 2, 3, FormatISO(s.Range.End))
	set(summarySheet, 1, 4, "Elektroměr")
	set(summarySheet, 2, 4, s.Shape.String())
	set(summarySheet, 1, 6, "Řada")
	set(summarySheet, 2, 6, "Spotřeba [kWh]")
	set(summarySheet, 3, 6, "Intervalů")

	for i, res := range s.Results {
		row := 7 + i
		set(summarySheet, 1, row, res.Label)
		set(summarySheet, 2, row, res.TotalKWh)
		set(summarySheet, 3, row, len(res.Intervals))

		sheet := sheetName(res.Label)
		if _, nerr := f.NewSheet(sheet); nerr != nil {
			return fmt.Errorf("adding sheet %s: %w", sheet, nerr)
		}
		for col, title := range []string{"Začátek", "Konec", "Výkon [W]", "Trvání [s]", "Energie [Wh]"} {
			set(sheet, col+1, 1, title)
		}
		for j, iv := range res.Intervals {
			r := j + 2
			set(sheet, 1, r, FormatISO(iv.Start.Timestamp))
			set(sheet, 2, r, FormatISO(iv.End))
			set(sheet, 3, r, iv.Start.Value)
			set(sheet, 4, r, iv.DurationS)
			set(sheet, 5, r, iv.EnergyWh)
		}
	}
	if err != nil {
		return fmt.Errorf("filling workbook: %w", err)
	}

	return f.SaveAs(path)
}

// sheetName makes a label usable as a worksheet name.
func sheetName(label string) string {
	name := strings.NewReplacer(":", "-", "/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")").Replace(label)
	if name == "" || strings.EqualFold(name, summarySheet) {
		name = "rada " + name
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
