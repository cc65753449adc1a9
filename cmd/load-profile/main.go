package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/config"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/energy"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/ingest"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/prompt"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/report"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/selector"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/source"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/store"
)

func main() {
	mode := flag.String("mode", "", "entity selection: select or auto")
	format := flag.String("format", "", "input CSV format: history, states or stats")
	tz := flag.String("tz", "Local", "time zone of the hour and day buckets")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *format != "" {
		cfg.Format = *format
	}

	if err := run(cfg, flag.Arg(0), *tz, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, path, tz string, stdin io.Reader, stdout io.Writer) error {
	if path == "" {
		return errors.New("usage: load-profile [flags] file.csv")
	}
	if err := source.Check(path); err != nil {
		return err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("time zone: %w", err)
	}
	mode, err := selector.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	parser, err := ingest.NewParser(cfg.Format, false)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	readings, err := parser.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	p := prompt.New(stdin, stdout)
	sel, err := selector.New(mode, cfg.PowerSuffixes, p, stdout).Select(store.New(readings))
	if err != nil {
		return err
	}

	for _, res := range energy.IntegrateAll(sel.Series) {
		if len(res.Intervals) == 0 {
			continue
		}
		printProfile(stdout, res, loc)
	}
	return nil
}

func printProfile(w io.Writer, res model.EnergyResult, loc *time.Location) {
	totalWh := res.TotalKWh * 1000

	fmt.Fprintln(w)
	fmt.Fprintf(w, "=== %s: %s kWh ===\n", res.Label, report.FormatKWh(res.TotalKWh))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Hourly Distribution:")
	fmt.Fprintf(w, "   %4s │ %8s │ %8s │ %5s\n", "Hour", "kWh", "Avg W", "Share")
	fmt.Fprintf(w, "  ──────┼──────────┼──────────┼──────\n")

	hourly := energy.ByHour(res, loc)
	peak := peakHour(hourly)
	for h, b := range hourly {
		if b.Seconds == 0 {
			continue
		}
		avgW := safeDivide(b.EnergyWh*3600, b.Seconds)
		share := safeDivide(b.EnergyWh, totalWh) * 100
		marker := ""
		if h == peak {
			marker = " ← peak"
		}
		fmt.Fprintf(w, "     %02d │ %8.3f │ %8.1f │ %4.1f%%%s\n",
			h, b.EnergyWh/1000, avgW, share, marker)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Daily Totals:")
	for _, d := range energy.ByDay(res, loc) {
		fmt.Fprintf(w, "    %s  %s kWh\n", d.Day.Format("2006-01-02"), report.FormatKWh(d.EnergyWh/1000))
	}
	fmt.Fprintln(w, strings.Repeat("─", 40))
}

// peakHour returns the hour with the highest energy, or -1 when no hour has
// any positive energy.
func peakHour(hourly [24]energy.HourBucket) int {
	peak := -1
	var max float64
	for h, b := range hourly {
		if b.EnergyWh > max {
			max = b.EnergyWh
			peak = h
		}
	}
	return peak
}

func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
