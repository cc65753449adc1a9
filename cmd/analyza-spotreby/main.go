package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/app"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/config"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/prompt"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/report"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/selector"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/source"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses the command line, executes one analysis and returns the exit
// code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyza-spotreby", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (default $ANALYZA_CONFIG)")
	mode := fs.String("mode", "", "entity selection: select or auto")
	format := fs.String("format", "", "input CSV format: history, states or stats")
	outDir := fs.String("out", "", "output directory")
	inputDir := fs.String("dir", "", "directory offered by the file picker")
	picker := fs.String("picker", "", "file picker: auto, dialog or console")
	xlsx := fs.Bool("xlsx", false, "also write an Excel workbook")
	pdf := fs.Bool("pdf", false, "also write a PDF report")
	noShow := fs.Bool("no-show", false, "do not open the chart")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	applyFlags(&cfg, flagValues{
		mode:     *mode,
		format:   *format,
		outDir:   *outDir,
		inputDir: *inputDir,
		picker:   *picker,
		xlsx:     *xlsx,
		pdf:      *pdf,
		noShow:   *noShow,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger, err := newLogger(cfg.LogLevel, *verbose, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer logger.Sync()

	p := prompt.New(stdin, stdout)
	a := &app.App{
		Config:   cfg,
		Resolver: newResolver(cfg, fs.Arg(0), p, stdout),
		Chooser:  p,
		Stdout:   stdout,
		Logger:   logger,
		Show:     report.Show,
	}

	res, err := a.Run()
	if err != nil {
		logger.Debug("run failed", zap.Error(err))
		fmt.Fprintln(stdout, userMessage(err))
		return 1
	}

	fmt.Fprintf(stdout, "\nHotovo.\nTXT: %s\nPNG: %s\n",
		filepath.Base(res.Outputs.Text), filepath.Base(res.Outputs.Chart))
	if res.Outputs.XLSX != "" {
		fmt.Fprintf(stdout, "XLSX: %s\n", filepath.Base(res.Outputs.XLSX))
	}
	if res.Outputs.PDF != "" {
		fmt.Fprintf(stdout, "PDF: %s\n", filepath.Base(res.Outputs.PDF))
	}
	return 0
}

type flagValues struct {
	mode, format, outDir, inputDir, picker string
	xlsx, pdf, noShow                      bool
}

// applyFlags overrides cfg with the flags that were set.
func applyFlags(cfg *config.Config, f flagValues) {
	if f.mode != "" {
		cfg.Mode = f.mode
	}
	if f.format != "" {
		cfg.Format = f.format
	}
	if f.outDir != "" {
		cfg.OutputDir = f.outDir
	}
	if f.inputDir != "" {
		cfg.InputDir = f.inputDir
	}
	if f.picker != "" {
		cfg.Picker = f.picker
	}
	if f.xlsx {
		cfg.EnableExport(config.ExportXLSX)
	}
	if f.pdf {
		cfg.EnableExport(config.ExportPDF)
	}
	if f.noShow {
		cfg.ShowChart = false
	}
}

// newResolver picks where the input path comes from: the argument when
// given, otherwise the configured picker.
func newResolver(cfg config.Config, arg string, p *prompt.Prompt, out io.Writer) source.Resolver {
	if arg != "" {
		return source.Argument{Path: arg}
	}

	console := source.Console{Dir: cfg.InputDir, Prompt: p, Out: out}
	dialog := source.Dialog{Dir: cfg.InputDir, Title: "Vyber CSV soubor z Home Assistanta"}
	switch cfg.Picker {
	case config.PickerDialog:
		return dialog
	case config.PickerConsole:
		return console
	}
	if source.DialogAvailable() {
		return dialog
	}
	return console
}

// newLogger builds the zap logger. Verbose runs get the development config.
func newLogger(level string, verbose bool, w io.Writer) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build(zap.ErrorOutput(zapcore.AddSync(w)))
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// userMessage maps run errors to the console messages shown to the user.
func userMessage(err error) string {
	var nf *source.NotFoundError
	switch {
	case errors.As(err, &nf):
		return fmt.Sprintf("Soubor %s neexistuje.", nf.Path)
	case errors.Is(err, source.ErrNoFileSelected), errors.Is(err, prompt.ErrNoInput):
		return "Nebyl vybrán žádný soubor."
	case errors.Is(err, selector.ErrNoEntities):
		return "V souboru nejsou žádné entity výkonu."
	case errors.Is(err, app.ErrNoReadings):
		return "V souboru nejsou žádná číselná data."
	}
	return fmt.Sprintf("Chyba: %v", err)
}
