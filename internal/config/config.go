// Package config loads the settings of the analysis tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

// Picker values.
const (
	PickerAuto    = "auto"
	PickerDialog  = "dialog"
	PickerConsole = "console"
)

// Export values.
const (
	ExportXLSX = "xlsx"
	ExportPDF  = "pdf"
)

// Config defines the analysis settings.
type Config struct {
	// Mode is "select" (power entities, ask for one) or "auto" (split a
	// 3F export into total and phases).
	Mode string `yaml:"mode"`
	// Format of the input CSV: history, states or stats.
	Format string `yaml:"format"`
	// InputDir is where the file picker starts.
	InputDir string `yaml:"input_dir"`
	// OutputDir receives the txt/png (and optional xlsx/pdf) files.
	OutputDir     string   `yaml:"output_dir"`
	Picker        string   `yaml:"picker"`
	PowerSuffixes []string `yaml:"power_suffixes"`
	Exports       []string `yaml:"exports"`
	ShowChart     bool     `yaml:"show_chart"`
	LogLevel      string   `yaml:"log_level"`
}

// Default returns the built-in settings. Input and output default to the
// directory of the program itself.
func Default() Config {
	dir := programDir()
	return Config{
		Mode:          "select",
		Format:        "history",
		InputDir:      dir,
		OutputDir:     dir,
		Picker:        PickerAuto,
		PowerSuffixes: slices.Clone(model.DefaultPowerSuffixes),
		ShowChart:     true,
		LogLevel:      "warn",
	}
}

// Load builds the configuration from the defaults, an optional YAML file
// and ANALYZA_* environment variables, in that order. path falls back to
// ANALYZA_CONFIG when empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("ANALYZA_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.Mode = getenvDefault("ANALYZA_MODE", cfg.Mode)
	cfg.Format = getenvDefault("ANALYZA_FORMAT", cfg.Format)
	cfg.InputDir = getenvDefault("ANALYZA_INPUT_DIR", cfg.InputDir)
	cfg.OutputDir = getenvDefault("ANALYZA_OUTPUT_DIR", cfg.OutputDir)
	cfg.Picker = getenvDefault("ANALYZA_PICKER", cfg.Picker)
	cfg.LogLevel = getenvDefault("ANALYZA_LOG_LEVEL", cfg.LogLevel)
	cfg.ShowChart = getenvBoolDefault("ANALYZA_SHOW_CHART", cfg.ShowChart)
	if v := splitCSV(os.Getenv("ANALYZA_POWER_SUFFIXES")); len(v) > 0 {
		cfg.PowerSuffixes = v
	}
	if v := splitCSV(os.Getenv("ANALYZA_EXPORTS")); len(v) > 0 {
		cfg.Exports = v
	}

	return cfg, nil
}

// Validate rejects unknown enumerated values.
func (c Config) Validate() error {
	if !slices.Contains([]string{"select", "auto"}, c.Mode) {
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	if !slices.Contains([]string{"history", "states", "stats"}, c.Format) {
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if !slices.Contains([]string{PickerAuto, PickerDialog, PickerConsole}, c.Picker) {
		return fmt.Errorf("config: unknown picker %q", c.Picker)
	}
	for _, e := range c.Exports {
		if e != ExportXLSX && e != ExportPDF {
			return fmt.Errorf("config: unknown export %q", e)
		}
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: output dir required")
	}
	return nil
}

// WantsExport reports whether an optional export is enabled.
func (c Config) WantsExport(name string) bool {
	return slices.Contains(c.Exports, name)
}

// EnableExport turns an optional export on.
func (c *Config) EnableExport(name string) {
	if !c.WantsExport(name) {
		c.Exports = append(c.Exports, name)
	}
}

func programDir() string {
	if len(os.Args) > 0 && os.Args[0] != "" {
		if dir, err := filepath.Abs(filepath.Dir(os.Args[0])); err == nil {
			return dir
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
