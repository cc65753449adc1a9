// Package source resolves which input file a run analyses.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/prompt"
)

var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrInputNotFound  = errors.New("input file does not exist")
)

// Resolver returns the path of the file to analyse.
type Resolver interface {
	Resolve() (string, error)
}

// Argument resolves to a path given on the command line.
type Argument struct {
	Path string
}

func (a Argument) Resolve() (string, error) {
	return a.Path, nil
}

// Dialog shows a native file dialog through zenity.
type Dialog struct {
	Dir   string
	Title string
	// Run executes the dialog command and returns its standard output.
	// Defaults to running the command with os/exec.
	Run func(name string, args ...string) ([]byte, error)
}

func (d Dialog) Resolve() (string, error) {
	run := d.Run
	if run == nil {
		run = func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		}
	}

	args := []string{
		"--file-selection",
		"--title=" + d.Title,
		"--file-filter=CSV files | *.csv",
	}
	if d.Dir != "" {
		args = append(args, "--filename="+strings.TrimSuffix(d.Dir, string(filepath.Separator))+string(filepath.Separator))
	}

	out, err := run("zenity", args...)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// zenity exits non-zero when the dialog is cancelled.
		return "", ErrNoFileSelected
	}
	if err != nil {
		return "", fmt.Errorf("running file dialog: %w", err)
	}

	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", ErrNoFileSelected
	}
	return path, nil
}

// DialogAvailable reports whether a graphical session and zenity exist.
func DialogAvailable() bool {
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return false
	}
	_, err := exec.LookPath("zenity")
	return err == nil
}

// Console lists the CSV files of Dir and lets the user pick one by number.
// An empty answer cancels.
type Console struct {
	Dir    string
	Prompt *prompt.Prompt
	Out    io.Writer
}

func (c Console) Resolve() (string, error) {
	files, err := ListCSV(c.Dir)
	if err != nil {
		return "", err
	}
	out := c.Out
	if out == nil {
		out = io.Discard
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "Ve složce %s nejsou žádné CSV soubory.\n", c.Dir)
		return "", ErrNoFileSelected
	}

	fmt.Fprintf(out, "Vyber CSV soubor ze složky %s (prázdný vstup = konec):\n\n", c.Dir)
	c.Prompt.AllowCancel = true
	defer func() { c.Prompt.AllowCancel = false }()

	idx, err := c.Prompt.Choose(files)
	if errors.Is(err, prompt.ErrCancelled) || errors.Is(err, prompt.ErrNoInput) {
		return "", ErrNoFileSelected
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Dir, files[idx]), nil
}

// ListCSV returns the names of the *.csv files in dir, sorted.
func ListCSV(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// NotFoundError reports an input path that is missing or not a file. It
// matches ErrInputNotFound.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInputNotFound, e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrInputNotFound
}

// Check verifies that path names an existing regular file.
func Check(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return &NotFoundError{Path: path}
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &NotFoundError{Path: path}
	}
	return nil
}
