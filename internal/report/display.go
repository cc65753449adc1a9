package report

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
)

var errNoDisplay = errors.New("no display available")

// Show opens path in the desktop image viewer and returns without waiting
// for the viewer to exit.
func Show(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return errNoDisplay
		}
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
