package main

import (
	"os/exec"
	"runtime"

	"github.com/spf13/afero"
	"spotload/internal/config"
)

// splitTrailing peels an optional quality token and an optional existing
// folder off the end of args, in that order: "<input...> [quality] [folder]".
// At least one argument is always left for the input.
func splitTrailing(fs afero.Fs, args []string) (rest []string, quality, folder string) {
	rest = args
	if len(rest) > 1 {
		last := rest[len(rest)-1]
		if ok, _ := afero.DirExists(fs, last); ok {
			folder = last
			rest = rest[:len(rest)-1]
		}
	}
	if len(rest) > 1 && config.IsQuality(rest[len(rest)-1]) {
		quality = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	return rest, quality, folder
}

// openFolder shows path in the platform file manager without waiting for it.
func openFolder(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
