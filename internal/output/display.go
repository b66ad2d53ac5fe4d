package output

import (
	"io/fs"
	"os"
)

// DisplayDevices are the SPI and framebuffer nodes of the small external
// panels the generator can be pointed at.
var DisplayDevices = []string{"/dev/spidev0.0", "/dev/spidev0.1", "/dev/fb1"}

// ProbeDisplay returns the first device in paths that exists. Rendering to
// the device is not supported, so callers only use the result for logging and
// fall back to the terminal.
func ProbeDisplay(paths []string) (string, bool) {
	return probeDisplay(paths, os.Stat)
}

func probeDisplay(paths []string, stat func(string) (fs.FileInfo, error)) (string, bool) {
	for _, p := range paths {
		if _, err := stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
