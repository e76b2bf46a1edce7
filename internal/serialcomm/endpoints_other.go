//go:build !linux && !windows

package serialcomm

import (
	"path/filepath"
	"sort"
)

var devicePatterns = []string{
	"/dev/cu.usbmodem*",
	"/dev/cu.usbserial*",
	"/dev/tty.usbmodem*",
	"/dev/tty.usbserial*",
	"/dev/ttyU*",
}

// HostPorts lists the USB serial device nodes under /dev
func HostPorts() ([]string, error) {
	var ports []string
	for _, pattern := range devicePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		ports = append(ports, matches...)
	}

	sort.Strings(ports)
	return ports, nil
}
