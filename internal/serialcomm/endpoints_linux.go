package serialcomm

import (
	"os"
	"path/filepath"
	"sort"
)

const sysClassTTY = "/sys/class/tty"

// HostPorts lists the serial ports backed by a device in sysfs
func HostPorts() ([]string, error) {
	entries, err := os.ReadDir(sysClassTTY)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		device := filepath.Join(sysClassTTY, entry.Name(), "device")
		if _, err := os.Stat(device); err != nil {
			continue // virtual terminal
		}

		// legacy 8250 UARTs are registered whether or not hardware is present
		if driver, err := os.Readlink(filepath.Join(device, "driver")); err == nil && filepath.Base(driver) == "serial8250" {
			continue
		}

		ports = append(ports, filepath.Join("/dev", entry.Name()))
	}

	sort.Strings(ports)
	return ports, nil
}
