package serialcomm

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sys/windows/registry"
)

const serialCommKey = `HARDWARE\DEVICEMAP\SERIALCOMM`

// HostPorts lists the COM ports registered under SERIALCOMM
func HostPorts() ([]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, serialCommKey, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, nil // key is absent until the first port appears
		}
		return nil, fmt.Errorf("opening %s: %w", serialCommKey, err)
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", serialCommKey, err)
	}

	ports := make([]string, 0, len(names))
	for _, name := range names {
		port, _, err := k.GetStringValue(name)
		if err != nil {
			continue
		}
		ports = append(ports, port)
	}

	sort.Strings(ports)
	return ports, nil
}
