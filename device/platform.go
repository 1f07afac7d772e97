package device

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"
)

const (
	// Default work group size for dispatches that do not specify one.
	defaultLocalWorkSize = 256
)

// Information about a compute platform and its devices.
type PlatformInfo struct {
	Profile    string
	Version    string
	Name       string
	Vendor     string
	Extensions string
	Devices    []*Device
}

func (pl PlatformInfo) String() string {
	var buf bytes.Buffer

	buf.WriteString(
		fmt.Sprintf(
			"Version:    %s\nName:       %s\nVendor:     %s\nExtensions: %s\nDevices:\n",
			pl.Version,
			pl.Name,
			pl.Vendor,
			pl.Extensions,
		),
	)

	for dIdx, d := range pl.Devices {
		buf.WriteString(fmt.Sprintf("  Device %02d:\n", dIdx))
		buf.WriteString(indentRegex.ReplaceAllString(d.String(), "    "))
		buf.WriteString("\n\n")
	}

	return buf.String()
}

// Get information about the supported platforms and devices. The Go runtime
// platform exposes a single CPU device whose compute units are the
// goroutines allowed to run in parallel (GOMAXPROCS).
func GetPlatformInfo() ([]PlatformInfo, error) {
	procs := runtime.GOMAXPROCS(0)
	if procs < 1 {
		return nil, fmt.Errorf("device: could not detect available processors")
	}

	cpu := &Device{
		Name:          fmt.Sprintf("Go runtime CPU (%s/%s, %d threads)", runtime.GOOS, runtime.GOARCH, procs),
		Type:          CpuDevice,
		compUnits:     uint32(procs),
		localWorkSize: defaultLocalWorkSize,
		Speed:         uint32(procs),
	}

	return []PlatformInfo{
		{
			Profile:    "FULL_PROFILE",
			Version:    runtime.Version(),
			Name:       "Go runtime",
			Vendor:     "The Go Authors",
			Extensions: "atomic_counters work_groups",
			Devices:    []*Device{cpu},
		},
	}, nil
}

// Scan all available platforms and select devices that match the given query.
func SelectDevices(typeMask DeviceType, matchName string) ([]*Device, error) {
	platforms, err := GetPlatformInfo()
	if err != nil {
		return nil, err
	}
	list := make([]*Device, 0)
	for _, p := range platforms {
		for _, d := range p.Devices {
			// Match type
			if d.Type&typeMask != d.Type {
				continue
			}

			// Match name
			if matchName != "" && !strings.Contains(d.Name, matchName) {
				continue
			}

			list = append(list, d)
		}
	}
	return list, nil
}
