package cmd

import (
	"fmt"

	"github.com/achilleasa/gridtrace/config"
	"github.com/achilleasa/gridtrace/device"
)

// Select the first device matching the configured name and apply the
// configured overrides.
func findDevice(cfg config.DeviceConfig) (*device.Device, error) {
	devList, err := device.SelectDevices(device.AllDevices, cfg.Name)
	if err != nil {
		return nil, err
	}

	if len(devList) == 0 {
		return nil, fmt.Errorf("no device matching %q found", cfg.Name)
	}

	dev := devList[0]
	dev.SetComputeUnits(uint32(cfg.ComputeUnits))
	dev.SetLocalWorkSize(uint32(cfg.LocalWorkSize))
	return dev, nil
}
