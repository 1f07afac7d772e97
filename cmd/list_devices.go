package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/gridtrace/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available compute devices.
func ListDevices(ctx *cli.Context) error {
	if _, err := setupLogging(ctx); err != nil {
		return err
	}

	platforms, err := device.GetPlatformInfo()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Platform", "Version", "Device", "Type", "Compute units", "Work group size", "Speed"})
	for pIdx, platformInfo := range platforms {
		for dIdx, dev := range platformInfo.Devices {
			table.Append([]string{
				fmt.Sprintf("%02d: %s", pIdx, platformInfo.Name),
				platformInfo.Version,
				fmt.Sprintf("%02d: %s", dIdx, dev.Name),
				dev.Type.String(),
				fmt.Sprintf("%d", dev.ComputeUnits()),
				fmt.Sprintf("%d", dev.LocalWorkSize()),
				fmt.Sprintf("%d", dev.Speed),
			})
		}
	}

	table.Render()
	logger.Noticef("system provides %d platform(s)\n%s", len(platforms), buf.String())
	return nil
}
