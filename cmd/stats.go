package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/gridtrace/grid"
	"github.com/olekukonko/tablewriter"
)

func displayGridStats(source string, stats grid.Stats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Resolution", "Cell size", "Triangles", "Cells", "Empty cells", "References", "Max refs/cell", "Avg refs/cell", "Refs/triangle", "Memory"})
	table.Append([]string{
		fmt.Sprintf("%d x %d x %d", stats.Resolution[0], stats.Resolution[1], stats.Resolution[2]),
		stats.CellSize.String(),
		fmt.Sprintf("%d", stats.TriangleCount),
		fmt.Sprintf("%d", stats.Cells),
		fmt.Sprintf("%d (%02.1f %%)", stats.EmptyCells, 100*float32(stats.EmptyCells)/float32(stats.Cells)),
		fmt.Sprintf("%d", stats.References),
		fmt.Sprintf("%d", stats.MaxCellRefs),
		fmt.Sprintf("%.2f", stats.AvgCellRefs),
		fmt.Sprintf("%.2f", stats.RefsPerTri),
		fmtBytes(stats.MemoryInBytes),
	})

	table.Render()
	logger.Noticef("grid statistics for %s\n%s", source, buf.String())
}

func displayPhaseTimings(timings grid.Timings) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Phase", "Time", "% of build"})
	total := timings.Total()
	for phase, d := range timings {
		var percent float64
		if total > 0 {
			percent = 100 * float64(d) / float64(total)
		}
		table.Append([]string{
			grid.Phase(phase).String(),
			d.String(),
			fmt.Sprintf("%02.1f %%", percent),
		})
	}
	table.SetFooter([]string{"TOTAL", total.String(), ""})

	table.Render()
	logger.Noticef("build timings\n%s", buf.String())
}

func fmtBytes(size int) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
