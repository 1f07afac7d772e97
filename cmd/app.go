package cmd

import (
	"github.com/urfave/cli"
)

// Create the gridtrace command line application.
func NewApp() *cli.App {
	// The default version flag shadows -v.
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "gridtrace"
	app.Usage = "build uniform grid acceleration structures for triangle meshes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load build settings from a YAML file",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "also write logs to a size-rotated file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build a uniform grid for one or more meshes",
			Description: `
Parse a mesh from a wavefront obj file, compute its bounding box, pick a grid
resolution so that each cell holds roughly --density triangles and bin every
triangle into the cells its bounding box overlaps.

The grid is written to a zip archive which can be supplied as an argument to
the info and lookup commands.`,
			ArgsUsage: "model1.obj model2.obj ...",
			Flags: []cli.Flag{
				cli.Float64Flag{
					Name:  "density, d",
					Value: 5,
					Usage: "target average number of triangles per cell",
				},
				cli.UintFlag{
					Name:  "max-axis-resolution",
					Value: 512,
					Usage: "upper bound for the number of cells along each axis",
				},
				cli.StringFlag{
					Name:  "device",
					Usage: "use the first compute device whose name contains this value",
				},
				cli.IntFlag{
					Name:  "compute-units",
					Usage: "number of work groups executed concurrently (0 = detect)",
				},
				cli.IntFlag{
					Name:  "local-work-size",
					Usage: "work group size for kernel dispatches (0 = device default)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "grid archive filename; defaults to the model name with a .zip extension",
				},
				cli.BoolFlag{
					Name:  "dry-run",
					Usage: "build and display statistics without writing an archive",
				},
			},
			Action: BuildGrid,
		},
		{
			Name:      "info",
			Usage:     "print statistics for a grid archive",
			ArgsUsage: "grid.zip",
			Action:    ShowGridInfo,
		},
		{
			Name:      "lookup",
			Usage:     "print the triangles that may intersect a point",
			ArgsUsage: "grid.zip",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "point, p",
					Usage: "lookup point as x,y,z",
				},
			},
			Action: LookupPoint,
		},
		{
			Name:   "list-devices",
			Usage:  "list available compute devices",
			Action: ListDevices,
		},
	}

	return app
}
