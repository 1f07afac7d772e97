package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/achilleasa/gridtrace/asset/archive"
	"github.com/achilleasa/gridtrace/asset/mesh/reader"
	"github.com/achilleasa/gridtrace/config"
	"github.com/achilleasa/gridtrace/grid"
	"github.com/urfave/cli"
)

// Build a uniform grid for each model passed as an argument.
func BuildGrid(ctx *cli.Context) error {
	cfg, err := setupLogging(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing model file")
	}

	outFile := ctx.String("out")
	if outFile != "" && ctx.NArg() > 1 {
		return errors.New("--out can only be used with a single model file")
	}

	applyBuildFlags(ctx, cfg)
	if err = cfg.Validate(); err != nil {
		return err
	}

	dev, err := findDevice(cfg.Device)
	if err != nil {
		return err
	}
	defer dev.Close()
	logger.Infof(`using device "%s"`, dev.Name)

	builder, err := grid.NewGridBuilder(dev, grid.Options{
		Density:           cfg.Grid.Density,
		MaxAxisResolution: cfg.Grid.MaxAxisResolution,
		LocalWorkSize:     uint32(cfg.Device.LocalWorkSize),
	})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for idx := 0; idx < ctx.NArg(); idx++ {
		modelFile := ctx.Args().Get(idx)

		logger.Noticef("parsing model: %s", modelFile)
		m, err := reader.ReadMesh(runCtx, modelFile)
		if err != nil {
			return err
		}

		logger.Noticef("building grid for %d triangles", m.TriangleCount())
		pending := builder.BuildAsync(runCtx, m.Positions, m.Indices, m.TriangleCount())
		g, err := pending.Wait(runCtx)
		if err != nil {
			return err
		}

		displayGridStats(modelFile, g.Stats())
		displayPhaseTimings(pending.Timings())

		if ctx.Bool("dry-run") {
			continue
		}

		zipFile := outFile
		if zipFile == "" {
			zipFile = archiveName(modelFile)
		}
		if err = archive.WriteGrid(g, modelFile, zipFile); err != nil {
			return err
		}
		logger.Noticef("wrote grid archive: %s", zipFile)
	}

	return nil
}

// Override config settings with any build flags set on the command line.
func applyBuildFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet("density") {
		cfg.Grid.Density = float32(ctx.Float64("density"))
	}
	if ctx.IsSet("max-axis-resolution") {
		cfg.Grid.MaxAxisResolution = uint32(ctx.Uint("max-axis-resolution"))
	}
	if ctx.IsSet("device") {
		cfg.Device.Name = ctx.String("device")
	}
	if ctx.IsSet("compute-units") {
		cfg.Device.ComputeUnits = ctx.Int("compute-units")
	}
	if ctx.IsSet("local-work-size") {
		cfg.Device.LocalWorkSize = ctx.Int("local-work-size")
	}
}

// Get the archive filename for a model. Remote models are written to the
// working directory.
func archiveName(modelFile string) string {
	if strings.Contains(modelFile, "://") {
		modelFile = filepath.Base(modelFile)
	}
	return strings.TrimSuffix(modelFile, filepath.Ext(modelFile)) + ".zip"
}
