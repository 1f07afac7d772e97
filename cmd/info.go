package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/achilleasa/gridtrace/asset/archive"
	"github.com/achilleasa/gridtrace/types"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Display archived grid info.
func ShowGridInfo(ctx *cli.Context) error {
	if _, err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing grid archive")
	}

	g, info, err := archive.ReadGrid(context.Background(), ctx.Args().First())
	if err != nil {
		return err
	}

	logger.Noticef(
		"grid archive v%d built from %s at %s",
		info.Version,
		info.Source,
		info.Created.Format("2006-01-02 15:04:05"),
	)
	displayGridStats(ctx.Args().First(), g.Stats())
	return nil
}

// Display the triangles that may intersect a point.
func LookupPoint(ctx *cli.Context) error {
	if _, err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing grid archive")
	}

	if !ctx.IsSet("point") {
		return errors.New("missing --point argument")
	}

	p, err := types.ParseVec3(ctx.String("point"))
	if err != nil {
		return err
	}

	g, _, err := archive.ReadGrid(context.Background(), ctx.Args().First())
	if err != nil {
		return err
	}

	if !g.BBox.Contains(p) {
		logger.Warningf("point %s lies outside the grid bbox %s; using the closest cell", p, g.BBox)
	}

	coords := g.CellCoords(p)
	candidates := g.Candidates(p)
	tris := make([]string, len(candidates))
	for i, tri := range candidates {
		tris[i] = fmt.Sprintf("%d", tri)
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Point", "Cell", "Cell index", "Candidates", "Triangles"})
	table.Append([]string{
		p.String(),
		fmt.Sprintf("(%d, %d, %d)", coords[0], coords[1], coords[2]),
		fmt.Sprintf("%d", g.CellIndex(p)),
		fmt.Sprintf("%d", len(candidates)),
		strings.Join(tris, " "),
	})

	table.Render()
	logger.Noticef("lookup results\n%s", buf.String())
	return nil
}
