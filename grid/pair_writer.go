package grid

import (
	"context"
	"fmt"

	"github.com/achilleasa/gridtrace/device"
	"github.com/achilleasa/gridtrace/types"
)

// PairWriter turns per-cell counts into cell offsets and compacts the
// (triangle, cell) pairs into a references array.
//
// The prefix sum is a blocked scan: each work group sums the counts of its
// block of cells, a single work item scans the block totals and finally each
// work group scans its own block starting from the block base offset. The
// scatter pass re-runs the overlap test used for counting and claims slots
// through per-cell atomic cursors.
type PairWriter struct {
	dev       *device.Device
	geometry  *geometryBuffers
	groupSize int

	kernels     []*device.Kernel
	blockTotals *device.Buffer
	total       *device.Buffer
	cursors     *device.Buffer
}

func newPairWriter(dev *device.Device, geometry *geometryBuffers, groupSize int) (*PairWriter, error) {
	kernels, err := loadKernels(dev, sumCellBlocks, scanBlockTotals, scanCellBlocks, scatterPairs)
	if err != nil {
		return nil, err
	}

	return &PairWriter{
		dev:         dev,
		geometry:    geometry,
		groupSize:   groupSize,
		kernels:     kernels,
		blockTotals: dev.Buffer("blockTotals"),
		total:       dev.Buffer("total"),
		cursors:     dev.Buffer("cursors"),
	}, nil
}

// Compute the cell offsets and compact the references array. This is
// PrefixSum followed by Scatter.
func (pw *PairWriter) WritePairs(ctx context.Context, cells *device.Buffer, bboxMin, cellSize types.Vec3, res [3]uint32) (*device.Buffer, error) {
	total, err := pw.PrefixSum(ctx, cells)
	if err != nil {
		return nil, err
	}
	return pw.Scatter(ctx, cells, total, bboxMin, cellSize, res)
}

// Fill in the offset of each cell with the exclusive prefix sum of the cell
// counts and return the total number of references.
func (pw *PairWriter) PrefixSum(ctx context.Context, cells *device.Buffer) (uint32, error) {
	numCells := cells.Len() / cellWords
	numBlocks := device.NumGroups(numCells, pw.groupSize)

	if err := pw.blockTotals.Allocate(numBlocks * 4); err != nil {
		return 0, err
	}
	if err := pw.total.Allocate(4); err != nil {
		return 0, err
	}
	if err := pw.cursors.Allocate(numCells * 4); err != nil {
		return 0, err
	}

	kernel := pw.kernels[0]
	if err := kernel.SetArgs(cells, pw.blockTotals); err != nil {
		return 0, err
	}
	if _, err := kernel.Exec1D(ctx, 0, numCells, pw.groupSize); err != nil {
		return 0, err
	}

	kernel = pw.kernels[1]
	if err := kernel.SetArgs(pw.blockTotals, pw.total); err != nil {
		return 0, err
	}
	if _, err := kernel.Exec1D(ctx, 0, 1, 1); err != nil {
		return 0, err
	}

	kernel = pw.kernels[2]
	if err := kernel.SetArgs(cells, pw.blockTotals, pw.cursors); err != nil {
		return 0, err
	}
	if _, err := kernel.Exec1D(ctx, 0, numCells, pw.groupSize); err != nil {
		return 0, err
	}

	return pw.total.AtomicLoad(0), nil
}

// Allocate a references array with total slots and scatter each triangle
// index into the ranges reserved by the cells it overlaps. PrefixSum must
// have completed for the supplied cells.
func (pw *PairWriter) Scatter(ctx context.Context, cells *device.Buffer, total uint32, bboxMin, cellSize types.Vec3, res [3]uint32) (*device.Buffer, error) {
	if pw.cursors.Len() != cells.Len()/cellWords {
		return nil, fmt.Errorf("grid: scatter requires the cell offsets computed by the prefix sum pass")
	}

	refs := pw.dev.Buffer("references")
	if err := refs.Allocate(int(total) * 4); err != nil {
		return nil, err
	}

	kernel := pw.kernels[3]
	err := kernel.SetArgs(
		pw.geometry.Positions,
		pw.geometry.Indices,
		cells,
		pw.cursors,
		refs,
		bboxMin,
		cellSize,
		res,
	)
	if err != nil {
		refs.Release()
		return nil, err
	}

	if _, err = kernel.Exec1D(ctx, 0, pw.geometry.triangleCount, pw.groupSize); err != nil {
		refs.Release()
		return nil, err
	}

	return refs, nil
}

// Release kernels and transient buffers.
func (pw *PairWriter) Release() {
	releaseKernels(pw.kernels)
	pw.kernels = nil
	pw.blockTotals.Release()
	pw.total.Release()
	pw.cursors.Release()
}
