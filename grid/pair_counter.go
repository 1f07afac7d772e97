package grid

import (
	"context"

	"github.com/achilleasa/gridtrace/device"
	"github.com/achilleasa/gridtrace/types"
)

// PairCounter builds a histogram of (triangle, cell) overlaps. Each triangle's
// bounding box is mapped into cell-index space and the counter of every cell
// in the covered index range is atomically incremented.
type PairCounter struct {
	dev       *device.Device
	geometry  *geometryBuffers
	groupSize int

	kernel *device.Kernel
}

func newPairCounter(dev *device.Device, geometry *geometryBuffers, groupSize int) (*PairCounter, error) {
	kernels, err := loadKernels(dev, countPairs)
	if err != nil {
		return nil, err
	}

	return &PairCounter{
		dev:       dev,
		geometry:  geometry,
		groupSize: groupSize,
		kernel:    kernels[0],
	}, nil
}

// Count the triangles overlapping each cell of a grid with the given origin,
// cell size and resolution. The returned buffer stores an (offset, count)
// word pair per cell; offsets are left at zero for the prefix sum pass.
func (pc *PairCounter) CountPairs(ctx context.Context, bboxMin, cellSize types.Vec3, res [3]uint32) (*device.Buffer, error) {
	params := gridParams{min: bboxMin, cellSize: cellSize, res: res}

	cells := pc.dev.Buffer("cells")
	if err := cells.Allocate(params.numCells() * cellWords * 4); err != nil {
		return nil, err
	}

	err := pc.kernel.SetArgs(
		pc.geometry.Positions,
		pc.geometry.Indices,
		cells,
		params.min,
		params.cellSize,
		params.res,
	)
	if err != nil {
		cells.Release()
		return nil, err
	}

	if _, err = pc.kernel.Exec1D(ctx, 0, pc.geometry.triangleCount, pc.groupSize); err != nil {
		cells.Release()
		return nil, err
	}

	return cells, nil
}

// Release the counting kernel.
func (pc *PairCounter) Release() {
	if pc.kernel != nil {
		pc.kernel.Release()
		pc.kernel = nil
	}
}
