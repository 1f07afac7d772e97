package grid

import (
	"fmt"
	"math"

	"github.com/achilleasa/gridtrace/device"
	"github.com/achilleasa/gridtrace/types"
)

const (
	// Each bbox partial stores min.xyz followed by max.xyz.
	bboxPartialWords = 6

	// Each cell record stores its offset followed by its count.
	cellWords = 2
)

// The device program with all grid builder kernels.
var Program = device.Program{
	reduceTriangleBBox.String(): reduceTriangleBBoxKernel,
	reduceBBoxPartials.String(): reduceBBoxPartialsKernel,
	countPairs.String():         countPairsKernel,
	sumCellBlocks.String():      sumCellBlocksKernel,
	scanBlockTotals.String():    scanBlockTotalsKernel,
	scanCellBlocks.String():     scanCellBlocksKernel,
	scatterPairs.String():       scatterPairsKernel,
}

// Reduce the vertices of the triangles in a work group to a min/max pair.
//
// Args: positions, indices, partials.
func reduceTriangleBBoxKernel(args device.Args, group device.WorkGroup) error {
	positions := args.Buffer(0).Float32s()
	indices := args.Buffer(1).Uint32s()
	partials := args.Buffer(2).Float32s()

	min, max := triangleBBox(positions, indices, group.Start)
	for tri := group.Start + 1; tri < group.End; tri++ {
		triMin, triMax := triangleBBox(positions, indices, tri)
		min = types.MinVec3(min, triMin)
		max = types.MaxVec3(max, triMax)
	}

	writeBBoxPartial(partials, group.ID, min, max)
	return nil
}

// Reduce a range of min/max pairs produced by a previous reduction step.
//
// Args: input partials, output partials.
func reduceBBoxPartialsKernel(args device.Args, group device.WorkGroup) error {
	in := args.Buffer(0).Float32s()
	out := args.Buffer(1).Float32s()

	min, max := readBBoxPartial(in, group.Start)
	for i := group.Start + 1; i < group.End; i++ {
		pMin, pMax := readBBoxPartial(in, i)
		min = types.MinVec3(min, pMin)
		max = types.MaxVec3(max, pMax)
	}

	writeBBoxPartial(out, group.ID, min, max)
	return nil
}

func readBBoxPartial(partials []float32, index int) (min, max types.Vec3) {
	base := index * bboxPartialWords
	copy(min[:], partials[base:base+3])
	copy(max[:], partials[base+3:base+6])
	return min, max
}

func writeBBoxPartial(partials []float32, index int, min, max types.Vec3) {
	base := index * bboxPartialWords
	copy(partials[base:base+3], min[:])
	copy(partials[base+3:base+6], max[:])
}

// Increment the counter of every cell overlapped by each triangle.
//
// Args: positions, indices, cells, grid min, cell size, resolution.
func countPairsKernel(args device.Args, group device.WorkGroup) error {
	positions := args.Buffer(0).Float32s()
	indices := args.Buffer(1).Uint32s()
	cells := args.Buffer(2)
	params := gridParams{
		min:      args.Vec3(3),
		cellSize: args.Vec3(4),
		res:      args.Uint32x3(5),
	}

	for tri := group.Start; tri < group.End; tri++ {
		lo, hi := params.cellRange(triangleBBox(positions, indices, tri))
		for z := lo[2]; z <= hi[2]; z++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for x := lo[0]; x <= hi[0]; x++ {
					cells.AtomicAdd(cellWords*params.linearIndex(x, y, z)+1, 1)
				}
			}
		}
	}
	return nil
}

// Sum the cell counts of each block of cells.
//
// Args: cells, block totals.
func sumCellBlocksKernel(args device.Args, group device.WorkGroup) error {
	cells := args.Buffer(0).Uint32s()
	blockTotals := args.Buffer(1).Uint32s()

	var sum uint64
	for c := group.Start; c < group.End; c++ {
		sum += uint64(cells[cellWords*c+1])
	}
	if sum > math.MaxUint32 {
		return fmt.Errorf("%w: cell block %d holds %d references", ErrTooManyReferences, group.ID, sum)
	}

	blockTotals[group.ID] = uint32(sum)
	return nil
}

// Replace the block totals with their exclusive prefix sum and store the grand
// total. Runs as a single work item.
//
// Args: block totals, total.
func scanBlockTotalsKernel(args device.Args, group device.WorkGroup) error {
	blockTotals := args.Buffer(0).Uint32s()
	total := args.Buffer(1).Uint32s()

	var running uint64
	for block, blockTotal := range blockTotals {
		blockTotals[block] = uint32(running)
		running += uint64(blockTotal)
		if running > math.MaxUint32 {
			return fmt.Errorf("%w: %d references", ErrTooManyReferences, running)
		}
	}

	total[0] = uint32(running)
	return nil
}

// Write each cell's offset as the exclusive prefix sum of the counts in its
// block plus the block base offset. The scatter cursors start at the same
// offsets.
//
// Args: cells, block offsets, cursors.
func scanCellBlocksKernel(args device.Args, group device.WorkGroup) error {
	cells := args.Buffer(0).Uint32s()
	blockOffsets := args.Buffer(1).Uint32s()
	cursors := args.Buffer(2).Uint32s()

	running := blockOffsets[group.ID]
	for c := group.Start; c < group.End; c++ {
		cells[cellWords*c] = running
		cursors[c] = running
		running += cells[cellWords*c+1]
	}
	return nil
}

// Write each triangle index into the reserved range of every cell it
// overlaps.
//
// Args: positions, indices, cells, cursors, references, grid min, cell size,
// resolution.
func scatterPairsKernel(args device.Args, group device.WorkGroup) error {
	positions := args.Buffer(0).Float32s()
	indices := args.Buffer(1).Uint32s()
	cells := args.Buffer(2).Uint32s()
	cursors := args.Buffer(3)
	refs := args.Buffer(4).Uint32s()
	params := gridParams{
		min:      args.Vec3(5),
		cellSize: args.Vec3(6),
		res:      args.Uint32x3(7),
	}

	for tri := group.Start; tri < group.End; tri++ {
		lo, hi := params.cellRange(triangleBBox(positions, indices, tri))
		for z := lo[2]; z <= hi[2]; z++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for x := lo[0]; x <= hi[0]; x++ {
					cell := params.linearIndex(x, y, z)
					slot := cursors.AtomicAdd(cell, 1) - 1
					end := cells[cellWords*cell] + cells[cellWords*cell+1]
					if slot >= end {
						return fmt.Errorf("%w: triangle %d in cell %d", ErrPredicateMismatch, tri, cell)
					}
					refs[slot] = uint32(tri)
				}
			}
		}
	}
	return nil
}
