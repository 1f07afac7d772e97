package grid

import "fmt"

type kernelType uint8

// The list of kernels that implement the grid builder.
const (
	// bbox kernels
	reduceTriangleBBox kernelType = iota
	reduceBBoxPartials
	// pair counting kernels
	countPairs
	// prefix sum kernels
	sumCellBlocks
	scanBlockTotals
	scanCellBlocks
	// compaction kernels
	scatterPairs
	//
	numKernels
)

// Implements Stringer; map kernel type to the kernel name registered in the
// device program.
func (kt kernelType) String() string {
	switch kt {
	case reduceTriangleBBox:
		return "reduceTriangleBBox"
	case reduceBBoxPartials:
		return "reduceBBoxPartials"
	case countPairs:
		return "countPairs"
	case sumCellBlocks:
		return "sumCellBlocks"
	case scanBlockTotals:
		return "scanBlockTotals"
	case scanCellBlocks:
		return "scanCellBlocks"
	case scatterPairs:
		return "scatterPairs"
	default:
		panic(fmt.Sprintf("Unsupported kernel type: %d", kt))
	}
}
