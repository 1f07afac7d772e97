package grid

import "github.com/achilleasa/gridtrace/types"

// The parameters needed for mapping geometry into cell-index space. Both the
// counting and the scattering passes go through cellRange so they always agree
// on the set of cells a triangle overlaps.
type gridParams struct {
	min      types.Vec3
	cellSize types.Vec3
	res      [3]uint32
}

func newGridParams(bbox BBox, res [3]uint32) gridParams {
	dim := bbox.Max.Sub(bbox.Min)
	p := gridParams{
		min: bbox.Min,
		res: res,
	}
	for axis := types.XAxis; axis <= types.ZAxis; axis++ {
		p.cellSize[axis] = dim[axis] / float32(res[axis])
	}
	return p
}

// Get the total number of cells.
func (p gridParams) numCells() int {
	return int(p.res[0]) * int(p.res[1]) * int(p.res[2])
}

// Map a coordinate along axis to a cell index using floor((v-min)/cellSize)
// clamped to [0, res-1]. Axes with zero extent always map to cell 0; so do
// NaN coordinates.
func (p gridParams) cellCoord(v float32, axis int) uint32 {
	size := p.cellSize[axis]
	if !(size > 0) {
		return 0
	}

	f := (v - p.min[axis]) / size
	if !(f > 0) {
		return 0
	}

	last := p.res[axis] - 1
	if f >= float32(last) {
		return last
	}
	return uint32(f)
}

// Get the inclusive cell index range overlapped by the box [boxMin, boxMax].
func (p gridParams) cellRange(boxMin, boxMax types.Vec3) (lo, hi [3]uint32) {
	for axis := types.XAxis; axis <= types.ZAxis; axis++ {
		lo[axis] = p.cellCoord(boxMin[axis], axis)
		hi[axis] = p.cellCoord(boxMax[axis], axis)
	}
	return lo, hi
}

// Linearize cell coordinates; x varies fastest, then y, then z.
func (p gridParams) linearIndex(x, y, z uint32) int {
	return int(x) + int(p.res[0])*(int(y)+int(p.res[1])*int(z))
}

// Get the number of cells inside an inclusive cell index range.
func rangeSize(lo, hi [3]uint32) int {
	return int(hi[0]-lo[0]+1) * int(hi[1]-lo[1]+1) * int(hi[2]-lo[2]+1)
}

// Fetch the position of vertex v from a flat xyz position list.
func vertex(positions []float32, v uint32) types.Vec3 {
	base := 3 * int(v)
	return types.Vec3{positions[base], positions[base+1], positions[base+2]}
}

// Calculate the axis-aligned bounding box of triangle tri.
func triangleBBox(positions []float32, indices []uint32, tri int) (min, max types.Vec3) {
	base := 3 * tri
	min = vertex(positions, indices[base])
	max = min
	for i := 1; i < 3; i++ {
		v := vertex(positions, indices[base+i])
		min = types.MinVec3(min, v)
		max = types.MaxVec3(max, v)
	}
	return min, max
}
