package grid

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/achilleasa/gridtrace/types"
)

// A cell record. The triangles overlapping the cell are listed in
// References[Offset : Offset+Count].
type Cell struct {
	Offset uint32
	Count  uint32
}

// A uniform grid indexing the triangles of a mesh. Grids are immutable once
// built.
type Grid struct {
	BBox       BBox
	Resolution [3]uint32
	CellSize   types.Vec3

	// Cell records in x-fastest, then y, then z order.
	Cells []Cell

	// Triangle indices grouped by cell.
	References []uint32

	// Number of triangles in the indexed mesh.
	TriangleCount uint32
}

// Reinterpret a slice of interleaved (offset, count) words as cell records.
func cellsFromWords(words []uint32) []Cell {
	if len(words) == 0 {
		return nil
	}
	return unsafe.Slice((*Cell)(unsafe.Pointer(&words[0])), len(words)/cellWords)
}

func (g *Grid) params() gridParams {
	return gridParams{
		min:      g.BBox.Min,
		cellSize: g.CellSize,
		res:      g.Resolution,
	}
}

// Get the total number of cells.
func (g *Grid) NumCells() int {
	return g.params().numCells()
}

// Get the coordinates of the cell containing p. Points outside the grid
// bounds are clamped to the nearest cell.
func (g *Grid) CellCoords(p types.Vec3) [3]uint32 {
	params := g.params()
	return [3]uint32{
		params.cellCoord(p[0], types.XAxis),
		params.cellCoord(p[1], types.YAxis),
		params.cellCoord(p[2], types.ZAxis),
	}
}

// Get the linear index of the cell containing p.
func (g *Grid) CellIndex(p types.Vec3) int {
	coords := g.CellCoords(p)
	return g.params().linearIndex(coords[0], coords[1], coords[2])
}

// Get the cell at the given coordinates.
func (g *Grid) Cell(x, y, z uint32) Cell {
	return g.Cells[g.params().linearIndex(x, y, z)]
}

// Get the indices of the triangles that may contain p. The returned slice
// aliases the grid references and must not be modified.
func (g *Grid) Candidates(p types.Vec3) []uint32 {
	cell := g.Cells[g.CellIndex(p)]
	return g.References[cell.Offset : cell.Offset+cell.Count]
}

// Grid statistics.
type Stats struct {
	Resolution    [3]uint32
	CellSize      types.Vec3
	TriangleCount uint32

	Cells         int
	EmptyCells    int
	References    int
	MaxCellRefs   uint32
	AvgCellRefs   float32
	RefsPerTri    float32
	MemoryInBytes int
}

// Collect grid statistics.
func (g *Grid) Stats() Stats {
	st := Stats{
		Resolution:    g.Resolution,
		CellSize:      g.CellSize,
		TriangleCount: g.TriangleCount,
		Cells:         len(g.Cells),
		References:    len(g.References),
		MemoryInBytes: len(g.Cells)*int(unsafe.Sizeof(Cell{})) + len(g.References)*4,
	}

	for _, cell := range g.Cells {
		if cell.Count == 0 {
			st.EmptyCells++
			continue
		}
		if cell.Count > st.MaxCellRefs {
			st.MaxCellRefs = cell.Count
		}
	}

	if nonEmpty := st.Cells - st.EmptyCells; nonEmpty > 0 {
		st.AvgCellRefs = float32(st.References) / float32(nonEmpty)
	}
	if st.TriangleCount > 0 {
		st.RefsPerTri = float32(st.References) / float32(st.TriangleCount)
	}

	return st
}

// Check the grid layout invariants. Grids loaded from external storage must
// be validated before use.
func (g *Grid) Validate() error {
	for axis, res := range g.Resolution {
		if res == 0 {
			return fmt.Errorf("%w: zero resolution along axis %d", ErrInvalidGrid, axis)
		}
	}

	if !g.BBox.Min.IsFinite() || !g.BBox.Max.IsFinite() || !g.CellSize.IsFinite() {
		return fmt.Errorf("%w: non-finite bounds %s or cell size %s", ErrInvalidGrid, g.BBox, g.CellSize)
	}
	for axis := types.XAxis; axis <= types.ZAxis; axis++ {
		if g.BBox.Min[axis] > g.BBox.Max[axis] {
			return fmt.Errorf("%w: inverted bounds %s", ErrInvalidGrid, g.BBox)
		}
	}

	numCells := uint64(g.Resolution[0]) * uint64(g.Resolution[1]) * uint64(g.Resolution[2])
	if numCells != uint64(len(g.Cells)) {
		return fmt.Errorf("%w: expected %d cells; got %d", ErrInvalidGrid, numCells, len(g.Cells))
	}
	if uint64(len(g.References)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d references", ErrTooManyReferences, len(g.References))
	}

	var next uint64
	for index, cell := range g.Cells {
		if uint64(cell.Offset) != next {
			return fmt.Errorf("%w: cell %d starts at offset %d; expected %d", ErrInvalidGrid, index, cell.Offset, next)
		}
		next += uint64(cell.Count)
	}
	if next != uint64(len(g.References)) {
		return fmt.Errorf("%w: cells reference %d slots; references array holds %d", ErrInvalidGrid, next, len(g.References))
	}

	for slot, tri := range g.References {
		if tri >= g.TriangleCount {
			return fmt.Errorf("%w: reference %d points to triangle %d of %d", ErrInvalidGrid, slot, tri, g.TriangleCount)
		}
	}

	return nil
}

// Check that the flat geometry arrays describe triangleCount valid triangles:
// enough indices, every index within the position list and every referenced
// position finite.
func ValidateGeometry(positions []float32, indices []uint32, triangleCount int) error {
	if triangleCount <= 0 {
		return ErrNoTriangles
	}
	if len(indices) < 3*triangleCount {
		return fmt.Errorf("%w: %d triangles require %d indices; got %d", ErrInvalidIndexCount, triangleCount, 3*triangleCount, len(indices))
	}
	if uint64(triangleCount) > math.MaxUint32 {
		return fmt.Errorf("%w: %d triangles", ErrTooManyReferences, triangleCount)
	}

	vertexCount := uint64(len(positions) / 3)
	for i, v := range indices[:3*triangleCount] {
		if uint64(v) >= vertexCount {
			return fmt.Errorf("%w: triangle %d references vertex %d; mesh has %d vertices", ErrIndexOutOfRange, i/3, v, vertexCount)
		}
		if p := vertex(positions, v); !p.IsFinite() {
			return fmt.Errorf("%w: vertex %d is %s", ErrInvalidPosition, v, p)
		}
	}

	return nil
}
