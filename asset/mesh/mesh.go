package mesh

import (
	"fmt"

	"github.com/achilleasa/gridtrace/grid"
	"github.com/achilleasa/gridtrace/types"
)

// A triangle mesh stored as flat arrays. Positions hold 3 floats per vertex
// and Indices hold 3 vertex indices per triangle.
type Mesh struct {
	Name      string
	Positions []float32
	Indices   []uint32
}

// Get the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// Get the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Get the position of vertex v.
func (m *Mesh) Vertex(v uint32) types.Vec3 {
	base := 3 * int(v)
	return types.XYZ(m.Positions[base], m.Positions[base+1], m.Positions[base+2])
}

// Append a vertex and return its index.
func (m *Mesh) AddVertex(v types.Vec3) uint32 {
	m.Positions = append(m.Positions, v[0], v[1], v[2])
	return uint32(m.VertexCount() - 1)
}

// Append a triangle.
func (m *Mesh) AddTriangle(v0, v1, v2 uint32) {
	m.Indices = append(m.Indices, v0, v1, v2)
}

// Check that the mesh can be indexed by a grid.
func (m *Mesh) Validate() error {
	if len(m.Positions)%3 != 0 {
		return fmt.Errorf("mesh %q: position list length %d is not a multiple of 3", m.Name, len(m.Positions))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh %q: %w: %d indices", m.Name, grid.ErrInvalidIndexCount, len(m.Indices))
	}
	if err := grid.ValidateGeometry(m.Positions, m.Indices, m.TriangleCount()); err != nil {
		return fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	return nil
}

// Calculate the bounding box of the vertices referenced by the mesh
// triangles. Vertices that no triangle references are ignored.
func (m *Mesh) BBox() grid.BBox {
	if len(m.Indices) == 0 {
		return grid.BBox{}
	}

	bbox := grid.BBox{Min: m.Vertex(m.Indices[0]), Max: m.Vertex(m.Indices[0])}
	for _, v := range m.Indices[1:] {
		p := m.Vertex(v)
		bbox.Min = types.MinVec3(bbox.Min, p)
		bbox.Max = types.MaxVec3(bbox.Max, p)
	}
	return bbox
}

// Append the triangles of other to this mesh.
func (m *Mesh) Merge(other *Mesh) {
	offset := uint32(m.VertexCount())
	m.Positions = append(m.Positions, other.Positions...)
	for _, v := range other.Indices {
		m.Indices = append(m.Indices, v+offset)
	}
}
