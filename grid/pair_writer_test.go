package grid

import (
	"context"
	"errors"
	"testing"

	"github.com/achilleasa/gridtrace/types"
)

func TestBBoxFinder(t *testing.T) {
	dev := createTestDevice(t)

	positions, indices := genCubeMesh(777, 0.1)
	// An unreferenced vertex must not affect the bbox
	positions = append(positions, 50, -50, 50)

	type spec struct {
		groupSize int
	}
	specs := []spec{{1}, {2}, {5}, {64}, {1000}}

	for index, s := range specs {
		geometry, err := newGeometryBuffers(dev, positions, indices, len(indices)/3)
		if err != nil {
			t.Fatal(err)
		}
		finder, err := newBBoxFinder(dev, geometry, s.groupSize)
		if err != nil {
			t.Fatal(err)
		}

		bbox, err := finder.CalculateBBox(context.Background())
		if err != nil {
			t.Fatalf("[spec %d] %v", index, err)
		}

		expBBox := BBox{Min: types.Splat(0), Max: types.Splat(1)}
		if bbox != expBBox {
			t.Fatalf("[spec %d] expected bbox %s; got %s", index, expBBox, bbox)
		}

		finder.Release()
		geometry.Release()
	}
}

func TestBBoxFinderNoTriangles(t *testing.T) {
	dev := createTestDevice(t)

	geometry, err := newGeometryBuffers(dev, []float32{0, 0, 0}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer geometry.Release()

	finder, err := newBBoxFinder(dev, geometry, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer finder.Release()

	if _, err = finder.CalculateBBox(context.Background()); !errors.Is(err, ErrNoTriangles) {
		t.Fatalf("expected ErrNoTriangles; got %v", err)
	}
}

func TestPairCounterAndWriter(t *testing.T) {
	dev := createTestDevice(t)

	positions := []float32{
		0, 0, 0,
		0.4, 0, 0,
		0, 0.4, 0,
		1.6, 1.6, 0,
		2, 2, 0,
	}
	indices := []uint32{
		0, 1, 2,
		3, 4, 4,
		1, 3, 2,
	}

	geometry, err := newGeometryBuffers(dev, positions, indices, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer geometry.Release()

	params := newGridParams(BBox{Min: types.XYZ(0, 0, 0), Max: types.XYZ(2, 2, 0)}, [3]uint32{2, 2, 1})

	counter, err := newPairCounter(dev, geometry, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer counter.Release()

	cells, err := counter.CountPairs(context.Background(), params.min, params.cellSize, params.res)
	if err != nil {
		t.Fatal(err)
	}
	defer cells.Release()

	// Triangle 0 -> cell 0, triangle 1 -> cell 3, triangle 2 -> all cells
	expCounts := []uint32{2, 1, 1, 2}
	words := cells.Uint32s()
	for c, exp := range expCounts {
		if words[cellWords*c] != 0 || words[cellWords*c+1] != exp {
			t.Fatalf("expected cell %d to hold (0, %d); got (%d, %d)", c, exp, words[cellWords*c], words[cellWords*c+1])
		}
	}

	writer, err := newPairWriter(dev, geometry, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Release()

	refs, err := writer.WritePairs(context.Background(), cells, params.min, params.cellSize, params.res)
	if err != nil {
		t.Fatal(err)
	}

	g := &Grid{
		BBox:          BBox{Min: types.XYZ(0, 0, 0), Max: types.XYZ(2, 2, 0)},
		Resolution:    params.res,
		CellSize:      params.cellSize,
		Cells:         cellsFromWords(cells.Detach()),
		References:    refs.Detach(),
		TriangleCount: 3,
	}
	if err = g.Validate(); err != nil {
		t.Fatal(err)
	}

	expRefs := [][]uint32{{0, 2}, {2}, {2}, {1, 2}}
	for c, exp := range expRefs {
		cell := g.Cells[c]
		got := sortedRefs(g.References[cell.Offset : cell.Offset+cell.Count])
		if len(got) != len(exp) {
			t.Fatalf("expected cell %d to reference %v; got %v", c, exp, got)
		}
		for i := range got {
			if got[i] != exp[i] {
				t.Fatalf("expected cell %d to reference %v; got %v", c, exp, got)
			}
		}
	}
}

func TestPrefixSumLargeGrid(t *testing.T) {
	dev := createTestDevice(t)

	geometry, err := newGeometryBuffers(dev, []float32{0, 0, 0}, []uint32{0, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer geometry.Release()

	writer, err := newPairWriter(dev, geometry, 13)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Release()

	numCells := 1000
	cells := dev.Buffer("cells")
	if err = cells.Allocate(numCells * cellWords * 4); err != nil {
		t.Fatal(err)
	}
	defer cells.Release()

	words := cells.Uint32s()
	for c := 0; c < numCells; c++ {
		words[cellWords*c+1] = uint32(c % 7)
	}

	total, err := writer.PrefixSum(context.Background(), cells)
	if err != nil {
		t.Fatal(err)
	}

	var expOffset uint32
	for c := 0; c < numCells; c++ {
		if words[cellWords*c] != expOffset {
			t.Fatalf("expected cell %d offset to be %d; got %d", c, expOffset, words[cellWords*c])
		}
		expOffset += uint32(c % 7)
	}
	if total != expOffset {
		t.Fatalf("expected total to be %d; got %d", expOffset, total)
	}
}

func TestScatterPredicateMismatch(t *testing.T) {
	dev := createTestDevice(t)

	positions := []float32{
		0, 0, 0,
		0.4, 0, 0,
		0, 0.4, 0,
	}
	indices := []uint32{0, 1, 2}

	geometry, err := newGeometryBuffers(dev, positions, indices, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer geometry.Release()

	counter, err := newPairCounter(dev, geometry, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer counter.Release()

	writer, err := newPairWriter(dev, geometry, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Release()

	// Count with 1x1 cells so the triangle only overlaps cell 0
	res := [3]uint32{2, 1, 1}
	cells, err := counter.CountPairs(context.Background(), types.Splat(0), types.XYZ(1, 1, 1), res)
	if err != nil {
		t.Fatal(err)
	}
	defer cells.Release()

	total, err := writer.PrefixSum(context.Background(), cells)
	if err != nil {
		t.Fatal(err)
	}

	// Scattering with smaller cells makes the triangle overlap cell 1 too
	_, err = writer.Scatter(context.Background(), cells, total, types.Splat(0), types.XYZ(0.1, 1, 1), res)
	if !errors.Is(err, ErrPredicateMismatch) {
		t.Fatalf("expected ErrPredicateMismatch; got %v", err)
	}
}
