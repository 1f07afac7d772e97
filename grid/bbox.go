package grid

import (
	"context"
	"fmt"

	"github.com/achilleasa/gridtrace/device"
	"github.com/achilleasa/gridtrace/types"
)

// An axis-aligned bounding box.
type BBox struct {
	Min types.Vec3
	Max types.Vec3
}

// Get the box extent along each axis.
func (b BBox) Extent() types.Vec3 {
	return b.Max.Sub(b.Min)
}

// Returns true if p lies inside the box. Points on the box faces are inside.
func (b BBox) Contains(p types.Vec3) bool {
	return p.Within(b.Min, b.Max)
}

// Implements Stringer.
func (b BBox) String() string {
	return fmt.Sprintf("[%s - %s]", b.Min, b.Max)
}

// BBoxFinder calculates the bounding box of the vertices referenced by a set
// of triangles using a wavefront reduction. The first pass reduces each work
// group of triangles to a min/max pair; subsequent passes reduce the pairs
// until a single one remains.
type BBoxFinder struct {
	geometry  *geometryBuffers
	groupSize int

	kernels  []*device.Kernel
	partials [2]*device.Buffer
}

// Create a bbox finder for the supplied geometry.
func newBBoxFinder(dev *device.Device, geometry *geometryBuffers, groupSize int) (*BBoxFinder, error) {
	kernels, err := loadKernels(dev, reduceTriangleBBox, reduceBBoxPartials)
	if err != nil {
		return nil, err
	}

	// Reductions with single-item groups would never converge.
	if groupSize < 2 {
		groupSize = 2
	}

	return &BBoxFinder{
		geometry:  geometry,
		groupSize: groupSize,
		kernels:   kernels,
		partials: [2]*device.Buffer{
			dev.Buffer("bboxPartials0"),
			dev.Buffer("bboxPartials1"),
		},
	}, nil
}

// Calculate the bounding box of all vertices referenced by the triangles.
func (f *BBoxFinder) CalculateBBox(ctx context.Context) (BBox, error) {
	triangleCount := f.geometry.triangleCount
	if triangleCount == 0 {
		return BBox{}, ErrNoTriangles
	}

	numPartials := device.NumGroups(triangleCount, f.groupSize)
	if err := f.partials[0].Allocate(numPartials * bboxPartialWords * 4); err != nil {
		return BBox{}, err
	}

	kernel := f.kernels[0]
	err := kernel.SetArgs(f.geometry.Positions, f.geometry.Indices, f.partials[0])
	if err != nil {
		return BBox{}, err
	}
	if _, err = kernel.Exec1D(ctx, 0, triangleCount, f.groupSize); err != nil {
		return BBox{}, err
	}

	kernel = f.kernels[1]
	src := 0
	for numPartials > 1 {
		dst := 1 - src
		nextPartials := device.NumGroups(numPartials, f.groupSize)
		if err = f.partials[dst].Allocate(nextPartials * bboxPartialWords * 4); err != nil {
			return BBox{}, err
		}

		if err = kernel.SetArgs(f.partials[src], f.partials[dst]); err != nil {
			return BBox{}, err
		}
		if _, err = kernel.Exec1D(ctx, 0, numPartials, f.groupSize); err != nil {
			return BBox{}, err
		}

		src = dst
		numPartials = nextPartials
	}

	min, max := readBBoxPartial(f.partials[src].Float32s(), 0)
	return BBox{Min: min, Max: max}, nil
}

// Release kernels and scratch buffers.
func (f *BBoxFinder) Release() {
	releaseKernels(f.kernels)
	f.kernels = nil
	for _, buf := range f.partials {
		buf.Release()
	}
}
