package grid

import (
	"fmt"

	"github.com/achilleasa/gridtrace/device"
)

// Load the requested kernels from the supplied device. On failure, any kernels
// that were already loaded are released.
func loadKernels(dev *device.Device, kernelTypes ...kernelType) ([]*device.Kernel, error) {
	if dev == nil {
		return nil, fmt.Errorf("grid: invalid device handle")
	}

	kernels := make([]*device.Kernel, len(kernelTypes))
	for index, kType := range kernelTypes {
		var err error
		kernels[index], err = dev.Kernel(kType.String())
		if err != nil {
			releaseKernels(kernels)
			return nil, err
		}
	}

	return kernels, nil
}

func releaseKernels(kernels []*device.Kernel) {
	for _, kernel := range kernels {
		if kernel != nil {
			kernel.Release()
		}
	}
}

// Select the work group size for a dispatch. A zero override falls back to the
// device's preferred size.
func workGroupSize(dev *device.Device, override uint32) int {
	if override != 0 {
		return int(override)
	}
	if size := dev.LocalWorkSize(); size != 0 {
		return int(size)
	}
	return 64
}

// The geometry buffers shared by every phase of a build. The buffers borrow
// the caller's host slices.
type geometryBuffers struct {
	Positions *device.Buffer
	Indices   *device.Buffer

	triangleCount int
}

func newGeometryBuffers(dev *device.Device, positions []float32, indices []uint32, triangleCount int) (*geometryBuffers, error) {
	gb := &geometryBuffers{
		Positions:     dev.Buffer("positions"),
		Indices:       dev.Buffer("indices"),
		triangleCount: triangleCount,
	}

	if err := gb.Positions.AllocateAndWriteData(positions); err != nil {
		gb.Release()
		return nil, err
	}
	if err := gb.Indices.AllocateAndWriteData(indices[:3*triangleCount]); err != nil {
		gb.Release()
		return nil, err
	}

	return gb, nil
}

func (gb *geometryBuffers) Release() {
	gb.Positions.Release()
	gb.Indices.Release()
}
