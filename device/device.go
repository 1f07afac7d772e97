package device

import (
	"fmt"
	"regexp"
	"sync"
)

type DeviceType uint8

// Supported device types.
const (
	CpuDevice   DeviceType = 1 << iota
	GpuDevice              = 1 << iota
	OtherDevice            = 1 << iota
	AllDevices             = 0xFF
)

var (
	indentRegex = regexp.MustCompile("(?m)^")
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case GpuDevice:
		return "GPU"
	case OtherDevice:
		return "Other"
	}
	panic("device: unsupported device type")
}

// A compute device that executes data-parallel kernels. Work groups are
// scheduled on goroutines; at most compUnits groups execute concurrently.
type Device struct {
	Name string
	Type DeviceType

	compUnits uint32

	// Preferred work group size when a dispatch does not specify one.
	localWorkSize uint32

	// Speed estimate relative to a single compute unit.
	Speed uint32

	// Handles allocated when the device is initialized.
	mu      sync.Mutex
	program Program
	queue   *Queue
}

// Implements Stringer.
func (d *Device) String() string {
	return fmt.Sprintf(
		"Name: %s\nType: %s\nSpecs: %d computation units, %d preferred work group size, %d approximate speed",
		d.Name,
		d.Type.String(),
		d.compUnits,
		d.localWorkSize,
		d.Speed,
	)
}

// Get the number of work groups that may execute concurrently.
func (d *Device) ComputeUnits() uint32 {
	return d.compUnits
}

// Override the number of concurrently executing work groups. A zero value
// leaves the detected value untouched.
func (d *Device) SetComputeUnits(units uint32) {
	if units == 0 {
		return
	}
	d.compUnits = units
	d.Speed = units
}

// Get the preferred work group size.
func (d *Device) LocalWorkSize() uint32 {
	return d.localWorkSize
}

// Override the preferred work group size. A zero value leaves the default
// untouched.
func (d *Device) SetLocalWorkSize(size uint32) {
	if size == 0 {
		return
	}
	d.localWorkSize = size
}

// Initialize device and register the program whose kernels will be
// dispatched on it.
func (d *Device) Init(program Program) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Already initialized
	if d.queue != nil {
		return nil
	}

	if len(program) == 0 {
		return fmt.Errorf("device (%s): could not build program: %w", d.Name, ErrEmptyProgram)
	}

	d.program = program
	d.queue = newQueue(d)

	return nil
}

// Shut down the device. Close waits for any commands still running on the
// device queue.
func (d *Device) Close() {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()

	// Running commands may still load kernels so the lock must not be held
	// while draining the queue.
	if queue != nil {
		queue.close()
	}

	d.mu.Lock()
	d.program = nil
	d.mu.Unlock()
}

// Get the device command queue.
func (d *Device) Queue() (*Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queue == nil {
		return nil, fmt.Errorf("device (%s): %w", d.Name, ErrNotInitialized)
	}
	return d.queue, nil
}

// Load kernel by name. Each call returns a separate kernel instance with its
// own argument bindings.
func (d *Device) Kernel(name string) (*Kernel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.program == nil {
		return nil, fmt.Errorf("device (%s): could not load kernel %s: %w", d.Name, name, ErrNotInitialized)
	}

	fn, exists := d.program[name]
	if !exists {
		return nil, fmt.Errorf("device (%s): could not load kernel %s: %w", d.Name, name, ErrUnknownKernel)
	}

	return &Kernel{
		device: d,
		fn:     fn,
		name:   name,
	}, nil
}

// Create an empty buffer.
func (d *Device) Buffer(name string) *Buffer {
	return &Buffer{
		device: d,
		name:   name,
	}
}
