package device

import (
	"context"
	"fmt"
	"time"

	"github.com/achilleasa/gridtrace/types"
	"golang.org/x/sync/errgroup"
)

// A KernelFunc processes all work items of a single work group. Work groups
// of the same dispatch run concurrently and in no particular order; kernels
// that share state across groups must do so through atomic buffer accessors.
type KernelFunc func(args Args, group WorkGroup) error

// A program maps kernel names to their implementation.
type Program map[string]KernelFunc

// A contiguous range of work items executed by a single compute unit.
type WorkGroup struct {
	// Work group index within the dispatch.
	ID int

	// Global work item range [Start, End).
	Start int
	End   int
}

// Size returns the number of work items in the group.
func (wg WorkGroup) Size() int {
	return wg.End - wg.Start
}

// The arguments bound to a kernel. Accessors panic if the argument at the
// requested index has a different type; the panic is reported as a kernel
// error by Exec1D.
type Args []interface{}

func (a Args) Buffer(index int) *Buffer {
	return a[index].(*Buffer)
}

func (a Args) Uint32(index int) uint32 {
	return a[index].(uint32)
}

func (a Args) Int32(index int) int32 {
	return a[index].(int32)
}

func (a Args) Float32(index int) float32 {
	return a[index].(float32)
}

func (a Args) Vec3(index int) types.Vec3 {
	return a[index].(types.Vec3)
}

func (a Args) Uint32x3(index int) [3]uint32 {
	return a[index].([3]uint32)
}

// A kernel instance loaded from a device program. A kernel keeps its bound
// arguments between dispatches; it must not be dispatched concurrently.
type Kernel struct {
	device *Device
	fn     KernelFunc
	name   string
	args   Args
}

// Get kernel name.
func (k *Kernel) Name() string {
	return k.name
}

// Free any resources used by this kernel.
func (k *Kernel) Release() {
	k.args = nil
	k.fn = nil
}

// Bind arguments to kernel.
func (k *Kernel) SetArgs(args ...interface{}) error {
	for argIndex, arg := range args {
		switch arg.(type) {
		case *Buffer, int32, uint32, float32, types.Vec3, [3]uint32:
		default:
			return fmt.Errorf(
				"device (%s): could not set arg %d for kernel %s: %w: %T",
				k.device.Name,
				argIndex,
				k.name,
				ErrUnsupportedArgType,
				arg,
			)
		}
	}

	k.args = append(k.args[:0], args...)
	return nil
}

// Execute 1D kernel over globalWorkSize work items starting at offset. If
// localWorkSize is equal to 0 then the device's preferred work group size is
// used. Exec1D blocks until all work groups complete; the first failing work
// group cancels the remaining ones.
func (k *Kernel) Exec1D(ctx context.Context, offset, globalWorkSize, localWorkSize int) (time.Duration, error) {
	if k.fn == nil {
		return 0, fmt.Errorf("device (%s): kernel %s has been released", k.device.Name, k.name)
	}
	if offset < 0 || globalWorkSize < 0 || localWorkSize < 0 {
		return 0, fmt.Errorf(
			"device (%s): unable to execute kernel %s (offset %d, global %d, local %d): %w",
			k.device.Name, k.name, offset, globalWorkSize, localWorkSize, ErrInvalidWorkSize,
		)
	}

	if localWorkSize == 0 {
		localWorkSize = int(k.device.localWorkSize)
		if localWorkSize == 0 {
			localWorkSize = defaultLocalWorkSize
		}
	}

	tick := time.Now()
	if globalWorkSize == 0 {
		return time.Since(tick), ctx.Err()
	}

	limit := int(k.device.compUnits)
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	numGroups := NumGroups(globalWorkSize, localWorkSize)
	end := offset + globalWorkSize
	for groupID := 0; groupID < numGroups; groupID++ {
		if gctx.Err() != nil {
			break
		}

		group := WorkGroup{
			ID:    groupID,
			Start: offset + groupID*localWorkSize,
		}
		group.End = group.Start + localWorkSize
		if group.End > end {
			group.End = end
		}

		g.Go(func() error {
			return k.runGroup(gctx, group)
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return time.Since(tick), fmt.Errorf("device (%s): kernel %s did not complete successfully: %w", k.device.Name, k.name, err)
	}

	return time.Since(tick), nil
}

// Run a single work group, converting panics into errors.
func (k *Kernel) runGroup(ctx context.Context, group WorkGroup) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("work group %d: %w: %v", group.ID, ErrKernelPanic, r)
		}
	}()

	return k.fn(k.args, group)
}

// Get the number of work groups needed to cover globalWorkSize items.
func NumGroups(globalWorkSize, localWorkSize int) int {
	if localWorkSize <= 0 {
		return 0
	}
	return (globalWorkSize + localWorkSize - 1) / localWorkSize
}
