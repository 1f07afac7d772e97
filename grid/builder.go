package grid

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/achilleasa/gridtrace/device"
	"github.com/achilleasa/gridtrace/log"
	"github.com/achilleasa/gridtrace/types"
)

const (
	// Target average number of triangles per cell.
	DefaultDensity float32 = 5

	// Upper bound for the number of cells along a single axis.
	DefaultMaxAxisResolution uint32 = 512
)

// Grid builder options.
type Options struct {
	// Target average number of triangles per cell.
	Density float32

	// Upper bound for the number of cells along a single axis.
	MaxAxisResolution uint32

	// Work group size for all dispatches. If 0, the device's preferred
	// work group size is used.
	LocalWorkSize uint32
}

// Get the default builder options.
func DefaultOptions() Options {
	return Options{
		Density:           DefaultDensity,
		MaxAxisResolution: DefaultMaxAxisResolution,
	}
}

func (o Options) validate() error {
	if !(o.Density > 0) || math.IsInf(float64(o.Density), 0) {
		return fmt.Errorf("%w: density must be a positive number; got %v", ErrInvalidOptions, o.Density)
	}
	if o.MaxAxisResolution == 0 {
		return fmt.Errorf("%w: max axis resolution must be at least 1", ErrInvalidOptions)
	}
	return nil
}

// Calculate the grid resolution for a mesh with the given bounding box extent
// and triangle count so that cells hold roughly density triangles on average.
//
// With V the bbox volume and N the triangle count, the resolution along each
// axis is max(1, floor(extent * (density*N/V)^(1/3))). Axes with zero extent
// get a single cell and are left out of V; the root then follows the number
// of remaining axes so planar meshes are sized by area and linear meshes by
// length. The resolution along each axis is capped to maxAxisResolution.
func CalcResolution(extent types.Vec3, triangleCount int, density float32, maxAxisResolution uint32) [3]uint32 {
	res := [3]uint32{1, 1, 1}
	if triangleCount <= 0 {
		return res
	}
	if maxAxisResolution == 0 {
		maxAxisResolution = DefaultMaxAxisResolution
	}

	measure := 1.0
	dims := 0
	for axis := types.XAxis; axis <= types.ZAxis; axis++ {
		if extent[axis] > 0 {
			measure *= float64(extent[axis])
			dims++
		}
	}
	if dims == 0 {
		return res
	}

	k := float64(density) * float64(triangleCount) / measure
	switch dims {
	case 3:
		k = math.Cbrt(k)
	case 2:
		k = math.Sqrt(k)
	}

	for axis := types.XAxis; axis <= types.ZAxis; axis++ {
		if !(extent[axis] > 0) {
			continue
		}

		r := math.Floor(float64(extent[axis]) * k)
		switch {
		case !(r >= 1):
			r = 1
		case r > float64(maxAxisResolution):
			r = float64(maxAxisResolution)
		}
		res[axis] = uint32(r)
	}

	return res
}

// GridBuilder builds uniform grids on a compute device. Each build runs as a
// chain of dependent tasks on the device queue:
//
//	bbox -> resolve-params -> count-pairs -> prefix-sum -> scatter-pairs
//
// A builder may be used for concurrent builds; each build allocates its own
// kernels and buffers.
type GridBuilder struct {
	logger log.Logger
	dev    *device.Device
	opts   Options
}

// Create a grid builder that dispatches its kernels to dev. The device is
// initialized with the grid program if needed.
func NewGridBuilder(dev *device.Device, opts Options) (*GridBuilder, error) {
	if dev == nil {
		return nil, fmt.Errorf("grid: invalid device handle")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := dev.Init(Program); err != nil {
		return nil, err
	}

	return &GridBuilder{
		logger: log.New("grid builder"),
		dev:    dev,
		opts:   opts,
	}, nil
}

// Build a grid for triangleCount triangles and block until it is ready.
func (b *GridBuilder) Build(ctx context.Context, positions []float32, indices []uint32, triangleCount int) (*Grid, error) {
	return b.BuildAsync(ctx, positions, indices, triangleCount).Wait(ctx)
}

// Enqueue a grid build and return without blocking. The build starts once
// every event in waitList has completed successfully. The positions and
// indices slices are borrowed and must not be modified until the build
// completes.
func (b *GridBuilder) BuildAsync(ctx context.Context, positions []float32, indices []uint32, triangleCount int, waitList ...*device.Event) *PendingGrid {
	pg := &PendingGrid{
		released: make(chan struct{}),
	}

	queue, err := b.dev.Queue()
	if err != nil {
		for p := Phase(0); p < numPhases; p++ {
			pg.events[p] = device.CompletedEvent(p.String(), err)
		}
		close(pg.released)
		return pg
	}

	bs := &buildState{
		builder:       b,
		pending:       pg,
		positions:     positions,
		indices:       indices,
		triangleCount: triangleCount,
		groupSize:     workGroupSize(b.dev, b.opts.LocalWorkSize),
	}

	pg.events[PhaseBBox] = queue.Enqueue(ctx, PhaseBBox.String(), bs.findBBox, waitList...)
	pg.events[PhaseResolveParams] = queue.Enqueue(ctx, PhaseResolveParams.String(), bs.resolveParams, pg.events[PhaseBBox])
	pg.events[PhaseCountPairs] = queue.Enqueue(ctx, PhaseCountPairs.String(), bs.countPairs, pg.events[PhaseResolveParams])
	pg.events[PhasePrefixSum] = queue.Enqueue(ctx, PhasePrefixSum.String(), bs.prefixSum, pg.events[PhaseCountPairs])
	pg.events[PhaseScatterPairs] = queue.Enqueue(ctx, PhaseScatterPairs.String(), bs.scatterPairs, pg.events[PhasePrefixSum])

	// Transient resources are released once no phase can touch them.
	go func() {
		for _, ev := range pg.events {
			<-ev.Done()
		}
		bs.release()
		close(pg.released)
	}()

	return pg
}

// A build phase.
type Phase uint8

// The build phases in execution order.
const (
	PhaseBBox Phase = iota
	PhaseResolveParams
	PhaseCountPairs
	PhasePrefixSum
	PhaseScatterPairs
	//
	numPhases
)

// Implements Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseBBox:
		return "bbox"
	case PhaseResolveParams:
		return "resolve-params"
	case PhaseCountPairs:
		return "count-pairs"
	case PhasePrefixSum:
		return "prefix-sum"
	case PhaseScatterPairs:
		return "scatter-pairs"
	default:
		panic(fmt.Sprintf("Unsupported build phase: %d", p))
	}
}

// Execution time of each build phase.
type Timings [numPhases]time.Duration

// Get the total execution time of all phases.
func (t Timings) Total() time.Duration {
	var total time.Duration
	for _, d := range t {
		total += d
	}
	return total
}

// A grid build in progress.
type PendingGrid struct {
	events [numPhases]*device.Event

	// Populated by the last phase before its event completes.
	grid *Grid

	// Closed once the transient build resources are released.
	released chan struct{}
}

// Get the event that completes when the grid is ready. It can be used in the
// wait list of commands that consume the grid.
func (pg *PendingGrid) Event() *device.Event {
	return pg.events[PhaseScatterPairs]
}

// Get the event of a particular build phase.
func (pg *PendingGrid) PhaseEvent(p Phase) *device.Event {
	return pg.events[p]
}

// Block until the grid is ready or ctx is cancelled. If any phase failed,
// Wait returns the error of the failing phase and no grid.
func (pg *PendingGrid) Wait(ctx context.Context) (*Grid, error) {
	if err := pg.Event().Wait(ctx); err != nil {
		return nil, err
	}
	return pg.grid, nil
}

// Get the execution time of each phase. Blocks until all phases complete;
// phases that did not run report a zero duration.
func (pg *PendingGrid) Timings() Timings {
	var t Timings
	for p, ev := range pg.events {
		t[p] = ev.Duration()
	}
	return t
}

// Block until the transient build resources have been released.
func (pg *PendingGrid) Released() <-chan struct{} {
	return pg.released
}

// The state shared by the phases of a single build. Each phase only reads
// state written by the phases it depends on.
type buildState struct {
	builder *GridBuilder
	pending *PendingGrid

	positions     []float32
	indices       []uint32
	triangleCount int
	groupSize     int

	geometry    *geometryBuffers
	bboxFinder  *BBoxFinder
	pairCounter *PairCounter
	pairWriter  *PairWriter

	bbox   BBox
	params gridParams
	cells  *device.Buffer
	total  uint32
}

func (bs *buildState) findBBox(ctx context.Context) error {
	err := ValidateGeometry(bs.positions, bs.indices, bs.triangleCount)
	if err != nil {
		return err
	}

	dev := bs.builder.dev
	if bs.geometry, err = newGeometryBuffers(dev, bs.positions, bs.indices, bs.triangleCount); err != nil {
		return err
	}
	if bs.bboxFinder, err = newBBoxFinder(dev, bs.geometry, bs.groupSize); err != nil {
		return err
	}
	if bs.pairCounter, err = newPairCounter(dev, bs.geometry, bs.groupSize); err != nil {
		return err
	}
	if bs.pairWriter, err = newPairWriter(dev, bs.geometry, bs.groupSize); err != nil {
		return err
	}

	bs.bbox, err = bs.bboxFinder.CalculateBBox(ctx)
	return err
}

func (bs *buildState) resolveParams(ctx context.Context) error {
	opts := bs.builder.opts
	res := CalcResolution(bs.bbox.Extent(), bs.triangleCount, opts.Density, opts.MaxAxisResolution)
	bs.params = newGridParams(bs.bbox, res)

	bs.builder.logger.Debugf(
		"grid bounds %s, resolution %dx%dx%d, cell size %s",
		bs.bbox, res[0], res[1], res[2], bs.params.cellSize,
	)
	return nil
}

func (bs *buildState) countPairs(ctx context.Context) error {
	var err error
	bs.cells, err = bs.pairCounter.CountPairs(ctx, bs.params.min, bs.params.cellSize, bs.params.res)
	return err
}

func (bs *buildState) prefixSum(ctx context.Context) error {
	var err error
	bs.total, err = bs.pairWriter.PrefixSum(ctx, bs.cells)
	return err
}

func (bs *buildState) scatterPairs(ctx context.Context) error {
	refs, err := bs.pairWriter.Scatter(ctx, bs.cells, bs.total, bs.params.min, bs.params.cellSize, bs.params.res)
	if err != nil {
		return err
	}

	g := &Grid{
		BBox:          bs.bbox,
		Resolution:    bs.params.res,
		CellSize:      bs.params.cellSize,
		Cells:         cellsFromWords(bs.cells.Detach()),
		References:    refs.Detach(),
		TriangleCount: uint32(bs.triangleCount),
	}
	bs.pending.grid = g

	bs.builder.logger.Infof(
		"built %dx%dx%d grid for %d triangles with %d references",
		g.Resolution[0], g.Resolution[1], g.Resolution[2], g.TriangleCount, len(g.References),
	)
	return nil
}

func (bs *buildState) release() {
	if bs.bboxFinder != nil {
		bs.bboxFinder.Release()
	}
	if bs.pairCounter != nil {
		bs.pairCounter.Release()
	}
	if bs.pairWriter != nil {
		bs.pairWriter.Release()
	}
	if bs.cells != nil {
		bs.cells.Release()
	}
	if bs.geometry != nil {
		bs.geometry.Release()
	}
}
