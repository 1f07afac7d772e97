package grid

import "errors"

var (
	ErrNoTriangles       = errors.New("grid: mesh contains no triangles")
	ErrInvalidIndexCount = errors.New("grid: index count does not match triangle count")
	ErrIndexOutOfRange   = errors.New("grid: triangle index references a missing vertex")
	ErrInvalidPosition   = errors.New("grid: vertex position is not finite")
	ErrPredicateMismatch = errors.New("grid: scatter pass overflowed a cell reserved by the counting pass")
	ErrTooManyReferences = errors.New("grid: reference count exceeds the 32-bit index range")
	ErrInvalidGrid       = errors.New("grid: invalid grid")
	ErrInvalidOptions    = errors.New("grid: invalid builder options")
)
