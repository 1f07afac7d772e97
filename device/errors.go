package device

import "errors"

var (
	ErrNotInitialized     = errors.New("device: device not initialized")
	ErrEmptyProgram       = errors.New("device: program defines no kernels")
	ErrUnknownKernel      = errors.New("device: unknown kernel")
	ErrKernelPanic        = errors.New("device: kernel panicked")
	ErrInvalidWorkSize    = errors.New("device: invalid work size")
	ErrUnsupportedArgType = errors.New("device: unsupported kernel argument type")
	ErrInsufficientSpace  = errors.New("device: insufficient buffer space")
	ErrUnsupportedData    = errors.New("device: unsupported host data type")
	ErrQueueClosed        = errors.New("device: command queue closed")
)
