package device

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/achilleasa/gridtrace/types"
)

const wordSize = 4

// A device buffer storing 32-bit words. Kernels access buffer contents
// through the typed views or the atomic accessors.
type Buffer struct {
	// Buffer storage.
	words []uint32

	// Associated Device.
	device *Device

	// A name for identifying the buffer.
	name string

	// Allocated size in bytes.
	size int

	// True if the storage aliases host memory supplied by the caller.
	borrowed bool
}

// Get buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// Get buffer size in bytes.
func (b *Buffer) Size() int {
	return b.size
}

// Get buffer length in 32-bit words.
func (b *Buffer) Len() int {
	return len(b.words)
}

// Allocate a zero-filled buffer with the given size in bytes. The size must
// be a multiple of the 4-byte word size.
func (b *Buffer) Allocate(size int) error {
	// If the buffer is already allocated release it
	b.Release()

	if size < 0 || size%wordSize != 0 {
		return fmt.Errorf("device (%s): could not allocate buffer %s of size %d: size must be a non-negative multiple of %d", b.device.Name, b.name, size, wordSize)
	}

	b.words = make([]uint32, size/wordSize)
	b.size = size

	return nil
}

// Allocate a buffer with enough capacity to fit the given data.
func (b *Buffer) AllocateToFitData(data interface{}) error {
	src, err := hostWords(data)
	if err != nil {
		return fmt.Errorf("device (%s): could not allocate buffer %s: %w", b.device.Name, b.name, err)
	}
	return b.Allocate(len(src) * wordSize)
}

// Allocate a buffer that uses the given host data as its storage. No copy is
// made: the caller must keep the data alive and unmodified while the buffer
// is in use.
func (b *Buffer) AllocateAndWriteData(data interface{}) error {
	b.Release()

	src, err := hostWords(data)
	if err != nil {
		return fmt.Errorf("device (%s): could not allocate buffer %s: %w", b.device.Name, b.name, err)
	}

	b.words = src
	b.size = len(src) * wordSize
	b.borrowed = true

	return nil
}

// Write data to the device buffer. A byte offset may also be specified to
// adjust the location the data is copied to.
func (b *Buffer) WriteData(data interface{}, offset int) error {
	src, err := hostWords(data)
	if err != nil {
		return fmt.Errorf("device (%s): error copying host data to device buffer %s: %w", b.device.Name, b.name, err)
	}

	dataLen := len(src) * wordSize
	if offset < 0 || offset%wordSize != 0 || offset+dataLen > b.size {
		return fmt.Errorf("device (%s): %w (%d) in %s for copying data of length %d at offset %d", b.device.Name, ErrInsufficientSpace, b.size, b.name, dataLen, offset)
	}

	copy(b.words[offset/wordSize:], src)
	return nil
}

// Read data from device buffer into the supplied host buffer.
//
// If size is <= 0 then ReadData will read the entire buffer past srcOffset.
// Both src and dst offsets are specified in bytes.
func (b *Buffer) ReadData(srcOffset, dstOffset, size int, hostBuffer interface{}) error {
	if size <= 0 {
		size = b.size - srcOffset
	}

	dst, err := hostWords(hostBuffer)
	if err != nil {
		return fmt.Errorf("device (%s): error copying device data from %s to host buffer: %w", b.device.Name, b.name, err)
	}

	if srcOffset < 0 || dstOffset < 0 || (srcOffset|dstOffset|size)%wordSize != 0 ||
		srcOffset+size > b.size || dstOffset+size > len(dst)*wordSize {
		return fmt.Errorf(
			"device (%s): error copying %d bytes from %s (offset %d, size %d) to host buffer (offset %d, size %d): %w",
			b.device.Name, size, b.name, srcOffset, b.size, dstOffset, len(dst)*wordSize, ErrInsufficientSpace,
		)
	}

	copy(dst[dstOffset/wordSize:(dstOffset+size)/wordSize], b.words[srcOffset/wordSize:(srcOffset+size)/wordSize])
	return nil
}

// Release buffer.
func (b *Buffer) Release() {
	b.words = nil
	b.size = 0
	b.borrowed = false
}

// Get the buffer contents as a slice of uint32 values.
func (b *Buffer) Uint32s() []uint32 {
	return b.words
}

// Get the buffer contents as a slice of float32 values.
func (b *Buffer) Float32s() []float32 {
	if len(b.words) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.words[0])), len(b.words))
}

// Detach the buffer storage and hand it over to the caller. The buffer is
// left empty. Borrowed storage is copied so the caller never aliases
// memory it did not allocate.
func (b *Buffer) Detach() []uint32 {
	words := b.words
	if b.borrowed {
		words = append([]uint32(nil), words...)
	}
	b.Release()
	return words
}

// Atomically add delta to the word at index and return the new value.
func (b *Buffer) AtomicAdd(index int, delta uint32) uint32 {
	return atomic.AddUint32(&b.words[index], delta)
}

// Atomically load the word at index.
func (b *Buffer) AtomicLoad(index int) uint32 {
	return atomic.LoadUint32(&b.words[index])
}

// Atomically replace the word at index if it still holds old.
func (b *Buffer) AtomicCompareAndSwap(index int, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(&b.words[index], old, new)
}

// Set every word of the buffer to v.
func (b *Buffer) Fill(v uint32) {
	for i := range b.words {
		b.words[i] = v
	}
}

// Given a host slice return a uint32 view over its memory.
func hostWords(data interface{}) ([]uint32, error) {
	switch d := data.(type) {
	case []uint32:
		return d, nil
	case []int32:
		if len(d) == 0 {
			return nil, nil
		}
		return unsafe.Slice((*uint32)(unsafe.Pointer(&d[0])), len(d)), nil
	case []float32:
		if len(d) == 0 {
			return nil, nil
		}
		return unsafe.Slice((*uint32)(unsafe.Pointer(&d[0])), len(d)), nil
	case []types.Vec3:
		if len(d) == 0 {
			return nil, nil
		}
		return unsafe.Slice((*uint32)(unsafe.Pointer(&d[0][0])), len(d)*3), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedData, data)
}
