package device

import (
	"errors"
	"testing"

	"github.com/achilleasa/gridtrace/types"
)

func TestBufferAllocate(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	buf := dev.Buffer("test")
	if err = buf.Allocate(40); err != nil {
		t.Fatal(err)
	}
	if buf.Size() != 40 || buf.Len() != 10 {
		t.Fatalf("expected buffer to be 40 bytes (10 words); got %d bytes (%d words)", buf.Size(), buf.Len())
	}
	for i, w := range buf.Uint32s() {
		if w != 0 {
			t.Fatalf("expected word %d to be zero-filled; got %d", i, w)
		}
	}

	if err = buf.Allocate(6); err == nil {
		t.Fatal("expected an error when allocating a buffer that is not a multiple of the word size")
	}

	if err = buf.AllocateToFitData(make([]types.Vec3, 4)); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 12 {
		t.Fatalf("expected buffer to fit 4 vectors (12 words); got %d", buf.Len())
	}

	err = buf.AllocateToFitData([]string{"foo"})
	if !errors.Is(err, ErrUnsupportedData) {
		t.Fatalf("expected ErrUnsupportedData; got %v", err)
	}

	buf.Release()
	if buf.Size() != 0 || buf.Uint32s() != nil {
		t.Fatal("expected released buffer to be empty")
	}
}

func TestBufferReadWrite(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	buf := dev.Buffer("test")
	if err = buf.Allocate(16); err != nil {
		t.Fatal(err)
	}

	if err = buf.WriteData([]float32{1.5, -2}, 8); err != nil {
		t.Fatal(err)
	}

	floats := buf.Float32s()
	if floats[0] != 0 || floats[1] != 0 || floats[2] != 1.5 || floats[3] != -2 {
		t.Fatalf("unexpected buffer contents: %v", floats)
	}

	out := make([]float32, 2)
	if err = buf.ReadData(8, 0, 8, out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 1.5 || out[1] != -2 {
		t.Fatalf("expected to read back [1.5 -2]; got %v", out)
	}

	type spec struct {
		srcOffset int
		dstOffset int
		size      int
		dstLen    int
	}
	specs := []spec{
		// reading past the end of the device buffer
		{8, 0, 16, 8},
		// host buffer too small
		{0, 0, 16, 2},
		// unaligned offset
		{2, 0, 4, 4},
	}
	for index, s := range specs {
		err = buf.ReadData(s.srcOffset, s.dstOffset, s.size, make([]uint32, s.dstLen))
		if !errors.Is(err, ErrInsufficientSpace) {
			t.Fatalf("[spec %d] expected ErrInsufficientSpace; got %v", index, err)
		}
	}

	if err = buf.WriteData([]uint32{1, 2, 3}, 8); !errors.Is(err, ErrInsufficientSpace) {
		t.Fatalf("expected ErrInsufficientSpace; got %v", err)
	}
}

func TestBufferBorrowAndDetach(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	host := []uint32{1, 2, 3}
	buf := dev.Buffer("borrowed")
	if err = buf.AllocateAndWriteData(host); err != nil {
		t.Fatal(err)
	}

	// Borrowed storage aliases the host slice
	buf.Uint32s()[0] = 10
	if host[0] != 10 {
		t.Fatalf("expected buffer to alias host memory; got %d", host[0])
	}

	detached := buf.Detach()
	detached[1] = 20
	if host[1] != 2 {
		t.Fatal("expected detaching a borrowed buffer to copy its contents")
	}
	if buf.Len() != 0 {
		t.Fatal("expected detached buffer to be empty")
	}

	owned := dev.Buffer("owned")
	if err = owned.Allocate(8); err != nil {
		t.Fatal(err)
	}
	view := owned.Uint32s()
	detached = owned.Detach()
	if &detached[0] != &view[0] {
		t.Fatal("expected detaching an owned buffer to hand over its storage")
	}
}

func TestBufferAtomics(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	buf := dev.Buffer("atomics")
	if err = buf.Allocate(8); err != nil {
		t.Fatal(err)
	}

	if got := buf.AtomicAdd(1, 5); got != 5 {
		t.Fatalf("expected AtomicAdd to return the new value 5; got %d", got)
	}
	if got := buf.AtomicAdd(1, 2); got != 7 {
		t.Fatalf("expected AtomicAdd to return the new value 7; got %d", got)
	}
	if !buf.AtomicCompareAndSwap(1, 7, 9) {
		t.Fatal("expected CAS to succeed")
	}
	if buf.AtomicCompareAndSwap(1, 7, 11) {
		t.Fatal("expected CAS with a stale value to fail")
	}
	if got := buf.AtomicLoad(1); got != 9 {
		t.Fatalf("expected word to hold 9; got %d", got)
	}

	buf.Fill(3)
	if buf.AtomicLoad(0) != 3 || buf.AtomicLoad(1) != 3 {
		t.Fatalf("expected Fill to overwrite every word; got %v", buf.Uint32s())
	}
}
