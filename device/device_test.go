package device

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// Kernels used by the device tests.
var testProgram = Program{
	"square": func(args Args, group WorkGroup) error {
		in := args.Buffer(0).Uint32s()
		out := args.Buffer(1).Uint32s()
		size := int(args.Uint32(2))
		for gid := group.Start; gid < group.End && gid < size; gid++ {
			out[gid] = in[gid] * in[gid]
		}
		return nil
	},
	"histogram": func(args Args, group WorkGroup) error {
		in := args.Buffer(0).Uint32s()
		bins := args.Buffer(1)
		for gid := group.Start; gid < group.End; gid++ {
			bins.AtomicAdd(int(in[gid])%bins.Len(), 1)
		}
		return nil
	},
	"groupIds": func(args Args, group WorkGroup) error {
		out := args.Buffer(0).Uint32s()
		for gid := group.Start; gid < group.End; gid++ {
			out[gid] = uint32(group.ID)
		}
		return nil
	},
	"fail": func(args Args, group WorkGroup) error {
		if group.ID == int(args.Uint32(0)) {
			return fmt.Errorf("group %d failed", group.ID)
		}
		return nil
	},
	"badArgs": func(args Args, group WorkGroup) error {
		_ = args.Float32(0)
		return nil
	},
}

func TestSelectDevices(t *testing.T) {
	devList, err := SelectDevices(CpuDevice, "CPU")
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) != 1 {
		t.Fatalf("expected to get 1 CPU device; got %d", len(devList))
	}

	devList, err = SelectDevices(GpuDevice, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) != 0 {
		t.Fatalf("expected to get no GPU devices; got %d", len(devList))
	}

	devList, err = SelectDevices(AllDevices, "no-such-device")
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) != 0 {
		t.Fatalf("expected name filter to reject all devices; got %d", len(devList))
	}
}

func TestPlatformInfo(t *testing.T) {
	platforms, err := GetPlatformInfo()
	if err != nil {
		t.Fatal(err)
	}
	if len(platforms) == 0 {
		t.Fatal("expected at least one platform")
	}

	info := platforms[0].String()
	if !strings.Contains(info, "Device 00:") || !strings.Contains(info, "    Type: CPU") {
		t.Fatalf("expected platform info to list an indented CPU device; got:\n%s", info)
	}
}

func TestDeviceInit(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	if !strings.Contains(dev.Name, "CPU") {
		t.Fatalf("expected CPU device name '%s' to contain 'CPU'", dev.Name)
	}

	if dev.Type.String() != "CPU" {
		t.Fatalf("expected device type to be CpuDevice; got %s", dev.Type.String())
	}

	if dev.ComputeUnits() == 0 {
		t.Fatal("expected device to report at least one compute unit")
	}

	// Init is idempotent
	if err = dev.Init(testProgram); err != nil {
		t.Fatal(err)
	}
}

func TestDeviceInitErrors(t *testing.T) {
	devList, err := SelectDevices(CpuDevice, "")
	if err != nil {
		t.Fatal(err)
	}
	dev := devList[0]

	err = dev.Init(Program{})
	if !errors.Is(err, ErrEmptyProgram) {
		t.Fatalf("expected ErrEmptyProgram; got %v", err)
	}

	_, err = dev.Kernel("square")
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized; got %v", err)
	}

	_, err = dev.Queue()
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized; got %v", err)
	}
}

func TestKernelErrors(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	_, err = dev.Kernel("foo")
	if !errors.Is(err, ErrUnknownKernel) {
		t.Fatalf("expected to get ErrUnknownKernel while trying to load an unknown kernel; got %v", err)
	}
}

func TestDeviceOverrides(t *testing.T) {
	devList, err := SelectDevices(CpuDevice, "")
	if err != nil {
		t.Fatal(err)
	}
	dev := devList[0]
	detected := dev.ComputeUnits()

	dev.SetComputeUnits(0)
	if dev.ComputeUnits() != detected {
		t.Fatalf("expected zero override to be ignored; got %d", dev.ComputeUnits())
	}

	dev.SetComputeUnits(3)
	dev.SetLocalWorkSize(16)
	if dev.ComputeUnits() != 3 || dev.LocalWorkSize() != 16 {
		t.Fatalf("expected overrides to be applied; got %d units, %d work group size", dev.ComputeUnits(), dev.LocalWorkSize())
	}
}

func createCpuTestDevice() (*Device, error) {
	devList, err := SelectDevices(CpuDevice, "CPU")
	if err != nil {
		return nil, err
	}
	if len(devList) == 0 {
		return nil, errors.New("no CPU device available")
	}
	return devList[0], devList[0].Init(testProgram)
}
