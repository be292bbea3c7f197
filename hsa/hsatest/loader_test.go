package hsatest

import (
	"errors"
	"testing"

	hsaerrors "github.com/wippyai/hsa-runtime/errors"
	"github.com/wippyai/hsa-runtime/hsa"
	"github.com/wippyai/hsa-runtime/internal/elftest"
)

func buildExecutable(t *testing.T, l *Loader, agent hsa.Agent, blob []byte) hsa.Executable {
	t.Helper()

	exec, err := l.NewExecutable(hsa.ProfileFull, hsa.RoundingDefault)
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	reader, err := l.NewCodeReader(blob)
	if err != nil {
		t.Fatalf("NewCodeReader: %v", err)
	}
	defer reader.Close()

	if err := exec.LoadCode(agent, reader); err != nil {
		t.Fatalf("LoadCode: %v", err)
	}
	if err := exec.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	return exec
}

func TestLoaderKernelClassification(t *testing.T) {
	l := NewLoader()
	agent := NewAgent("gpu-0", "amdgcn-amd-amdhsa--gfx906")
	blob := elftest.DeviceObject([]string{"vec_add"}, nil)

	exec := buildExecutable(t, l, agent, blob)
	defer exec.Close()

	syms, err := exec.Symbols(agent)
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) != 1 {
		t.Fatalf("symbols: got %d, want 1", len(syms))
	}
	if syms[0].Name != "vec_add" || !syms[0].IsKernel() {
		t.Errorf("symbol: %+v", syms[0])
	}
	if syms[0].Handle == 0 {
		t.Error("kernel handle not assigned")
	}
}

func TestFreezeIsTerminal(t *testing.T) {
	l := NewLoader()
	agent := NewAgent("gpu-0", "amdgcn-amd-amdhsa--gfx906")
	blob := elftest.DeviceObject([]string{"k"}, nil)

	exec := buildExecutable(t, l, agent, blob)
	defer exec.Close()

	reader, err := l.NewCodeReader(blob)
	if err != nil {
		t.Fatalf("NewCodeReader: %v", err)
	}
	defer reader.Close()

	frozen := &hsaerrors.Error{Phase: hsaerrors.PhaseFreeze, Kind: hsaerrors.KindFrozen}
	if err := exec.LoadCode(agent, reader); !errors.Is(err, frozen) {
		t.Errorf("LoadCode after freeze: got %v, want frozen error", err)
	}
	if err := exec.DefineGlobal(agent, "g", 1); !errors.Is(err, frozen) {
		t.Errorf("DefineGlobal after freeze: got %v, want frozen error", err)
	}
	if err := exec.Freeze(); !errors.Is(err, frozen) {
		t.Errorf("second Freeze: got %v, want frozen error", err)
	}
}

func TestSymbolsRequireFreeze(t *testing.T) {
	l := NewLoader()
	agent := NewAgent("gpu-0", "amdgcn-amd-amdhsa--gfx906")

	exec, err := l.NewExecutable(hsa.ProfileFull, hsa.RoundingDefault)
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	defer exec.Close()

	if _, err := exec.Symbols(agent); err == nil {
		t.Error("Symbols before freeze should fail")
	}
}

func TestHandleDiscipline(t *testing.T) {
	l := NewLoader()

	exec, err := l.NewExecutable(hsa.ProfileFull, hsa.RoundingDefault)
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	reader, err := l.NewCodeReader(nil)
	if err != nil {
		t.Fatalf("NewCodeReader: %v", err)
	}
	if l.OpenHandles() != 2 {
		t.Errorf("open handles: got %d, want 2", l.OpenHandles())
	}

	if err := reader.Close(); err != nil {
		t.Errorf("reader Close: %v", err)
	}
	if err := reader.Close(); err == nil {
		t.Error("double close should fail")
	}
	if err := exec.Close(); err != nil {
		t.Errorf("exec Close: %v", err)
	}
	if l.OpenHandles() != 0 {
		t.Errorf("open handles after close: got %d, want 0", l.OpenHandles())
	}
	if l.ExecutablesCreated() != 1 || l.ReadersCreated() != 1 {
		t.Errorf("creation counters: %d executables, %d readers",
			l.ExecutablesCreated(), l.ReadersCreated())
	}
}

func TestLockMemoryIdempotentMapping(t *testing.T) {
	l := NewLoader()

	p1, err := l.LockMemory(0x1000, 64)
	if err != nil {
		t.Fatalf("LockMemory: %v", err)
	}
	p2, err := l.LockMemory(0x1000, 64)
	if err != nil {
		t.Fatalf("LockMemory: %v", err)
	}
	if p1 != p2 {
		t.Errorf("same address mapped to different device pointers: %#x vs %#x", p1, p2)
	}
	if uintptr(p1) == 0x1000 {
		t.Error("device pointer should differ from host address")
	}
	if l.LockCount(0x1000) != 2 {
		t.Errorf("lock count: got %d, want 2", l.LockCount(0x1000))
	}
}

func TestScriptedFailure(t *testing.T) {
	l := NewLoader()
	l.SetFailure(OpExecutableCreate, 0x1000)

	_, err := l.NewExecutable(hsa.ProfileFull, hsa.RoundingDefault)
	var herr *hsaerrors.Error
	if !errors.As(err, &herr) {
		t.Fatalf("expected structured error, got %v", err)
	}
	if herr.Op != OpExecutableCreate || herr.Status != 0x1000 {
		t.Errorf("wrong error context: %+v", herr)
	}

	l.ClearFailure(OpExecutableCreate)
	if _, err := l.NewExecutable(hsa.ProfileFull, hsa.RoundingDefault); err != nil {
		t.Errorf("after ClearFailure: %v", err)
	}
}

func TestLoadCodeRejectsGarbage(t *testing.T) {
	l := NewLoader()
	agent := NewAgent("gpu-0", "amdgcn-amd-amdhsa--gfx906")

	exec, err := l.NewExecutable(hsa.ProfileFull, hsa.RoundingDefault)
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	defer exec.Close()

	reader, err := l.NewCodeReader([]byte("not an elf"))
	if err != nil {
		t.Fatalf("NewCodeReader: %v", err)
	}
	defer reader.Close()

	if err := exec.LoadCode(agent, reader); err == nil {
		t.Error("loading garbage should fail")
	}
}
