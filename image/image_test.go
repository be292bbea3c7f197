package image

import (
	"bytes"
	"errors"
	"testing"

	hsaruntime "github.com/wippyai/hsa-runtime"
	hsaerrors "github.com/wippyai/hsa-runtime/errors"
	"github.com/wippyai/hsa-runtime/internal/elftest"
)

func TestScanSections(t *testing.T) {
	exe := elftest.HostImage(hsaruntime.SectionName, []byte{1, 2, 3}, nil)
	lib := elftest.HostImage(hsaruntime.SectionName, []byte{4, 5}, nil)
	plain := elftest.HostImage("", nil, nil)

	enum := NewStaticEnumerator(
		MemoryModule("/proc/self/exe", 0, exe),
		MemoryModule("/lib/libplain.so", 0x7f0000000000, plain),
		MemoryModule("/lib/libkern.so", 0x7f0000400000, lib),
	)

	buffers, err := ScanSections(enum, hsaruntime.SectionName)
	if err != nil {
		t.Fatalf("ScanSections: %v", err)
	}
	if len(buffers) != 2 {
		t.Fatalf("buffers: got %d, want 2", len(buffers))
	}
	if !bytes.Equal(buffers[0], []byte{1, 2, 3}) {
		t.Errorf("buffer 0: got %v", buffers[0])
	}
	if !bytes.Equal(buffers[1], []byte{4, 5}) {
		t.Errorf("buffer 1: got %v (main executable must come first)", buffers[1])
	}
}

func TestScanSectionsSkipsMalformedModule(t *testing.T) {
	good := elftest.HostImage(hsaruntime.SectionName, []byte{9}, nil)

	enum := NewStaticEnumerator(
		MemoryModule("/lib/libbroken.so", 0, []byte("definitely not an ELF")),
		MemoryModule("/lib/libgood.so", 0, good),
	)

	buffers, err := ScanSections(enum, hsaruntime.SectionName)
	if err != nil {
		t.Fatalf("ScanSections: %v", err)
	}
	if len(buffers) != 1 || !bytes.Equal(buffers[0], []byte{9}) {
		t.Errorf("buffers: %v", buffers)
	}
}

func TestScanSectionsNoSections(t *testing.T) {
	enum := NewStaticEnumerator(
		MemoryModule("/proc/self/exe", 0, elftest.HostImage("", nil, nil)),
	)

	buffers, err := ScanSections(enum, hsaruntime.SectionName)
	if err != nil {
		t.Fatalf("ScanSections: %v", err)
	}
	if len(buffers) != 0 {
		t.Errorf("buffers: got %d, want 0", len(buffers))
	}
}

type failingEnumerator struct{ err error }

func (e failingEnumerator) Modules() ([]Module, error) { return nil, e.err }

func TestScanSectionsEnumeratorFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := ScanSections(failingEnumerator{err: boom}, hsaruntime.SectionName)
	if !errors.Is(err, boom) {
		t.Errorf("expected enumerator failure, got %v", err)
	}

	var herr *hsaerrors.Error
	if !errors.As(err, &herr) || herr.Phase != hsaerrors.PhaseScan {
		t.Errorf("expected scan-phase structured error, got %v", err)
	}
}

func TestMemoryModuleOpen(t *testing.T) {
	m := MemoryModule("/x", 0x1000, elftest.HostImage("", nil, []elftest.HostObject{
		{Name: "g", Value: 0x10, Size: 4},
	}))
	if m.Offset != 0x1000 {
		t.Errorf("offset: got %#x", m.Offset)
	}

	f, err := m.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) != 1 || syms[0].Name != "g" {
		t.Errorf("symbols: %+v", syms)
	}
}
