package hostsym

import (
	"debug/elf"
	"errors"
	"testing"

	"github.com/wippyai/hsa-runtime/image"
	"github.com/wippyai/hsa-runtime/internal/elftest"
)

func TestBuildAppliesLoadBias(t *testing.T) {
	exe := elftest.HostImage("", nil, []elftest.HostObject{
		{Name: "g_exe", Value: 0x1000, Size: 16},
	})
	lib := elftest.HostImage("", nil, []elftest.HostObject{
		{Name: "g_lib", Value: 0x200, Size: 8},
	})

	enum := image.NewStaticEnumerator(
		image.MemoryModule("/proc/self/exe", 0, exe),
		image.MemoryModule("/lib/libdata.so", 0x7f0000000000, lib),
	)

	table, err := Build(enum, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", table.Len())
	}

	s, ok := table.Lookup("g_exe")
	if !ok || s.Addr != 0x1000 || s.Size != 16 {
		t.Errorf("g_exe: %+v ok=%v (main executable must not be biased)", s, ok)
	}
	s, ok = table.Lookup("g_lib")
	if !ok || s.Addr != 0x7f0000000200 || s.Size != 8 {
		t.Errorf("g_lib: %+v ok=%v", s, ok)
	}

	if _, ok := table.Lookup("g_missing"); ok {
		t.Error("unexpected hit for absent symbol")
	}
}

func TestBuildFiltersSymbols(t *testing.T) {
	img := elftest.New().
		Symbol(elftest.Symbol{Name: "a_func", Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Defined: true, Value: 1}).
		Symbol(elftest.Symbol{Name: "an_undef", Type: elf.STT_OBJECT, Bind: elf.STB_GLOBAL}).
		Symbol(elftest.Symbol{Name: "an_object", Type: elf.STT_OBJECT, Bind: elf.STB_GLOBAL, Defined: true, Value: 2, Size: 4}).
		Build()

	table, err := Build(image.NewStaticEnumerator(image.MemoryModule("/x", 0, img)), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", table.Len())
	}
	if _, ok := table.Lookup("an_object"); !ok {
		t.Error("defined object symbol missing")
	}
}

func TestBuildStableLookups(t *testing.T) {
	img := elftest.HostImage("", nil, []elftest.HostObject{
		{Name: "g", Value: 0x40, Size: 4},
	})
	table, err := Build(image.NewStaticEnumerator(image.MemoryModule("/x", 0x100, img)), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	first, _ := table.Lookup("g")
	for i := 0; i < 100; i++ {
		got, ok := table.Lookup("g")
		if !ok || got != first {
			t.Fatalf("lookup %d changed: %+v vs %+v", i, got, first)
		}
	}
}

func TestBuildFirstDefinitionWins(t *testing.T) {
	a := elftest.HostImage("", nil, []elftest.HostObject{{Name: "g", Value: 0x10, Size: 4}})
	b := elftest.HostImage("", nil, []elftest.HostObject{{Name: "g", Value: 0x20, Size: 4}})

	table, err := Build(image.NewStaticEnumerator(
		image.MemoryModule("/a", 0, a),
		image.MemoryModule("/b", 0, b),
	), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s, _ := table.Lookup("g")
	if s.Addr != 0x10 {
		t.Errorf("g resolved to %#x, want first definition 0x10", s.Addr)
	}
}

func TestBuildSkipsBrokenModules(t *testing.T) {
	good := elftest.HostImage("", nil, []elftest.HostObject{{Name: "g", Value: 1, Size: 1}})

	table, err := Build(image.NewStaticEnumerator(
		image.MemoryModule("/broken", 0, []byte("nope")),
		image.MemoryModule("/good", 0, good),
	), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("Len: got %d, want 1", table.Len())
	}
}

type failingEnumerator struct{}

func (failingEnumerator) Modules() ([]image.Module, error) {
	return nil, errors.New("maps unreadable")
}

func TestBuildEnumeratorFailure(t *testing.T) {
	if _, err := Build(failingEnumerator{}, nil); err == nil {
		t.Error("expected error from failing enumerator")
	}
}

func TestSymbolsSorted(t *testing.T) {
	img := elftest.HostImage("", nil, []elftest.HostObject{
		{Name: "zeta", Value: 0x30, Size: 4},
		{Name: "alpha", Value: 0x10, Size: 8},
		{Name: "mid", Value: 0x20, Size: 2},
	})
	table, err := Build(image.NewStaticEnumerator(image.MemoryModule("/bin", 0, img)), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	syms := table.Symbols()
	want := []string{"alpha", "mid", "zeta"}
	if len(syms) != len(want) {
		t.Fatalf("Symbols: got %d entries, want %d", len(syms), len(want))
	}
	for i, name := range want {
		if syms[i].Name != name {
			t.Errorf("Symbols[%d]: got %s, want %s", i, syms[i].Name, name)
		}
	}
}
