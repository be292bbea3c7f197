package program

import (
	"bytes"
	"debug/elf"
	"sync"

	"go.uber.org/zap"

	hsaruntime "github.com/wippyai/hsa-runtime"
	"github.com/wippyai/hsa-runtime/errors"
	"github.com/wippyai/hsa-runtime/hostsym"
	"github.com/wippyai/hsa-runtime/hsa"
)

// globalTable maps host global-variable names to their pinned device
// addresses. A name is pinned at most once per process; every executable
// that references it receives the same address.
type globalTable struct {
	mu       sync.RWMutex
	bindings map[string]hsaruntime.DevicePtr
}

// bind returns the device address for name, pinning the host memory on
// first use. Double-checked: the fast path is a read-locked lookup, and
// the slow path re-checks under the write lock before locking memory, so
// two racing binders never pin the same variable twice.
func (g *globalTable) bind(name string, hosts *hostsym.Table, loader hsa.Loader) (hsaruntime.DevicePtr, error) {
	g.mu.RLock()
	ptr, ok := g.bindings[name]
	g.mu.RUnlock()
	if ok {
		return ptr, nil
	}

	sym, ok := hosts.Lookup(name)
	if !ok {
		return 0, errors.UndefinedSymbol(name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if ptr, ok := g.bindings[name]; ok {
		return ptr, nil
	}
	ptr, err := loader.LockMemory(uintptr(sym.Addr), sym.Size)
	if err != nil {
		return 0, err
	}
	g.bindings[name] = ptr
	return ptr, nil
}

// bindGlobals resolves every undefined symbol of the device binary
// against the host table and defines each on exec for agent. Definitions
// happen before code load so the loader can resolve them.
func (p *Program) bindGlobals(agent hsa.Agent, exec hsa.Executable, blob []byte, hosts *hostsym.Table) error {
	names, err := undefinedSymbols(blob)
	if err != nil {
		return errors.ParseFailed("device binary symbol table", err)
	}
	for _, name := range names {
		ptr, err := p.globals.bind(name, hosts, p.loader)
		if err != nil {
			return err
		}
		if err := exec.DefineGlobal(agent, name, ptr); err != nil {
			return err
		}
		p.logger.Debug("global variable defined",
			zap.String("symbol", name),
			zap.String("agent", agent.Name()),
			zap.Uint64("device_ptr", uint64(ptr)))
	}
	return nil
}

// undefinedSymbols lists the names a device binary imports, in symbol
// table order. Device binaries carry their imports in the dynamic symbol
// table; the static table is a fallback for relocatable objects.
func undefinedSymbols(blob []byte) ([]string, error) {
	f, err := elf.NewFile(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err != nil {
		syms, err = f.Symbols()
		if err != nil {
			if err == elf.ErrNoSymbols {
				return nil, nil
			}
			return nil, err
		}
	}

	var names []string
	for _, s := range syms {
		if s.Section != elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		names = append(names, s.Name)
	}
	return names, nil
}
