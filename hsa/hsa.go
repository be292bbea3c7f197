package hsa

import (
	hsaruntime "github.com/wippyai/hsa-runtime"
)

// ISA is an instruction-set-architecture key derived from a target triple.
// The empty ISA is the unsupported/unknown sentinel; entries carrying it are
// dropped by the code-object table builder.
type ISA string

// Profile selects the floating-point profile an executable is created with.
type Profile int32

const (
	ProfileBase Profile = iota
	ProfileFull
)

// RoundingMode selects the default float rounding mode for an executable.
type RoundingMode int32

const (
	RoundingDefault RoundingMode = iota
	RoundingZero
	RoundingNear
)

// SymbolKind classifies a symbol exposed by a frozen executable.
type SymbolKind int32

const (
	SymbolVariable SymbolKind = iota
	SymbolKernel
	SymbolIndirect
)

// SymbolInfo describes one symbol of a frozen executable.
type SymbolInfo struct {
	Name   string
	Kind   SymbolKind
	Handle hsaruntime.KernelHandle
}

// IsKernel reports whether the symbol is a kernel entry point.
func (s SymbolInfo) IsKernel() bool {
	return s.Kind == SymbolKernel
}

// Agent is an opaque accelerator handle from the device enumeration
// subsystem, queryable for its target architecture.
type Agent interface {
	// Name identifies the agent for diagnostics.
	Name() string
	// ISA returns the agent's architecture key.
	ISA() ISA
}

// AgentSource enumerates the accelerators the runtime may target. Sources
// return only GPU-class agents; host CPUs are filtered before this boundary.
type AgentSource interface {
	Agents() ([]Agent, error)
}

// Loader is the native code-object loader boundary. Every call is fallible;
// every handle it returns must be released exactly once.
type Loader interface {
	// NewExecutable creates an empty executable container.
	NewExecutable(profile Profile, rounding RoundingMode) (Executable, error)

	// NewCodeReader wraps a device binary for loading. The reader must be
	// closed by the caller once the loads that use it are done.
	NewCodeReader(blob []byte) (CodeReader, error)

	// LockMemory pins a host memory region for device access and returns
	// its device-visible address. Regions stay locked for process lifetime.
	LockMemory(addr uintptr, size uint64) (hsaruntime.DevicePtr, error)
}

// Executable is a unit of device code being materialized for one agent.
//
// Lifecycle: created, code loaded, globals defined, validated, frozen.
// Freeze is terminal: after it, LoadCode and DefineGlobal must fail.
type Executable interface {
	// LoadCode loads a code object into the executable for the agent.
	LoadCode(agent Agent, reader CodeReader) error

	// DefineGlobal registers ptr as the resolved address of the named
	// agent-scoped global variable.
	DefineGlobal(agent Agent, name string, ptr hsaruntime.DevicePtr) error

	// Validate runs the integrity/ABI check and returns the error count.
	Validate() (uint32, error)

	// Freeze transitions the executable to its immutable, ready state.
	Freeze() error

	// Symbols enumerates the executable's symbols for the agent.
	// Valid only once frozen.
	Symbols(agent Agent) ([]SymbolInfo, error)

	// Close releases the executable handle. Close is not Freeze's inverse:
	// a frozen executable stays frozen until released.
	Close() error
}

// CodeReader is a handle wrapping device binary bytes for the loader.
type CodeReader interface {
	Close() error
}
