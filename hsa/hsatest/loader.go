package hsatest

import (
	"bytes"
	"debug/elf"
	"sync"

	hsaruntime "github.com/wippyai/hsa-runtime"
	"github.com/wippyai/hsa-runtime/errors"
	"github.com/wippyai/hsa-runtime/hsa"
)

// Native operation names, used to script failures and reported in errors.
const (
	OpExecutableCreate = "hsa_executable_create_alt"
	OpCodeReaderCreate = "hsa_code_object_reader_create_from_memory"
	OpMemoryLock       = "hsa_amd_memory_lock"
	OpLoadCode         = "hsa_executable_load_agent_code_object"
	OpDefineGlobal     = "hsa_executable_agent_global_variable_define"
	OpValidate         = "hsa_executable_validate_alt"
	OpFreeze           = "hsa_executable_freeze"
	OpIterateSymbols   = "hsa_executable_iterate_agent_symbols"
)

// deviceBit marks fake device-visible pointers so they cannot be mistaken
// for the host addresses they were derived from.
const deviceBit = uintptr(1) << 47

var opPhase = map[string]errors.Phase{
	OpExecutableCreate: errors.PhaseLoad,
	OpCodeReaderCreate: errors.PhaseLoad,
	OpMemoryLock:       errors.PhaseLink,
	OpLoadCode:         errors.PhaseLoad,
	OpDefineGlobal:     errors.PhaseLink,
	OpValidate:         errors.PhaseLoad,
	OpFreeze:           errors.PhaseFreeze,
	OpIterateSymbols:   errors.PhaseQuery,
}

// Loader is an in-memory hsa.Loader for tests. It parses device blobs with
// debug/elf, classifies defined function symbols as kernels, enforces the
// freeze-is-terminal contract, and tracks every handle and memory lock so
// tests can assert lifecycle discipline.
type Loader struct {
	mu             sync.Mutex
	handles        handleSet
	failures       map[string]uint32
	locks          map[uintptr]*lockRecord
	execs          []*Executable
	validateErrors uint32
	nextKernel     hsaruntime.KernelHandle
}

type lockRecord struct {
	ptr   hsaruntime.DevicePtr
	size  uint64
	count int
}

// NewLoader returns an empty fake loader.
func NewLoader() *Loader {
	return &Loader{
		failures: make(map[string]uint32),
		locks:    make(map[uintptr]*lockRecord),
	}
}

// SetFailure makes every subsequent call of the named operation fail with
// the given status until ClearFailure.
func (l *Loader) SetFailure(op string, status uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[op] = status
}

// ClearFailure removes a scripted failure.
func (l *Loader) ClearFailure(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, op)
}

// SetValidateErrors scripts the error count Validate reports.
func (l *Loader) SetValidateErrors(n uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.validateErrors = n
}

func (l *Loader) fail(op string) error {
	l.mu.Lock()
	status, ok := l.failures[op]
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return errors.Loader(opPhase[op], op, status)
}

// NewExecutable implements hsa.Loader.
func (l *Loader) NewExecutable(profile hsa.Profile, rounding hsa.RoundingMode) (hsa.Executable, error) {
	if err := l.fail(OpExecutableCreate); err != nil {
		return nil, err
	}
	e := &Executable{
		loader:   l,
		handle:   l.handles.open("executable"),
		profile:  profile,
		rounding: rounding,
		globals:  make(map[string]hsaruntime.DevicePtr),
	}
	l.mu.Lock()
	l.execs = append(l.execs, e)
	l.mu.Unlock()
	return e, nil
}

// NewCodeReader implements hsa.Loader.
func (l *Loader) NewCodeReader(blob []byte) (hsa.CodeReader, error) {
	if err := l.fail(OpCodeReaderCreate); err != nil {
		return nil, err
	}
	return &CodeReader{
		loader: l,
		handle: l.handles.open("code reader"),
		blob:   blob,
	}, nil
}

// LockMemory implements hsa.Loader. The same host address always maps to
// the same device pointer and every call is recorded, so tests can assert
// that a region is locked at most once.
func (l *Loader) LockMemory(addr uintptr, size uint64) (hsaruntime.DevicePtr, error) {
	if err := l.fail(OpMemoryLock); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.locks[addr]
	if !ok {
		rec = &lockRecord{ptr: hsaruntime.DevicePtr(addr | deviceBit), size: size}
		l.locks[addr] = rec
	}
	rec.count++
	return rec.ptr, nil
}

// LockCount reports how many times the address was locked.
func (l *Loader) LockCount(addr uintptr) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.locks[addr]; ok {
		return rec.count
	}
	return 0
}

// TotalLocks reports the number of distinct locked regions.
func (l *Loader) TotalLocks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// ExecutablesCreated reports how many executables were ever created.
func (l *Loader) ExecutablesCreated() int {
	return l.handles.totalCount("executable")
}

// ReadersCreated reports how many code readers were ever created.
func (l *Loader) ReadersCreated() int {
	return l.handles.totalCount("code reader")
}

// OpenHandles reports handles that were created but never closed.
// After a build, live executables are the only handles expected open;
// anything beyond that is a leak on an error path.
func (l *Loader) OpenHandles() int {
	return l.handles.openCount()
}

// Executables returns every executable ever created, in creation order.
func (l *Loader) Executables() []*Executable {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Executable(nil), l.execs...)
}

// CodeReader is the fake code-object reader handle.
type CodeReader struct {
	loader *Loader
	handle Handle
	blob   []byte
	mu     sync.Mutex
	closed bool
}

// Close implements hsa.CodeReader.
func (r *CodeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.Closed("code reader")
	}
	r.closed = true
	return r.loader.handles.close(r.handle)
}

// Executable is the fake executable handle.
type Executable struct {
	loader   *Loader
	handle   Handle
	profile  hsa.Profile
	rounding hsa.RoundingMode

	mu      sync.Mutex
	frozen  bool
	closed  bool
	symbols []hsa.SymbolInfo
	globals map[string]hsaruntime.DevicePtr
}

// LoadCode implements hsa.Executable. The blob must be a parseable ELF
// object; its defined function symbols become kernel symbols.
func (e *Executable) LoadCode(agent hsa.Agent, reader hsa.CodeReader) error {
	if err := e.loader.fail(OpLoadCode); err != nil {
		return err
	}
	r, ok := reader.(*CodeReader)
	if !ok {
		return errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Op(OpLoadCode).Detail("foreign code reader").Build()
	}
	r.mu.Lock()
	readerClosed := r.closed
	r.mu.Unlock()
	if readerClosed {
		return errors.Closed("code reader")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.Closed("executable")
	}
	if e.frozen {
		return errors.Frozen(OpLoadCode)
	}

	f, err := elf.NewFile(bytes.NewReader(r.blob))
	if err != nil {
		return errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Op(OpLoadCode).Cause(err).Detail("not a code object").Build()
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err != nil {
		syms, err = f.Symbols()
		if err != nil && err != elf.ErrNoSymbols {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Op(OpLoadCode).Cause(err).Build()
		}
	}
	for _, s := range syms {
		if s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		kind := hsa.SymbolVariable
		if elf.ST_TYPE(s.Info) == elf.STT_FUNC {
			kind = hsa.SymbolKernel
		}
		e.loader.mu.Lock()
		e.loader.nextKernel++
		handle := e.loader.nextKernel
		e.loader.mu.Unlock()
		e.symbols = append(e.symbols, hsa.SymbolInfo{Name: s.Name, Kind: kind, Handle: handle})
	}
	return nil
}

// DefineGlobal implements hsa.Executable.
func (e *Executable) DefineGlobal(agent hsa.Agent, name string, ptr hsaruntime.DevicePtr) error {
	if err := e.loader.fail(OpDefineGlobal); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.Closed("executable")
	}
	if e.frozen {
		return errors.Frozen(OpDefineGlobal)
	}
	e.globals[name] = ptr
	return nil
}

// Validate implements hsa.Executable.
func (e *Executable) Validate() (uint32, error) {
	if err := e.loader.fail(OpValidate); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, errors.Closed("executable")
	}
	e.loader.mu.Lock()
	n := e.loader.validateErrors
	e.loader.mu.Unlock()
	return n, nil
}

// Freeze implements hsa.Executable.
func (e *Executable) Freeze() error {
	if err := e.loader.fail(OpFreeze); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.Closed("executable")
	}
	if e.frozen {
		return errors.Frozen(OpFreeze)
	}
	e.frozen = true
	return nil
}

// Frozen reports whether the executable reached its terminal state.
func (e *Executable) Frozen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frozen
}

// Global returns the device pointer defined for a global, if any.
func (e *Executable) Global(name string) (hsaruntime.DevicePtr, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ptr, ok := e.globals[name]
	return ptr, ok
}

// Symbols implements hsa.Executable.
func (e *Executable) Symbols(agent hsa.Agent) ([]hsa.SymbolInfo, error) {
	if err := e.loader.fail(OpIterateSymbols); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.Closed("executable")
	}
	if !e.frozen {
		return nil, errors.New(errors.PhaseQuery, errors.KindInvalidData).
			Op(OpIterateSymbols).Detail("executable not frozen").Build()
	}
	return append([]hsa.SymbolInfo(nil), e.symbols...), nil
}

// Close implements hsa.Executable.
func (e *Executable) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.Closed("executable")
	}
	e.closed = true
	return e.loader.handles.close(e.handle)
}
