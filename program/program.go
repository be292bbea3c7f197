package program

import (
	"sync"

	"go.uber.org/zap"

	hsaruntime "github.com/wippyai/hsa-runtime"
	"github.com/wippyai/hsa-runtime/bundle"
	"github.com/wippyai/hsa-runtime/hostsym"
	"github.com/wippyai/hsa-runtime/hsa"
	"github.com/wippyai/hsa-runtime/image"
)

// CodeObjectTable groups discovered device binaries by architecture key.
// Within a key, entries keep discovery order: main executable first, then
// shared objects in enumeration order. Read-only once returned.
type CodeObjectTable map[hsa.ISA][]bundle.Entry

// ExecutableTable holds the frozen executables built per agent, in
// code-object order. Read-only once returned.
type ExecutableTable map[hsa.Agent][]hsa.Executable

// KernelTable holds the kernel entry points per agent, in executable
// order. Read-only once returned.
type KernelTable map[hsa.Agent][]hsa.SymbolInfo

// Option configures a Program.
type Option func(*Program)

// WithSectionName overrides the ELF section scanned for device code.
func WithSectionName(name string) Option {
	return func(p *Program) { p.section = name }
}

// WithLogger sets the Program's logger. Defaults to the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Program) { p.logger = l }
}

// Program owns the discovery/link/materialize pipeline and its cached
// tables. Every stage runs at most once per Program, on whichever
// goroutine first asks for it; concurrent first callers block until the
// single construction finishes, and a stage that fails stays failed.
//
// Construct one Program per process at a defined point in its lifetime and
// share it by reference.
type Program struct {
	loader  hsa.Loader
	source  hsa.AgentSource
	enum    image.Enumerator
	section string
	logger  *zap.Logger

	sectionsOnce sync.Once
	sectionsVal  []*bundle.Header
	sectionsErr  error

	codeOnce sync.Once
	codeVal  CodeObjectTable
	codeErr  error

	hostOnce sync.Once
	hostVal  *hostsym.Table
	hostErr  error

	agentsOnce sync.Once
	agentsVal  []hsa.Agent
	agentsErr  error

	execOnce sync.Once
	execVal  ExecutableTable
	execErr  error

	kernOnce sync.Once
	kernVal  KernelTable
	kernErr  error

	globals globalTable
}

// New creates a Program over the given loader, agent source, and module
// enumerator. Nothing is scanned or built until a table is first asked for.
func New(loader hsa.Loader, source hsa.AgentSource, enum image.Enumerator, opts ...Option) *Program {
	p := &Program{
		loader:  loader,
		source:  source,
		enum:    enum,
		section: hsaruntime.SectionName,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = Logger()
	}
	p.globals.bindings = make(map[string]hsaruntime.DevicePtr)
	return p
}

// sections scans the process image once and parses every device-code
// section into bundles.
func (p *Program) sections() ([]*bundle.Header, error) {
	p.sectionsOnce.Do(func() {
		buffers, err := image.ScanSections(p.enum, p.section)
		if err != nil {
			p.sectionsErr = err
			return
		}
		for _, buf := range buffers {
			p.sectionsVal = append(p.sectionsVal, bundle.ParseAll(buf)...)
		}
		p.logger.Debug("device code sections scanned",
			zap.Int("sections", len(buffers)),
			zap.Int("bundles", len(p.sectionsVal)))
	})
	return p.sectionsVal, p.sectionsErr
}

// CodeObjects returns the code-object table, building it on first use.
func (p *Program) CodeObjects() (CodeObjectTable, error) {
	p.codeOnce.Do(func() {
		p.codeVal, p.codeErr = p.buildCodeObjects()
	})
	return p.codeVal, p.codeErr
}

func (p *Program) buildCodeObjects() (CodeObjectTable, error) {
	headers, err := p.sections()
	if err != nil {
		return nil, err
	}

	table := make(CodeObjectTable)
	for _, h := range headers {
		for _, e := range h.Entries {
			isa := hsa.ParseTriple(e.Triple)
			if isa == "" {
				// Host fallbacks and foreign targets are expected in
				// bundles; dropping them is the filter, not an error.
				continue
			}
			table[isa] = append(table[isa], e)
		}
	}
	p.logger.Debug("code object table built", zap.Int("architectures", len(table)))
	return table, nil
}

// HostSymbols returns the host global-variable table, building it on
// first use.
func (p *Program) HostSymbols() (*hostsym.Table, error) {
	p.hostOnce.Do(func() {
		p.hostVal, p.hostErr = hostsym.Build(p.enum, p.logger)
	})
	return p.hostVal, p.hostErr
}

// agents resolves the accelerator list once, keeping only agents that
// report a usable architecture key.
func (p *Program) agents() ([]hsa.Agent, error) {
	p.agentsOnce.Do(func() {
		all, err := p.source.Agents()
		if err != nil {
			p.agentsErr = err
			return
		}
		for _, a := range all {
			if a.ISA() == "" {
				continue
			}
			p.agentsVal = append(p.agentsVal, a)
		}
	})
	return p.agentsVal, p.agentsErr
}
