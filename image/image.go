package image

import (
	"bytes"
	"debug/elf"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/hsa-runtime/errors"
)

// Module is one binary image mapped into the process: the main executable
// or a loaded shared object.
type Module struct {
	// Path locates the module on disk; for the main executable this is the
	// self-referential /proc/self/exe link, never argv.
	Path string

	// Offset is the module's runtime load bias. Zero for the main
	// executable; the base mapping address for shared objects.
	Offset uint64

	reader io.ReaderAt
}

// MemoryModule wraps an in-memory image as a Module, for synthetic process
// images in tests and tooling.
func MemoryModule(path string, offset uint64, image []byte) Module {
	return Module{Path: path, Offset: offset, reader: bytes.NewReader(image)}
}

// Open parses the module as an ELF file. File-backed modules are read from
// Path; callers own the returned file and must close it.
func (m Module) Open() (*elf.File, error) {
	if m.reader != nil {
		return elf.NewFile(m.reader)
	}
	f, err := elf.Open(m.Path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Enumerator is the platform capability that lists the binary modules
// currently mapped into the process. It is injected into the scanner so the
// section-extraction logic stays platform-independent.
type Enumerator interface {
	Modules() ([]Module, error)
}

// StaticEnumerator serves a fixed module list.
type StaticEnumerator struct {
	mods []Module
}

// NewStaticEnumerator returns an enumerator over the given modules.
func NewStaticEnumerator(mods ...Module) *StaticEnumerator {
	return &StaticEnumerator{mods: mods}
}

func (e *StaticEnumerator) Modules() ([]Module, error) {
	return append([]Module(nil), e.mods...), nil
}

// ScanSections copies out the raw bytes of every section named name from
// every module the enumerator lists, in enumeration order. A module that
// fails to parse as ELF is skipped; a module without the section
// contributes nothing. Only a failing enumerator is an error.
func ScanSections(enum Enumerator, name string) ([][]byte, error) {
	mods, err := enum.Modules()
	if err != nil {
		return nil, errors.Scan("enumerate loaded modules", err)
	}

	var buffers [][]byte
	for _, m := range mods {
		f, err := m.Open()
		if err != nil {
			Logger().Debug("skipping unreadable module",
				zap.String("path", m.Path), zap.Error(err))
			continue
		}
		for _, sec := range f.Sections {
			if sec.Name != name {
				continue
			}
			data, err := sec.Data()
			if err != nil {
				Logger().Debug("skipping unreadable section",
					zap.String("path", m.Path), zap.Error(err))
				continue
			}
			buffers = append(buffers, data)
		}
		f.Close()
	}
	return buffers, nil
}
