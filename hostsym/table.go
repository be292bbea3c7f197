// Package hostsym builds the process-wide table of host global variables:
// every defined object symbol of every loaded module, keyed by name, with
// addresses corrected by each module's runtime load bias.
package hostsym

import (
	"debug/elf"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/hsa-runtime/errors"
	"github.com/wippyai/hsa-runtime/image"
)

// Symbol is the current host address and size of a named data symbol.
type Symbol struct {
	Name string
	Addr uint64
	Size uint64
}

// Table answers name lookups against the host symbol table. It is immutable
// after Build and safe for concurrent readers.
type Table struct {
	syms map[string]Symbol
}

// Build walks the symbol table of every module the enumerator lists and
// collects defined object symbols. Shared-object addresses are offset by
// the module's load bias; the main executable uses its addresses as-is.
// Modules without a symbol table, or that fail to parse, are skipped.
// The first definition of a name wins.
func Build(enum image.Enumerator, logger *zap.Logger) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mods, err := enum.Modules()
	if err != nil {
		return nil, errors.Scan("enumerate loaded modules", err)
	}

	t := &Table{syms: make(map[string]Symbol)}
	for _, m := range mods {
		f, err := m.Open()
		if err != nil {
			logger.Debug("skipping unreadable module",
				zap.String("path", m.Path), zap.Error(err))
			continue
		}
		syms, err := f.Symbols()
		f.Close()
		if err != nil {
			if err != elf.ErrNoSymbols {
				logger.Debug("skipping module without usable symtab",
					zap.String("path", m.Path), zap.Error(err))
			}
			continue
		}
		for _, s := range syms {
			if elf.ST_TYPE(s.Info) != elf.STT_OBJECT || s.Section == elf.SHN_UNDEF || s.Name == "" {
				continue
			}
			if _, exists := t.syms[s.Name]; exists {
				continue
			}
			t.syms[s.Name] = Symbol{
				Name: s.Name,
				Addr: s.Value + m.Offset,
				Size: s.Size,
			}
		}
	}

	logger.Debug("host symbol table built", zap.Int("symbols", len(t.syms)))
	return t, nil
}

// Lookup returns the symbol for name, if present.
func (t *Table) Lookup(name string) (Symbol, bool) {
	s, ok := t.syms[name]
	return s, ok
}

// Len reports the number of symbols in the table.
func (t *Table) Len() int {
	return len(t.syms)
}

// Symbols returns every symbol in the table, sorted by name.
func (t *Table) Symbols() []Symbol {
	out := make([]Symbol, 0, len(t.syms))
	for _, s := range t.syms {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
