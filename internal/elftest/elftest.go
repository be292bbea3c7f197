// Package elftest builds minimal ELF64 images in memory for tests.
//
// The images carry just enough structure for debug/elf to parse: named
// sections with raw contents and a symbol table (.symtab or .dynsym) with
// defined and undefined entries. They stand in for host modules and for
// amdgcn device code objects in pipeline tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Symbol describes one symbol table entry to emit.
type Symbol struct {
	Name    string
	Type    elf.SymType
	Bind    elf.SymBind
	Defined bool // Defined symbols get SHN_ABS, undefined SHN_UNDEF
	Value   uint64
	Size    uint64
}

// Builder accumulates sections and symbols for one image.
type Builder struct {
	machine  elf.Machine
	typ      elf.Type
	sections []namedSection
	symbols  []Symbol
	dynamic  bool
}

type namedSection struct {
	name string
	data []byte
}

// New returns a Builder for a little-endian ELF64 relocatable image.
func New() *Builder {
	return &Builder{
		machine: elf.EM_X86_64,
		typ:     elf.ET_REL,
	}
}

// Machine overrides the target machine (e.g. elf.EM_AMDGPU for device blobs).
func (b *Builder) Machine(m elf.Machine) *Builder {
	b.machine = m
	return b
}

// Type overrides the ELF file type.
func (b *Builder) Type(t elf.Type) *Builder {
	b.typ = t
	return b
}

// Section appends a named section with raw contents.
func (b *Builder) Section(name string, data []byte) *Builder {
	b.sections = append(b.sections, namedSection{name: name, data: data})
	return b
}

// Symbol appends a symbol table entry.
func (b *Builder) Symbol(s Symbol) *Builder {
	b.symbols = append(b.symbols, s)
	return b
}

// Dynamic emits the symbols as .dynsym/.dynstr instead of .symtab/.strtab,
// the way linked code objects carry their external references.
func (b *Builder) Dynamic() *Builder {
	b.dynamic = true
	return b
}

const (
	ehdrSize  = 64
	shdrSize  = 64
	symSize   = 24
	shnAbs    = 0xfff1
	shnUndef  = 0
	firstShdr = 1 // index 0 is the null section
)

type shdr struct {
	name    string
	typ     elf.SectionType
	offset  uint64
	size    uint64
	link    uint32
	entsize uint64
}

// Build renders the image.
func (b *Builder) Build() []byte {
	symName := ".symtab"
	strName := ".strtab"
	symType := elf.SHT_SYMTAB
	if b.dynamic {
		symName = ".dynsym"
		strName = ".dynstr"
		symType = elf.SHT_DYNSYM
	}

	// String table for symbol names; index 0 is the empty name.
	strtab := &bytes.Buffer{}
	strtab.WriteByte(0)
	nameOff := make([]uint32, len(b.symbols))
	for i, s := range b.symbols {
		nameOff[i] = uint32(strtab.Len())
		strtab.WriteString(s.Name)
		strtab.WriteByte(0)
	}

	// Symbol table data; entry 0 is the null symbol.
	symtab := &bytes.Buffer{}
	symtab.Write(make([]byte, symSize))
	for i, s := range b.symbols {
		var ent [symSize]byte
		binary.LittleEndian.PutUint32(ent[0:], nameOff[i])
		ent[4] = byte(s.Bind)<<4 | byte(s.Type)&0xf
		shndx := uint16(shnUndef)
		if s.Defined {
			shndx = shnAbs
		}
		binary.LittleEndian.PutUint16(ent[6:], shndx)
		binary.LittleEndian.PutUint64(ent[8:], s.Value)
		binary.LittleEndian.PutUint64(ent[16:], s.Size)
		symtab.Write(ent[:])
	}

	// Section list: null, user sections, symtab, strtab, shstrtab.
	var headers []shdr
	headers = append(headers, shdr{})
	for _, s := range b.sections {
		headers = append(headers, shdr{name: s.name, typ: elf.SHT_PROGBITS, size: uint64(len(s.data))})
	}
	symIdx := len(headers)
	headers = append(headers, shdr{name: symName, typ: symType, size: uint64(symtab.Len()), entsize: symSize})
	strIdx := len(headers)
	headers = append(headers, shdr{name: strName, typ: elf.SHT_STRTAB, size: uint64(strtab.Len())})
	shstrIdx := len(headers)
	headers[symIdx].link = uint32(strIdx)

	// Section header string table.
	shstrtab := &bytes.Buffer{}
	shstrtab.WriteByte(0)
	shNameOff := make([]uint32, len(headers)+1)
	for i := firstShdr; i < len(headers); i++ {
		shNameOff[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(headers[i].name)
		shstrtab.WriteByte(0)
	}
	shNameOff[shstrIdx] = uint32(shstrtab.Len())
	shstrtab.WriteString(".shstrtab")
	shstrtab.WriteByte(0)
	headers = append(headers, shdr{name: ".shstrtab", typ: elf.SHT_STRTAB, size: uint64(shstrtab.Len())})

	// Lay out section contents after the ELF header.
	offset := uint64(ehdrSize)
	contents := make([][]byte, len(headers))
	for i := range headers {
		var data []byte
		switch {
		case i == 0:
			continue
		case i <= len(b.sections):
			data = b.sections[i-1].data
		case i == symIdx:
			data = symtab.Bytes()
		case i == strIdx:
			data = strtab.Bytes()
		default:
			data = shstrtab.Bytes()
		}
		headers[i].offset = offset
		contents[i] = data
		offset += uint64(len(data))
	}
	shoff := offset

	out := &bytes.Buffer{}

	// ELF header.
	var ehdr [ehdrSize]byte
	copy(ehdr[0:], elf.ELFMAG)
	ehdr[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	ehdr[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ehdr[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	binary.LittleEndian.PutUint16(ehdr[16:], uint16(b.typ))
	binary.LittleEndian.PutUint16(ehdr[18:], uint16(b.machine))
	binary.LittleEndian.PutUint32(ehdr[20:], uint32(elf.EV_CURRENT))
	binary.LittleEndian.PutUint64(ehdr[40:], shoff) // e_shoff
	binary.LittleEndian.PutUint16(ehdr[52:], ehdrSize)
	binary.LittleEndian.PutUint16(ehdr[58:], shdrSize)
	binary.LittleEndian.PutUint16(ehdr[60:], uint16(len(headers)))
	binary.LittleEndian.PutUint16(ehdr[62:], uint16(shstrIdx))
	out.Write(ehdr[:])

	for i := firstShdr; i < len(headers); i++ {
		out.Write(contents[i])
	}

	// Section header table.
	for i, h := range headers {
		var sh [shdrSize]byte
		binary.LittleEndian.PutUint32(sh[0:], shNameOff[i])
		binary.LittleEndian.PutUint32(sh[4:], uint32(h.typ))
		binary.LittleEndian.PutUint64(sh[24:], h.offset)
		binary.LittleEndian.PutUint64(sh[32:], h.size)
		binary.LittleEndian.PutUint32(sh[40:], h.link)
		binary.LittleEndian.PutUint64(sh[48:], 1) // sh_addralign
		binary.LittleEndian.PutUint64(sh[56:], h.entsize)
		out.Write(sh[:])
	}

	return out.Bytes()
}

// DeviceObject builds an amdgcn code-object stand-in: defined kernel
// functions plus undefined references to host globals, carried in .dynsym.
func DeviceObject(kernels []string, undefined []string) []byte {
	b := New().Machine(elf.EM_AMDGPU).Type(elf.ET_DYN).Dynamic()
	for _, k := range kernels {
		b.Symbol(Symbol{Name: k, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Defined: true, Size: 64})
	}
	for _, u := range undefined {
		b.Symbol(Symbol{Name: u, Type: elf.STT_NOTYPE, Bind: elf.STB_GLOBAL})
	}
	return b.Build()
}

// HostObject describes one defined data symbol of a host image.
type HostObject struct {
	Name  string
	Value uint64
	Size  uint64
}

// HostImage builds a host module image with a .symtab of object symbols and,
// when section data is given, a device-code section under sectionName.
func HostImage(sectionName string, sectionData []byte, objects []HostObject) []byte {
	b := New().Type(elf.ET_DYN)
	if sectionData != nil {
		b.Section(sectionName, sectionData)
	}
	for _, o := range objects {
		b.Symbol(Symbol{
			Name:    o.Name,
			Type:    elf.STT_OBJECT,
			Bind:    elf.STB_GLOBAL,
			Defined: true,
			Value:   o.Value,
			Size:    o.Size,
		})
	}
	return b.Build()
}
