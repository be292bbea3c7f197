package main

import (
	"bytes"
	"debug/elf"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	hsaruntime "github.com/wippyai/hsa-runtime"
	"github.com/wippyai/hsa-runtime/bundle"
	"github.com/wippyai/hsa-runtime/hostsym"
	"github.com/wippyai/hsa-runtime/hsa"
	"github.com/wippyai/hsa-runtime/image"
)

func main() {
	var (
		binPath     = flag.String("bin", "", "Path to ELF binary to inspect")
		section     = flag.String("section", hsaruntime.SectionName, "Device code section name")
		syms        = flag.Bool("syms", false, "List host global variables")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *binPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: koinfo -bin <binary> [-section name] [-syms]")
		fmt.Fprintln(os.Stderr, "       koinfo -bin <binary> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*binPath, *section); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*binPath, *section, *syms); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(binPath, section string, showSyms bool) error {
	enum := image.NewStaticEnumerator(image.Module{Path: binPath})

	buffers, err := image.ScanSections(enum, section)
	if err != nil {
		return fmt.Errorf("scan %s: %w", binPath, err)
	}

	fmt.Printf("Binary: %s\n", binPath)
	fmt.Printf("Sections named %s: %d\n", section, len(buffers))

	var total, device int
	for _, buf := range buffers {
		for _, h := range bundle.ParseAll(buf) {
			fmt.Printf("\nBundle (%s):\n", humanize.IBytes(uint64(h.Size)))
			for _, e := range h.Entries {
				total++
				target := "host"
				if isa := hsa.ParseTriple(e.Triple); isa != "" {
					device++
					target = string(isa)
				}
				fmt.Printf("  %-60s %10s  %s\n", e.Triple, humanize.IBytes(uint64(len(e.Blob))), target)
			}
		}
	}
	fmt.Printf("\nEntries: %d (%d device code objects)\n", total, device)

	if showSyms {
		table, err := hostsym.Build(enum, nil)
		if err != nil {
			return fmt.Errorf("host symbols: %w", err)
		}
		fmt.Printf("\nHost global variables: %d\n", table.Len())
		for _, s := range table.Symbols() {
			fmt.Printf("  %#016x %8s  %s\n", s.Addr, humanize.IBytes(s.Size), s.Name)
		}
	}
	return nil
}

// describeBlob summarizes a device code object: machine, type, and the
// symbols the loader would see.
type blobInfo struct {
	machine  string
	fileType string
	kernels  []string
	globals  []string
	parseErr error
}

func describeBlob(blob []byte) blobInfo {
	f, err := elf.NewFile(bytes.NewReader(blob))
	if err != nil {
		return blobInfo{parseErr: err}
	}
	defer f.Close()

	info := blobInfo{
		machine:  f.Machine.String(),
		fileType: f.Type.String(),
	}
	syms, err := f.DynamicSymbols()
	if err != nil {
		syms, err = f.Symbols()
		if err != nil {
			return info
		}
	}
	for _, s := range syms {
		if s.Name == "" {
			continue
		}
		switch {
		case s.Section == elf.SHN_UNDEF:
			info.globals = append(info.globals, s.Name)
		case elf.ST_TYPE(s.Info) == elf.STT_FUNC:
			info.kernels = append(info.kernels, s.Name)
		}
	}
	return info
}
