//go:build linux

package image

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// ProcessEnumerator lists the modules mapped into the running process:
// the main executable via its self-referential /proc/self/exe path and
// every file-backed shared object found in /proc/self/maps.
type ProcessEnumerator struct {
	mapsPath string
}

// NewProcessEnumerator returns the live-process enumerator.
func NewProcessEnumerator() *ProcessEnumerator {
	return &ProcessEnumerator{mapsPath: "/proc/self/maps"}
}

func (e *ProcessEnumerator) Modules() ([]Module, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	mods := []Module{{Path: exe, Offset: 0}}

	f, err := os.Open(e.mapsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Lowest mapping address per file is its load bias; shared objects are
	// ET_DYN with a zero minimum vaddr.
	base := make(map[string]uint64)
	var order []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		path := fields[5]
		if !strings.HasPrefix(path, "/") || path == exe {
			continue
		}
		if !strings.Contains(path, ".so") {
			continue
		}
		startStr, _, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		start, err := strconv.ParseUint(startStr, 16, 64)
		if err != nil {
			continue
		}
		if prev, seen := base[path]; !seen || start < prev {
			if !seen {
				order = append(order, path)
			}
			base[path] = start
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, path := range order {
		mods = append(mods, Module{Path: path, Offset: base[path]})
	}
	return mods, nil
}
