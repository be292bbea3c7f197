package hsatest

import (
	"sync"

	"github.com/wippyai/hsa-runtime/errors"
)

// Handle is an opaque reference to a live fake-loader resource.
// Handle 0 is reserved and always invalid.
type Handle uint32

// handleSet tracks every handle the fake loader hands out, so tests can
// assert the release-exactly-once discipline: double closes fail, and
// OpenCount exposes leaks.
type handleSet struct {
	mu      sync.Mutex
	entries []handleEntry
}

type handleEntry struct {
	kind string
	open bool
}

func (s *handleSet) open(kind string) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, handleEntry{kind: kind, open: true})
	return Handle(len(s.entries))
}

func (s *handleSet) close(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == 0 || int(h) > len(s.entries) {
		return errors.Closed("unknown handle")
	}
	e := &s.entries[h-1]
	if !e.open {
		return errors.Closed(e.kind)
	}
	e.open = false
	return nil
}

func (s *handleSet) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.open {
			n++
		}
	}
	return n
}

func (s *handleSet) totalCount(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.kind == kind {
			n++
		}
	}
	return n
}
