package bundle

import (
	"errors"

	"github.com/wippyai/hsa-runtime/bundle/internal/binary"
)

// Magic identifies the start of a bundled code header. It is written by the
// offload compiler in front of every bundle embedded in a host binary.
const Magic = "__CLANG_OFFLOAD_BUNDLE__"

// headerFixedSize is the magic plus the entry count.
const headerFixedSize = len(Magic) + 8

// entryFixedSize is the per-entry descriptor without the triple bytes.
const entryFixedSize = 8 * 3

// Parsing errors returned by Parse.
var (
	ErrInvalidMagic = errors.New("bundle: invalid offload bundle magic")
	ErrTruncated    = errors.New("bundle: truncated offload bundle")
)

// Entry is one architecture-tagged device binary inside a bundle.
// Entries are immutable once parsed; Blob is a copy of the bundle bytes.
type Entry struct {
	Triple string
	Blob   []byte
}

// Header is a decoded bundled code header: the ordered entries and the total
// number of bytes the bundle occupies in its containing buffer.
type Header struct {
	Entries []Entry
	Size    int
}

// Parse decodes one bundled code header from the start of data.
//
// On success the returned Header reports in Size how many bytes the bundle
// consumed, so back-to-back bundles can be walked by re-slicing. Bad magic
// and short data return ErrInvalidMagic and ErrTruncated respectively;
// callers that walk a buffer treat either as end-of-stream.
func Parse(data []byte) (*Header, error) {
	if len(data) < headerFixedSize {
		return nil, ErrTruncated
	}

	r := binary.NewReader(data)

	magic, err := r.ReadString(len(Magic))
	if err != nil || magic != Magic {
		return nil, ErrInvalidMagic
	}

	count, err := r.ReadU64LE()
	if err != nil {
		return nil, ErrTruncated
	}
	// Every descriptor needs at least its fixed-width fields.
	if count > uint64(r.Remaining())/entryFixedSize {
		return nil, ErrTruncated
	}

	h := &Header{Entries: make([]Entry, 0, count)}
	consumed := headerFixedSize

	for i := uint64(0); i < count; i++ {
		offset, err := r.ReadU64LE()
		if err != nil {
			return nil, ErrTruncated
		}
		size, err := r.ReadU64LE()
		if err != nil {
			return nil, ErrTruncated
		}
		tripleLen, err := r.ReadU64LE()
		if err != nil {
			return nil, ErrTruncated
		}
		if tripleLen > uint64(r.Remaining()) {
			return nil, ErrTruncated
		}
		triple, err := r.ReadString(int(tripleLen))
		if err != nil {
			return nil, r.WrapError("triple", err)
		}

		end := offset + size
		if end < offset || end > uint64(len(data)) {
			return nil, ErrTruncated
		}
		blob := make([]byte, size)
		copy(blob, data[offset:end])

		h.Entries = append(h.Entries, Entry{Triple: triple, Blob: blob})
		if int(end) > consumed {
			consumed = int(end)
		}
	}

	if r.Position() > consumed {
		consumed = r.Position()
	}
	h.Size = consumed
	return h, nil
}

// ParseAll walks a buffer of back-to-back bundles, advancing by each
// bundle's consumed size, and stops cleanly at the first invalid or
// undersized remainder. A buffer with no valid bundle yields nil.
func ParseAll(data []byte) []*Header {
	var headers []*Header
	offset := 0
	for offset < len(data) {
		h, err := Parse(data[offset:])
		if err != nil {
			break
		}
		headers = append(headers, h)
		offset += h.Size
	}
	return headers
}
