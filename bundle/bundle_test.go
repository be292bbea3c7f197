package bundle

import (
	"bytes"
	"errors"
	"testing"
)

const (
	tripleGfx906 = "hip-amdgcn-amd-amdhsa--gfx906"
	tripleGfx908 = "hip-amdgcn-amd-amdhsa--gfx908"
)

func TestParseSingle(t *testing.T) {
	data := Encode([]Entry{
		{Triple: tripleGfx906, Blob: []byte{0xde, 0xad, 0xbe, 0xef}},
		{Triple: tripleGfx908, Blob: []byte{0x01}},
	})

	h, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.Size != len(data) {
		t.Errorf("Size: got %d, want %d", h.Size, len(data))
	}
	if len(h.Entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(h.Entries))
	}
	if h.Entries[0].Triple != tripleGfx906 {
		t.Errorf("triple[0]: got %q", h.Entries[0].Triple)
	}
	if !bytes.Equal(h.Entries[0].Blob, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("blob[0]: got %v", h.Entries[0].Blob)
	}
	if h.Entries[1].Triple != tripleGfx908 || len(h.Entries[1].Blob) != 1 {
		t.Errorf("entry[1]: %+v", h.Entries[1])
	}
}

func TestParseBlobIsCopy(t *testing.T) {
	data := Encode([]Entry{{Triple: tripleGfx906, Blob: []byte{1, 2, 3}}})
	h, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for i := range data {
		data[i] = 0xff
	}
	if !bytes.Equal(h.Entries[0].Blob, []byte{1, 2, 3}) {
		t.Error("blob aliases the input buffer")
	}
}

func TestParseEmptyBundle(t *testing.T) {
	data := Encode(nil)
	h, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(h.Entries) != 0 {
		t.Errorf("entries: got %d, want 0", len(h.Entries))
	}
	if h.Size != len(data) {
		t.Errorf("Size: got %d, want %d", h.Size, len(data))
	}
}

func TestParseErrors(t *testing.T) {
	valid := Encode([]Entry{{Triple: tripleGfx906, Blob: []byte{1, 2, 3}}})

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", []byte(Magic), ErrTruncated},
		{"bad magic", bytes.Repeat([]byte{0x42}, len(valid)), ErrInvalidMagic},
		{"truncated descriptors", valid[:headerFixedSize+10], ErrTruncated},
		{"absurd entry count", append([]byte(Magic), bytes.Repeat([]byte{0xff}, 8)...), ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseBlobOutOfRange(t *testing.T) {
	data := Encode([]Entry{{Triple: tripleGfx906, Blob: []byte{1, 2, 3}}})
	// Chop the blob bytes off the end so the descriptor points past the buffer.
	data = data[:len(data)-2]

	if _, err := Parse(data); !errors.Is(err, ErrTruncated) {
		t.Errorf("Parse: got %v, want ErrTruncated", err)
	}
}

// Parsing partitions the buffer exactly: consecutive bundles consume
// adjacent, non-overlapping ranges, and a truncated tail is left alone.
func TestParseAllPartitionsBuffer(t *testing.T) {
	b1 := Encode([]Entry{{Triple: tripleGfx906, Blob: []byte{1, 2, 3, 4}}})
	b2 := Encode([]Entry{
		{Triple: tripleGfx906, Blob: []byte{5}},
		{Triple: tripleGfx908, Blob: []byte{6, 7}},
	})

	data := append(append([]byte{}, b1...), b2...)
	headers := ParseAll(data)
	if len(headers) != 2 {
		t.Fatalf("headers: got %d, want 2", len(headers))
	}
	if headers[0].Size != len(b1) || headers[1].Size != len(b2) {
		t.Errorf("sizes: got %d+%d, want %d+%d",
			headers[0].Size, headers[1].Size, len(b1), len(b2))
	}
	if headers[0].Size+headers[1].Size != len(data) {
		t.Error("bundles do not partition the buffer")
	}
}

func TestParseAllStopsAtTruncatedTail(t *testing.T) {
	b1 := Encode([]Entry{{Triple: tripleGfx906, Blob: []byte{1, 2, 3, 4}}})
	b2 := Encode([]Entry{{Triple: tripleGfx908, Blob: []byte{5, 6}}})

	data := append(append([]byte{}, b1...), b2[:len(b2)-4]...)
	headers := ParseAll(data)
	if len(headers) != 1 {
		t.Fatalf("headers: got %d, want 1 (truncated tail must not be consumed)", len(headers))
	}
	if headers[0].Size != len(b1) {
		t.Errorf("first bundle size: got %d, want %d", headers[0].Size, len(b1))
	}
}

func TestParseAllEmptyAndGarbage(t *testing.T) {
	if got := ParseAll(nil); got != nil {
		t.Errorf("ParseAll(nil): got %v, want nil", got)
	}
	if got := ParseAll([]byte("no bundles here, just padding")); got != nil {
		t.Errorf("ParseAll(garbage): got %v, want nil", got)
	}
}
