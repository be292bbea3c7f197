package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Reader wraps a bytes.Reader with position tracking and the fixed-width
// little-endian read methods the offload-bundle header format uses.
type Reader struct {
	r   *bytes.Reader
	pos int
}

// NewReader creates a new Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.r.Len()
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	r.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, r.wrapError(fmt.Errorf("negative length %d", n))
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(r.r, buf)
	r.pos += read
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadU64LE reads a little-endian uint64 (fixed 8 bytes).
func (r *Reader) ReadU64LE() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// ReadString reads n bytes and validates them as UTF-8.
func (r *Reader) ReadString(n int) (string, error) {
	data, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", r.wrapError(errors.New("invalid UTF-8 in string"))
	}
	return string(data), nil
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// WrapError wraps err with field and position context for parse errors.
func (r *Reader) WrapError(field string, err error) error {
	return &ParseError{Field: field, Position: r.pos, Err: err}
}

// ParseError represents an error during header parsing with position information.
type ParseError struct {
	Err      error
	Field    string
	Position int
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("bundle: %s at position %d: %v", e.Field, e.Position, e.Err)
	}
	return fmt.Sprintf("bundle: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
