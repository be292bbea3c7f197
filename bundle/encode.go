package bundle

import (
	"bytes"
	"encoding/binary"
)

// Encode renders entries as one bundled code header, blobs packed after the
// descriptors in entry order. The output is parseable by Parse and is what
// the offload compiler emits into the device-code section.
func Encode(entries []Entry) []byte {
	headerLen := headerFixedSize
	for _, e := range entries {
		headerLen += entryFixedSize + len(e.Triple)
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	writeU64(&buf, uint64(len(entries)))

	offset := uint64(headerLen)
	for _, e := range entries {
		writeU64(&buf, offset)
		writeU64(&buf, uint64(len(e.Blob)))
		writeU64(&buf, uint64(len(e.Triple)))
		buf.WriteString(e.Triple)
		offset += uint64(len(e.Blob))
	}
	for _, e := range entries {
		buf.Write(e.Blob)
	}
	return buf.Bytes()
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
