package packet

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
)

// Writer serializes bancho packet payloads.
// Uses Little-Endian byte order for all multi-byte values.
// The seven header bytes are reserved up front and filled in by Finish.
type Writer struct {
	buf *bytes.Buffer
}

// writerPool reduces allocations by reusing Writers.
var writerPool = sync.Pool{
	New: func() any {
		return &Writer{
			buf: bytes.NewBuffer(make([]byte, 0, 512)),
		}
	},
}

// Get returns a Writer from the pool with the header bytes pre-reserved.
func Get() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	return w
}

// Put returns a Writer to the pool for reuse.
// Do not use the Writer after calling Put.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// NewWriter creates a packet writer with the given initial capacity.
// The header is pre-reserved; call Finish to stamp it.
func NewWriter(capacity int) *Writer {
	w := &Writer{buf: bytes.NewBuffer(make([]byte, 0, capacity))}
	w.Reset()
	return w
}

// Reset clears the buffer and re-reserves the header bytes.
func (w *Writer) Reset() {
	w.buf.Reset()
	w.buf.Write(make([]byte, HeaderSize))
}

// WriteU8 writes a single unsigned byte.
func (w *Writer) WriteU8(v uint8) *Writer {
	w.buf.WriteByte(v)
	return w
}

// WriteI8 writes a signed byte.
func (w *Writer) WriteI8(v int8) *Writer {
	w.buf.WriteByte(byte(v))
	return w
}

// WriteU16 writes a uint16 (2 bytes, LE).
func (w *Writer) WriteU16(v uint16) *Writer {
	w.buf.WriteByte(byte(v))
	w.buf.WriteByte(byte(v >> 8))
	return w
}

// WriteI16 writes an int16 (2 bytes, LE).
func (w *Writer) WriteI16(v int16) *Writer {
	return w.WriteU16(uint16(v))
}

// WriteU32 writes a uint32 (4 bytes, LE).
func (w *Writer) WriteU32(v uint32) *Writer {
	w.buf.WriteByte(byte(v))
	w.buf.WriteByte(byte(v >> 8))
	w.buf.WriteByte(byte(v >> 16))
	w.buf.WriteByte(byte(v >> 24))
	return w
}

// WriteI32 writes an int32 (4 bytes, LE).
func (w *Writer) WriteI32(v int32) *Writer {
	return w.WriteU32(uint32(v))
}

// WriteU64 writes a uint64 (8 bytes, LE).
func (w *Writer) WriteU64(v uint64) *Writer {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf.Write(tmp[:])
	return w
}

// WriteI64 writes an int64 (8 bytes, LE).
func (w *Writer) WriteI64(v int64) *Writer {
	return w.WriteU64(uint64(v))
}

// WriteF32 writes a float32 (4 bytes, LE, IEEE 754).
func (w *Writer) WriteF32(v float32) *Writer {
	return w.WriteU32(math.Float32bits(v))
}

// WriteULEB128 writes an unsigned LEB128 variable-length integer.
func (w *Writer) WriteULEB128(v uint64) *Writer {
	if v == 0 {
		w.buf.WriteByte(0)
		return w
	}
	for v != 0 {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
	}
	return w
}

// WriteString writes an osu-style string: 0x00 when empty, otherwise
// 0x0B followed by a uleb128 byte length and the UTF-8 bytes.
func (w *Writer) WriteString(s string) *Writer {
	if s == "" {
		w.buf.WriteByte(0x00)
		return w
	}
	w.buf.WriteByte(0x0B)
	w.WriteULEB128(uint64(len(s)))
	w.buf.WriteString(s)
	return w
}

// WriteIntList writes a u16 count followed by that many i32s.
func (w *Writer) WriteIntList(list []int32) *Writer {
	w.WriteU16(uint16(len(list)))
	for _, v := range list {
		w.WriteI32(v)
	}
	return w
}

// WriteRaw appends raw bytes without any framing. Used for cheap relay
// of opaque payloads such as spectator frames.
func (w *Writer) WriteRaw(data []byte) *Writer {
	w.buf.Write(data)
	return w
}

// Finish stamps the packet header (id, pad byte, payload length) into the
// reserved bytes and returns the complete framed packet.
// The returned slice aliases the Writer's buffer; copy it before Put.
func (w *Writer) Finish(id ID) []byte {
	out := w.buf.Bytes()
	binary.LittleEndian.PutUint16(out[0:2], uint16(id))
	out[2] = 0
	binary.LittleEndian.PutUint32(out[3:7], uint32(len(out)-HeaderSize))
	return out
}

// Len returns the current length including the reserved header.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Simple builds a zero-payload packet containing only the header.
func Simple(id ID) []byte {
	out := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(out[0:2], uint16(id))
	return out
}
