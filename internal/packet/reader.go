package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader deserializes bancho packet payloads.
// Uses Little-Endian byte order for all multi-byte values.
// Every read checks bounds; a short buffer returns an error instead of
// panicking so a truncated frame cannot corrupt session state.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a reader over a packet payload (no frame header).
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// NewFrameReader creates a reader over a full framed packet,
// skipping the seven header bytes.
func NewFrameReader(frame []byte) (*Reader, error) {
	if len(frame) < HeaderSize {
		return nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	return &Reader{data: frame, pos: HeaderSize}, nil
}

// ReadFrameHeader reads the id and payload length of the frame starting at
// the beginning of stream. It does not advance any reader state.
func ReadFrameHeader(stream []byte) (ID, int, error) {
	if len(stream) < HeaderSize {
		return 0, 0, fmt.Errorf("frame header: need %d bytes, have %d", HeaderSize, len(stream))
	}
	id := ID(binary.LittleEndian.Uint16(stream[0:2]))
	length := int(binary.LittleEndian.Uint32(stream[3:7]))
	return id, length, nil
}

// ReadU8 reads a single unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("ReadU8: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadI8 reads a signed byte.
func (r *Reader) ReadI8() (int8, error) {
	b, err := r.ReadU8()
	return int8(b), err
}

// ReadU16 reads a uint16 (2 bytes, LE).
func (r *Reader) ReadU16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("ReadU16: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadI16 reads an int16 (2 bytes, LE).
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads a uint32 (4 bytes, LE).
func (r *Reader) ReadU32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadU32: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadI32 reads an int32 (4 bytes, LE).
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads a uint64 (8 bytes, LE).
func (r *Reader) ReadU64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("ReadU64: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadI64 reads an int64 (8 bytes, LE).
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF32 reads a float32 (4 bytes, LE, IEEE 754).
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadULEB128 decodes an unsigned LEB128 integer, returning the value.
func (r *Reader) ReadULEB128() (uint64, error) {
	var value uint64
	var shift uint
	for {
		if r.pos >= len(r.data) {
			return 0, fmt.Errorf("ReadULEB128: unexpected end of data (pos=%d)", r.pos)
		}
		if shift > 63 {
			return 0, fmt.Errorf("ReadULEB128: value overflows 64 bits")
		}
		b := r.data[r.pos]
		r.pos++
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
	}
}

// ReadString reads an osu-style string: 0x00 = empty, 0x0B = uleb128
// length followed by UTF-8 bytes.
func (r *Reader) ReadString() (string, error) {
	marker, err := r.ReadU8()
	if err != nil {
		return "", fmt.Errorf("ReadString: %w", err)
	}
	switch marker {
	case 0x00:
		return "", nil
	case 0x0B:
		length, err := r.ReadULEB128()
		if err != nil {
			return "", fmt.Errorf("ReadString: %w", err)
		}
		if uint64(r.pos)+length > uint64(len(r.data)) {
			return "", fmt.Errorf("ReadString: declared length %d exceeds remaining %d", length, len(r.data)-r.pos)
		}
		s := string(r.data[r.pos : r.pos+int(length)])
		r.pos += int(length)
		return s, nil
	default:
		return "", fmt.Errorf("ReadString: invalid string marker 0x%02X", marker)
	}
}

// ReadIntList reads a u16 count followed by that many i32s.
func (r *Reader) ReadIntList() ([]int32, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("ReadIntList: %w", err)
	}
	list := make([]int32, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := r.ReadI32()
		if err != nil {
			return nil, fmt.Errorf("ReadIntList[%d]: %w", i, err)
		}
		list = append(list, v)
	}
	return list, nil
}

// ReadBytes reads n bytes (zero-copy, returns a subslice of the input).
// Caller must not modify the returned bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("ReadBytes: not enough data (pos=%d, need=%d, len=%d)", r.pos, n, len(r.data))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}
