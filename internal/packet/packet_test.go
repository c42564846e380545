package packet

import (
	"bytes"
	"testing"
)

func TestFrameHeader(t *testing.T) {
	w := NewWriter(32)
	w.WriteI32(-1)
	out := w.Finish(ServerUserID)

	id, length, err := ReadFrameHeader(out)
	if err != nil {
		t.Fatalf("ReadFrameHeader: %v", err)
	}
	if id != ServerUserID || length != 4 {
		t.Errorf("header = (%d, %d), want (%d, 4)", id, length, ServerUserID)
	}
	if out[2] != 0 {
		t.Errorf("pad byte = %d", out[2])
	}
	if _, _, err := ReadFrameHeader(out[:5]); err == nil {
		t.Errorf("short header accepted")
	}
}

func TestULEB128Roundtrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<35 + 7}
	for _, v := range values {
		w := NewWriter(32)
		w.WriteULEB128(v)
		r, err := NewFrameReader(w.Finish(0))
		if err != nil {
			t.Fatalf("frame reader: %v", err)
		}
		got, err := r.ReadULEB128()
		if err != nil {
			t.Fatalf("ReadULEB128(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("uleb128 roundtrip: got %d, want %d", got, v)
		}
	}
}

func TestStringRoundtrip(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", "日本語テキスト"} {
		w := NewWriter(64)
		w.WriteString(s)
		r, _ := NewFrameReader(w.Finish(0))
		got, err := r.ReadString()
		if err != nil {
			t.Fatalf("ReadString(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("string roundtrip: got %q, want %q", got, s)
		}
	}
}

func TestStringMarkers(t *testing.T) {
	r := NewReader([]byte{0x00})
	if s, err := r.ReadString(); err != nil || s != "" {
		t.Errorf("empty marker: %q, %v", s, err)
	}
	// Declared length beyond the buffer must error, not slice past it.
	r = NewReader([]byte{0x0B, 0x10, 'h', 'i'})
	if _, err := r.ReadString(); err == nil {
		t.Errorf("overlong string accepted")
	}
	r = NewReader([]byte{0x07})
	if _, err := r.ReadString(); err == nil {
		t.Errorf("bad marker accepted")
	}
}

func TestIntListRoundtrip(t *testing.T) {
	list := []int32{3, -7, 1000, 0}
	w := NewWriter(64)
	w.WriteIntList(list)
	r, _ := NewFrameReader(w.Finish(0))
	got, err := r.ReadIntList()
	if err != nil {
		t.Fatalf("ReadIntList: %v", err)
	}
	if len(got) != len(list) {
		t.Fatalf("length = %d, want %d", len(got), len(list))
	}
	for i := range list {
		if got[i] != list[i] {
			t.Errorf("item %d = %d, want %d", i, got[i], list[i])
		}
	}
}

func TestReaderBounds(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.ReadI32(); err == nil {
		t.Errorf("short i32 accepted")
	}
	if _, err := r.ReadBytes(5); err == nil {
		t.Errorf("short ReadBytes accepted")
	}
}

func TestPooledWriterReuse(t *testing.T) {
	w := Get()
	w.WriteString("first")
	first := append([]byte(nil), w.Finish(ServerNotification)...)
	w.Put()

	w = Get()
	w.WriteString("second")
	second := append([]byte(nil), w.Finish(ServerNotification)...)
	w.Put()

	if bytes.Equal(first, second) {
		t.Errorf("distinct payloads serialized identically")
	}
	r, _ := NewFrameReader(first)
	if s, _ := r.ReadString(); s != "first" {
		t.Errorf("first payload corrupted after pool reuse: %q", s)
	}
}

func TestSimple(t *testing.T) {
	out := Simple(ServerChannelInfoEnd)
	id, length, err := ReadFrameHeader(out)
	if err != nil || id != ServerChannelInfoEnd || length != 0 {
		t.Errorf("Simple frame = (%d, %d, %v)", id, length, err)
	}
}
