package pack

import (
	"bytes"
	"net"
	"testing"
)

func TestRoundTripBasicTypes(t *testing.T) {
	p := New()
	p.AddInt("version", 4)
	p.AddInt64("big", 1<<40)
	p.AddStr("hub", "DEFAULT")
	p.AddUnistr("banner", "hello")
	p.AddData("blob", []byte{1, 2, 3})
	p.AddBool("flag", true)
	p.AddIPv4("addr", net.IPv4(10, 0, 0, 5))

	encoded, err := Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := Unmarshal(encoded)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v, ok := decoded.GetInt("version"); !ok || v != 4 {
		t.Fatalf("version = %v, %v", v, ok)
	}
	if v, ok := decoded.GetInt64("big"); !ok || v != 1<<40 {
		t.Fatalf("big = %v, %v", v, ok)
	}
	if v, ok := decoded.GetStr("hub"); !ok || v != "DEFAULT" {
		t.Fatalf("hub = %q, %v", v, ok)
	}
	if v, ok := decoded.GetUnistr("banner"); !ok || v != "hello" {
		t.Fatalf("banner = %q, %v", v, ok)
	}
	if v, ok := decoded.GetData("blob"); !ok || !bytes.Equal(v, []byte{1, 2, 3}) {
		t.Fatalf("blob = %v, %v", v, ok)
	}
	if v, ok := decoded.GetBool("flag"); !ok || !v {
		t.Fatalf("flag = %v, %v", v, ok)
	}
	if v, ok := decoded.GetIPv4("addr"); !ok || !v.Equal(net.IPv4(10, 0, 0, 5)) {
		t.Fatalf("addr = %v, %v", v, ok)
	}
}

func TestMultipleValuesFirstWins(t *testing.T) {
	p := New()
	p.AddInt("x", 1, 2, 3)

	encoded, err := Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Unmarshal(encoded)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v, ok := decoded.GetInt("x")
	if !ok || v != 1 {
		t.Fatalf("expected first value 1, got %v %v", v, ok)
	}
}

func TestNameLengthAsymmetryWithValueLength(t *testing.T) {
	// Name length is stored as len+1 (NUL mirrored); the decoder strips it.
	// Value lengths are stored as-is, with no such adjustment.
	p := New()
	p.AddStr("n", "abcdef")
	encoded, err := Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// item_count(4) + name_len(4) + name(1) + type(4) + value_count(4) + value_len(4)
	nameLenOffset := 4
	gotNameLenPlusOne := be32(encoded[nameLenOffset : nameLenOffset+4])
	if gotNameLenPlusOne != 2 { // "n" is 1 byte, +1
		t.Fatalf("name_len_plus_one = %d, want 2", gotNameLenPlusOne)
	}
	valueLenOffset := nameLenOffset + 4 + 1 + 4 + 4
	gotValueLen := be32(encoded[valueLenOffset : valueLenOffset+4])
	if gotValueLen != 6 { // "abcdef" is 6 bytes, no +1
		t.Fatalf("value_len = %d, want 6", gotValueLen)
	}
}

func TestUnmarshalStripsTrailingNulFromName(t *testing.T) {
	// Hand-build a pack with an explicit trailing NUL in the name, matching
	// the historical wire form the decoder must also accept.
	var buf bytes.Buffer
	putU32(&buf, 1) // item count

	name := "x\x00"
	putU32(&buf, uint32(len(name)+1)) // len+1 of "x\x00"; decoder reads both bytes and strips the NUL
	buf.WriteString(name)
	putU32(&buf, uint32(TypeInt))
	putU32(&buf, 1)
	putU32(&buf, 42)

	p, err := Unmarshal(buf.Bytes())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(p.Items) != 1 || p.Items[0].Name != "x" {
		t.Fatalf("got items %+v", p.Items)
	}
}

func TestUnmarshalRejectsOversizedName(t *testing.T) {
	p := New()
	long := make([]byte, MaxNameLen+5)
	for i := range long {
		long[i] = 'a'
	}
	p.Items = append(p.Items, Item{Name: string(long), Type: TypeInt, Values: [][]byte{{0, 0, 0, 1}}})
	// Bypass Marshal's own validation by hand-encoding, to make sure
	// Unmarshal independently enforces the bound.
	var buf bytes.Buffer
	putU32(&buf, 1)
	putU32(&buf, uint32(len(long)+1))
	buf.Write(long)
	putU32(&buf, uint32(TypeInt))
	putU32(&buf, 1)
	putU32(&buf, 1)

	if _, err := Unmarshal(buf.Bytes()); err == nil {
		t.Fatalf("expected error for oversized name")
	}
}

func TestUnmarshalTruncatedInput(t *testing.T) {
	if _, err := Unmarshal([]byte{0, 0, 0, 1}); err == nil {
		t.Fatalf("expected truncation error")
	}
}

func TestRedactedOmitsSensitiveValues(t *testing.T) {
	p := New()
	p.AddStr("password", "hunter2")
	p.AddStr("hubname", "DEFAULT")

	out := Redacted(p)
	if bytes.Contains([]byte(out), []byte("hunter2")) {
		t.Fatalf("redacted output leaked password: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte("DEFAULT")) {
		t.Fatalf("redacted output dropped non-sensitive value: %s", out)
	}
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putU32(buf *bytes.Buffer, v uint32) {
	buf.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}
