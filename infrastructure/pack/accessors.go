package pack

import (
	"encoding/binary"
	"net"
)

// AddInt appends an Int item with the given u32 values.
func (p *Pack) AddInt(name string, values ...uint32) {
	raw := make([][]byte, len(values))
	for i, v := range values {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, v)
		raw[i] = b
	}
	p.add(name, TypeInt, raw)
}

// AddInt64 appends an Int64 item with the given u64 values.
func (p *Pack) AddInt64(name string, values ...uint64) {
	raw := make([][]byte, len(values))
	for i, v := range values {
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v)
		raw[i] = b
	}
	p.add(name, TypeInt64, raw)
}

// AddStr appends a Str item with the given UTF-8 values.
func (p *Pack) AddStr(name string, values ...string) {
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	p.add(name, TypeStr, raw)
}

// AddUnistr appends a Unistr item with the given UTF-8 values.
func (p *Pack) AddUnistr(name string, values ...string) {
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	p.add(name, TypeUnistr, raw)
}

// AddData appends a Data item with the given byte-slice values.
func (p *Pack) AddData(name string, values ...[]byte) {
	raw := make([][]byte, len(values))
	copy(raw, values)
	p.add(name, TypeData, raw)
}

// AddBool appends a boolean encoded as Int(0|1).
func (p *Pack) AddBool(name string, v bool) {
	if v {
		p.AddInt(name, 1)
	} else {
		p.AddInt(name, 0)
	}
}

// AddIPv4 encodes an IPv4 address as an Int in little-endian octet order:
// the serialized u32 value is b0 | b1<<8 | b2<<16 | b3<<24.
func (p *Pack) AddIPv4(name string, ip net.IP) {
	v4 := ip.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}
	val := uint32(v4[0]) | uint32(v4[1])<<8 | uint32(v4[2])<<16 | uint32(v4[3])<<24
	p.AddInt(name, val)
}

// GetInt returns the first Int value for name.
func (p *Pack) GetInt(name string) (uint32, bool) {
	it, ok := p.find(name, TypeInt)
	if !ok || len(it.Values) == 0 {
		return 0, false
	}
	return binary.BigEndian.Uint32(it.Values[0]), true
}

// GetInt64 returns the first Int64 value for name.
func (p *Pack) GetInt64(name string) (uint64, bool) {
	it, ok := p.find(name, TypeInt64)
	if !ok || len(it.Values) == 0 {
		return 0, false
	}
	return binary.BigEndian.Uint64(it.Values[0]), true
}

// GetStr returns the first Str value for name.
func (p *Pack) GetStr(name string) (string, bool) {
	it, ok := p.find(name, TypeStr)
	if !ok || len(it.Values) == 0 {
		return "", false
	}
	return string(it.Values[0]), true
}

// GetUnistr returns the first Unistr value for name.
func (p *Pack) GetUnistr(name string) (string, bool) {
	it, ok := p.find(name, TypeUnistr)
	if !ok || len(it.Values) == 0 {
		return "", false
	}
	return string(it.Values[0]), true
}

// GetData returns the first Data value for name.
func (p *Pack) GetData(name string) ([]byte, bool) {
	it, ok := p.find(name, TypeData)
	if !ok || len(it.Values) == 0 {
		return nil, false
	}
	return it.Values[0], true
}

// GetBool returns the first Int value for name interpreted as a boolean.
func (p *Pack) GetBool(name string) (bool, bool) {
	v, ok := p.GetInt(name)
	if !ok {
		return false, false
	}
	return v != 0, true
}

// GetIPv4 decodes an IPv4 address from an Int item using the little-endian
// octet convention (inverse of AddIPv4).
func (p *Pack) GetIPv4(name string) (net.IP, bool) {
	v, ok := p.GetInt(name)
	if !ok {
		return nil, false
	}
	return net.IPv4(byte(v), byte(v>>8), byte(v>>16), byte(v>>24)), true
}
