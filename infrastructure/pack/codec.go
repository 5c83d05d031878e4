package pack

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Marshal encodes a Pack as: u32 item_count; per item: u32 name_len+1,
// name bytes, u32 type_tag, u32 value_count, values. name_len is stored
// incremented by one to mirror a historical trailing NUL that this codec
// does not itself write (decode handles both forms, see Unmarshal).
func Marshal(p *Pack) ([]byte, error) {
	var buf bytes.Buffer
	var hdr [4]byte

	binary.BigEndian.PutUint32(hdr[:], uint32(len(p.Items)))
	buf.Write(hdr[:])

	for _, it := range p.Items {
		if len(it.Name) > MaxNameLen {
			return nil, fmt.Errorf("marshal item %q: %w", it.Name, ErrNameTooLong)
		}
		if len(it.Values) > MaxValues {
			return nil, fmt.Errorf("marshal item %q: %w", it.Name, ErrTooManyValues)
		}

		binary.BigEndian.PutUint32(hdr[:], uint32(len(it.Name)+1))
		buf.Write(hdr[:])
		buf.WriteString(it.Name)

		binary.BigEndian.PutUint32(hdr[:], uint32(it.Type))
		buf.Write(hdr[:])

		binary.BigEndian.PutUint32(hdr[:], uint32(len(it.Values)))
		buf.Write(hdr[:])

		for _, v := range it.Values {
			switch it.Type {
			case TypeInt:
				if len(v) != 4 {
					return nil, fmt.Errorf("marshal item %q: int value must be 4 bytes", it.Name)
				}
				buf.Write(v)
			case TypeInt64:
				if len(v) != 8 {
					return nil, fmt.Errorf("marshal item %q: int64 value must be 8 bytes", it.Name)
				}
				buf.Write(v)
			case TypeStr, TypeUnistr, TypeData:
				binary.BigEndian.PutUint32(hdr[:], uint32(len(v)))
				buf.Write(hdr[:])
				buf.Write(v)
			default:
				return nil, fmt.Errorf("marshal item %q: %w: %d", it.Name, ErrBadType, it.Type)
			}
		}
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a Pack from data. Every length is bound-checked
// against the remaining input before use.
func Unmarshal(data []byte) (*Pack, error) {
	r := &reader{data: data}

	itemCount, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("read item count: %w", err)
	}
	if itemCount > maxItems {
		return nil, fmt.Errorf("item count %d: %w", itemCount, ErrTooManyItems)
	}

	p := &Pack{Items: make([]Item, 0, itemCount)}

	for i := uint32(0); i < itemCount; i++ {
		nameLenPlusOne, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("item %d: read name length: %w", i, err)
		}
		if nameLenPlusOne == 0 {
			return nil, fmt.Errorf("item %d: zero name length field", i)
		}
		rawNameLen := nameLenPlusOne - 1
		if rawNameLen > MaxNameLen+1 {
			return nil, fmt.Errorf("item %d: %w", i, ErrNameTooLong)
		}
		nameBytes, err := r.bytes(int(rawNameLen))
		if err != nil {
			return nil, fmt.Errorf("item %d: read name: %w", i, err)
		}
		name := string(nameBytes)
		// Historical trailing NUL: stripped if present, verbatim otherwise.
		if n := len(name); n > 0 && name[n-1] == 0 {
			name = name[:n-1]
		}
		if len(name) > MaxNameLen {
			return nil, fmt.Errorf("item %d: %w", i, ErrNameTooLong)
		}

		typeTag, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("item %d %q: read type: %w", i, name, err)
		}
		vt := ValueType(typeTag)
		switch vt {
		case TypeInt, TypeInt64, TypeStr, TypeUnistr, TypeData:
		default:
			return nil, fmt.Errorf("item %d %q: %w: %d", i, name, ErrBadType, typeTag)
		}

		valueCount, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("item %d %q: read value count: %w", i, name, err)
		}
		if valueCount > MaxValues {
			return nil, fmt.Errorf("item %d %q: %w", i, name, ErrTooManyValues)
		}

		values := make([][]byte, 0, valueCount)
		for j := uint32(0); j < valueCount; j++ {
			var v []byte
			switch vt {
			case TypeInt:
				v, err = r.bytes(4)
			case TypeInt64:
				v, err = r.bytes(8)
			case TypeStr, TypeUnistr, TypeData:
				var vlen uint32
				vlen, err = r.u32()
				if err == nil {
					if vlen > maxValueLen {
						err = ErrValueTooLarge
					} else {
						v, err = r.bytes(int(vlen))
					}
				}
			}
			if err != nil {
				return nil, fmt.Errorf("item %d %q value %d: %w", i, name, j, err)
			}
			values = append(values, v)
		}

		p.Items = append(p.Items, Item{Name: name, Type: vt, Values: values})
	}

	return p, nil
}

// reader is a bound-checked cursor over a byte slice.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, ErrTruncated
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
