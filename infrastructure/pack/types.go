// Package pack implements the tag/type/value container used by the
// SoftEther control-plane handshake.
package pack

// ValueType is the wire type tag of a Pack item's values.
type ValueType uint32

const (
	TypeInt ValueType = iota
	TypeData
	TypeStr
	TypeUnistr
	TypeInt64
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeData:
		return "data"
	case TypeStr:
		return "str"
	case TypeUnistr:
		return "unistr"
	case TypeInt64:
		return "int64"
	default:
		return "unknown"
	}
}

// MaxNameLen is the maximum item name length after NUL-stripping.
const MaxNameLen = 63

// MaxValues is the maximum number of values a single item may carry.
const MaxValues = 262144

// Item is one named, typed, multi-valued entry in a Pack.
//
// Values holds each value's decoded content: 4 bytes big-endian for Int,
// 8 bytes big-endian for Int64, and raw content bytes (no length prefix)
// for Data/Str/Unistr.
type Item struct {
	Name   string
	Type   ValueType
	Values [][]byte
}

// Pack is an ordered sequence of items. Keys are unique by convention, not
// enforced; lookups return the first matching value.
type Pack struct {
	Items []Item
}

// New returns an empty Pack.
func New() *Pack {
	return &Pack{}
}

func (p *Pack) add(name string, t ValueType, values [][]byte) {
	p.Items = append(p.Items, Item{Name: name, Type: t, Values: values})
}

// find returns the first item with the given name and type.
func (p *Pack) find(name string, t ValueType) (Item, bool) {
	for _, it := range p.Items {
		if it.Name == name && it.Type == t {
			return it, true
		}
	}
	return Item{}, false
}
