package pack

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// sensitiveNames lists item names whose values must never appear in a
// debug rendering: credentials, session/UDP-accel keys, cookies, and the
// watermark/padding blobs that carry no diagnostic value anyway.
var sensitiveNames = map[string]bool{
	"password":        true,
	"secure_password": true,
	"jwt":             true,
	"session_key":     true,
	"session_key_32":  true,
	"client_key_v1":   true,
	"client_key_v2":   true,
	"udp_accel_client_key_v1": true,
	"udp_accel_client_key_v2": true,
	"server_key_v2":   true,
	"client_cookie":   true,
	"server_cookie":   true,
	"pencore":         true,
	"random":          true,
}

// Redacted renders a Pack for logging, replacing the value of any
// sensitive item with a fixed placeholder instead of printing it.
func Redacted(p *Pack) string {
	var b strings.Builder
	b.WriteString("Pack{")
	for i, it := range p.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s(%s)=", it.Name, it.Type)
		if sensitiveNames[it.Name] {
			b.WriteString("<redacted>")
			continue
		}
		b.WriteString("[")
		for j, v := range it.Values {
			if j > 0 {
				b.WriteString(",")
			}
			b.WriteString(renderValue(it.Type, v))
		}
		b.WriteString("]")
	}
	b.WriteString("}")
	return b.String()
}

func renderValue(t ValueType, v []byte) string {
	switch t {
	case TypeInt:
		if len(v) == 4 {
			return strconv.FormatUint(uint64(binary.BigEndian.Uint32(v)), 10)
		}
	case TypeInt64:
		if len(v) == 8 {
			return strconv.FormatUint(binary.BigEndian.Uint64(v), 10)
		}
	case TypeStr, TypeUnistr:
		return strconv.Quote(string(v))
	case TypeData:
		return fmt.Sprintf("<%d bytes>", len(v))
	}
	return "<malformed>"
}
