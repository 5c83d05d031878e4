package l2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

const (
	ipv4HeaderLen  = 20
	ipv4Version    = 4
	ipv4DefaultTTL = 64
	ipProtoUDP     = 17
	ipFlagDF       = 0x4000 // don't-fragment bit within the flags+fragment-offset field
)

var (
	ErrIPv4TooShort  = errors.New("ipv4: packet shorter than header")
	ErrIPv4BadIHL    = errors.New("ipv4: IHL out of range")
	ErrIPv4Truncated = errors.New("ipv4: total length exceeds available data")
)

// IPv4Packet is a decoded IPv4 datagram; Payload aliases the input slice.
type IPv4Packet struct {
	Protocol uint8
	Src      net.IP
	Dst      net.IP
	Payload  []byte
}

// BuildIPv4UDP constructs an IPv4 datagram with protocol UDP=17, TTL=64,
// the don't-fragment bit set, and a correct header checksum. It is used to
// construct outbound DHCP datagrams.
func BuildIPv4UDP(src, dst net.IP, payload []byte) ([]byte, error) {
	src4 := src.To4()
	dst4 := dst.To4()
	if src4 == nil || dst4 == nil {
		return nil, fmt.Errorf("ipv4: build: src/dst must be IPv4")
	}

	totalLen := ipv4HeaderLen + len(payload)
	if totalLen > 0xFFFF {
		return nil, fmt.Errorf("ipv4: build: payload too large for a single datagram")
	}

	out := make([]byte, totalLen)
	out[0] = (ipv4Version << 4) | (ipv4HeaderLen / 4)
	out[1] = 0 // DSCP/ECN
	binary.BigEndian.PutUint16(out[2:4], uint16(totalLen))
	binary.BigEndian.PutUint16(out[4:6], 0) // identification
	binary.BigEndian.PutUint16(out[6:8], ipFlagDF)
	out[8] = ipv4DefaultTTL
	out[9] = ipProtoUDP
	binary.BigEndian.PutUint16(out[10:12], 0) // checksum placeholder
	copy(out[12:16], src4)
	copy(out[16:20], dst4)
	copy(out[20:], payload)

	checksum := ipv4Checksum(out[:ipv4HeaderLen])
	binary.BigEndian.PutUint16(out[10:12], checksum)

	return out, nil
}

// DecodeIPv4 parses an IPv4 datagram's header and hands back the payload
// starting after the (possibly option-bearing) header.
func DecodeIPv4(data []byte) (IPv4Packet, error) {
	if len(data) < ipv4HeaderLen {
		return IPv4Packet{}, ErrIPv4TooShort
	}
	ihl := int(data[0]&0x0F) * 4
	if ihl < ipv4HeaderLen || ihl > len(data) {
		return IPv4Packet{}, ErrIPv4BadIHL
	}
	totalLen := int(binary.BigEndian.Uint16(data[2:4]))
	if totalLen > len(data) {
		return IPv4Packet{}, ErrIPv4Truncated
	}

	return IPv4Packet{
		Protocol: data[9],
		Src:      net.IP(append(net.IP{}, data[12:16]...)),
		Dst:      net.IP(append(net.IP{}, data[16:20]...)),
		Payload:  data[ihl:totalLen],
	}, nil
}

// ipv4Checksum computes the standard 16-bit one's-complement checksum of
// an IPv4 header (assumed to have its checksum field zeroed).
func ipv4Checksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(header); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
	}
	if len(header)%2 == 1 {
		sum += uint32(header[len(header)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}
