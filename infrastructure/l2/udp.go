package l2

import (
	"encoding/binary"
	"errors"
)

const udpHeaderLen = 8

var ErrUDPTooShort = errors.New("udp: segment shorter than header")

// UDPSegment is a decoded UDP datagram; Payload aliases the input slice.
type UDPSegment struct {
	SrcPort uint16
	DstPort uint16
	Payload []byte
}

// BuildUDP constructs a UDP segment with checksum 0, which IPv4 permits.
func BuildUDP(srcPort, dstPort uint16, payload []byte) []byte {
	out := make([]byte, udpHeaderLen+len(payload))
	binary.BigEndian.PutUint16(out[0:2], srcPort)
	binary.BigEndian.PutUint16(out[2:4], dstPort)
	binary.BigEndian.PutUint16(out[4:6], uint16(udpHeaderLen+len(payload)))
	binary.BigEndian.PutUint16(out[6:8], 0) // checksum: 0 permitted over IPv4
	copy(out[udpHeaderLen:], payload)
	return out
}

// DecodeUDP parses a UDP segment.
func DecodeUDP(data []byte) (UDPSegment, error) {
	if len(data) < udpHeaderLen {
		return UDPSegment{}, ErrUDPTooShort
	}
	length := int(binary.BigEndian.Uint16(data[4:6]))
	if length < udpHeaderLen || length > len(data) {
		length = len(data)
	}
	return UDPSegment{
		SrcPort: binary.BigEndian.Uint16(data[0:2]),
		DstPort: binary.BigEndian.Uint16(data[2:4]),
		Payload: data[udpHeaderLen:length],
	}, nil
}
