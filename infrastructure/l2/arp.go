package l2

import (
	"encoding/binary"
	"errors"
	"net"

	"sevpn/domain/identity"
)

const arpPayloadLen = 28

// ARPOpcode distinguishes request from reply.
type ARPOpcode uint16

const (
	ARPRequest ARPOpcode = 1
	ARPReply   ARPOpcode = 2
)

const (
	arpHWTypeEthernet = 1
	arpProtoIPv4      = 0x0800
	arpHLen           = 6
	arpPLen           = 4
)

var ErrARPTooShort = errors.New("arp: payload shorter than 28 bytes")

// ARPPacket is a decoded ARP payload (the bytes following the Ethernet
// header when EtherType is 0x0806).
type ARPPacket struct {
	Opcode    ARPOpcode
	SenderMAC identity.MAC
	SenderIP  net.IP
	TargetMAC identity.MAC
	TargetIP  net.IP
}

// EncodeARP serializes an ARP payload.
func EncodeARP(p ARPPacket) []byte {
	out := make([]byte, arpPayloadLen)
	binary.BigEndian.PutUint16(out[0:2], arpHWTypeEthernet)
	binary.BigEndian.PutUint16(out[2:4], arpProtoIPv4)
	out[4] = arpHLen
	out[5] = arpPLen
	binary.BigEndian.PutUint16(out[6:8], uint16(p.Opcode))
	copy(out[8:14], p.SenderMAC[:])
	copy(out[14:18], p.SenderIP.To4())
	copy(out[18:24], p.TargetMAC[:])
	copy(out[24:28], p.TargetIP.To4())
	return out
}

// DecodeARP parses an ARP payload.
func DecodeARP(data []byte) (ARPPacket, error) {
	if len(data) < arpPayloadLen {
		return ARPPacket{}, ErrARPTooShort
	}
	var p ARPPacket
	p.Opcode = ARPOpcode(binary.BigEndian.Uint16(data[6:8]))
	copy(p.SenderMAC[:], data[8:14])
	p.SenderIP = net.IP(append(net.IP{}, data[14:18]...))
	copy(p.TargetMAC[:], data[18:24])
	p.TargetIP = net.IP(append(net.IP{}, data[24:28]...))
	return p, nil
}
