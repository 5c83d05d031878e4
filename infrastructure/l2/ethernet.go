// Package l2 implements the Ethernet/IPv4/UDP/ARP/DHCP wire formats the
// tunneled datagrams are framed in.
package l2

import (
	"encoding/binary"
	"fmt"

	"sevpn/domain/identity"
)

// EtherType identifies the payload carried by an Ethernet frame.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeIPv6 EtherType = 0x86DD
	EtherTypeARP  EtherType = 0x0806
)

// BroadcastMAC is the all-ones Ethernet broadcast address.
var BroadcastMAC = identity.MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ZeroMAC marks an unresolved destination (best-effort send).
var ZeroMAC = identity.MAC{}

const ethernetHeaderLen = 14

// EthernetFrame is a decoded Ethernet II frame: no VLAN tag, no trailer.
type EthernetFrame struct {
	Dst     identity.MAC
	Src     identity.MAC
	Type    EtherType
	Payload []byte
}

var ErrFrameTooShort = fmt.Errorf("ethernet: frame shorter than %d-byte header", ethernetHeaderLen)

// DecodeEthernet parses an Ethernet II frame. Payload aliases data.
func DecodeEthernet(data []byte) (EthernetFrame, error) {
	if len(data) < ethernetHeaderLen {
		return EthernetFrame{}, ErrFrameTooShort
	}
	var f EthernetFrame
	copy(f.Dst[:], data[0:6])
	copy(f.Src[:], data[6:12])
	f.Type = EtherType(binary.BigEndian.Uint16(data[12:14]))
	f.Payload = data[ethernetHeaderLen:]
	return f, nil
}

// EncodeEthernet serializes an Ethernet II frame.
func EncodeEthernet(f EthernetFrame) []byte {
	out := make([]byte, ethernetHeaderLen+len(f.Payload))
	copy(out[0:6], f.Dst[:])
	copy(out[6:12], f.Src[:])
	binary.BigEndian.PutUint16(out[12:14], uint16(f.Type))
	copy(out[ethernetHeaderLen:], f.Payload)
	return out
}
