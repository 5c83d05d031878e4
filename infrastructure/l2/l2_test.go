package l2

import (
	"bytes"
	"net"
	"testing"

	"sevpn/domain/identity"
)

func TestEthernetRoundTrip(t *testing.T) {
	f := EthernetFrame{
		Dst:     identity.MAC{1, 2, 3, 4, 5, 6},
		Src:     identity.MAC{6, 5, 4, 3, 2, 1},
		Type:    EtherTypeIPv4,
		Payload: []byte("payload"),
	}
	encoded := EncodeEthernet(f)
	decoded, err := DecodeEthernet(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Dst != f.Dst || decoded.Src != f.Src || decoded.Type != f.Type {
		t.Fatalf("header mismatch: %+v", decoded)
	}
	if !bytes.Equal(decoded.Payload, f.Payload) {
		t.Fatalf("payload mismatch: %q", decoded.Payload)
	}
}

func TestEthernetRejectsShortFrame(t *testing.T) {
	if _, err := DecodeEthernet([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short frame")
	}
}

func TestIPv4ChecksumValid(t *testing.T) {
	payload := []byte("dhcp-discover-payload")
	datagram, err := BuildIPv4UDP(net.IPv4zero, net.IPv4bcast, payload)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// A correct IPv4 header checksum makes the one's-complement sum over
	// the whole header (checksum field included) equal 0xFFFF.
	var sum uint32
	for i := 0; i+1 < ipv4HeaderLen; i += 2 {
		sum += uint32(datagram[i])<<8 | uint32(datagram[i+1])
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	if sum != 0xFFFF {
		t.Fatalf("header checksum invalid, sum = %x", sum)
	}
}

func TestIPv4DecodeRoundTrip(t *testing.T) {
	payload := []byte("hello-udp")
	src := net.IPv4(10, 0, 0, 5)
	dst := net.IPv4(10, 0, 0, 1)
	datagram, err := BuildIPv4UDP(src, dst, payload)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	decoded, err := DecodeIPv4(datagram)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Protocol != ipProtoUDP {
		t.Fatalf("protocol = %d, want 17", decoded.Protocol)
	}
	if !decoded.Src.Equal(src) || !decoded.Dst.Equal(dst) {
		t.Fatalf("src/dst mismatch: %v %v", decoded.Src, decoded.Dst)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Fatalf("payload mismatch: %q", decoded.Payload)
	}
}

func TestARPRoundTrip(t *testing.T) {
	p := ARPPacket{
		Opcode:    ARPReply,
		SenderMAC: identity.MAC{0xAA, 0, 0, 0, 0, 6},
		SenderIP:  net.IPv4(10, 0, 0, 5),
		TargetMAC: identity.MAC{0xAA, 0, 0, 0, 0, 9},
		TargetIP:  net.IPv4(10, 0, 0, 9),
	}
	encoded := EncodeARP(p)
	if len(encoded) != arpPayloadLen {
		t.Fatalf("encoded len = %d, want %d", len(encoded), arpPayloadLen)
	}
	decoded, err := DecodeARP(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Opcode != p.Opcode || decoded.SenderMAC != p.SenderMAC || decoded.TargetMAC != p.TargetMAC {
		t.Fatalf("mismatch: %+v", decoded)
	}
	if !decoded.SenderIP.Equal(p.SenderIP) || !decoded.TargetIP.Equal(p.TargetIP) {
		t.Fatalf("ip mismatch: %+v", decoded)
	}
}

func TestDHCPDiscoverRoundTrip(t *testing.T) {
	chaddr := identity.MAC{0x02, 1, 2, 3, 4, 5}
	raw := BuildDHCPMessage(0xDEADBEEF, chaddr, DHCPDiscover, nil)

	decoded, err := DecodeDHCPMessage(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.XID != 0xDEADBEEF {
		t.Fatalf("xid = %x, want DEADBEEF", decoded.XID)
	}
	if decoded.CHAddr != chaddr {
		t.Fatalf("chaddr mismatch: %v", decoded.CHAddr)
	}
	if decoded.MessageType() != DHCPDiscover {
		t.Fatalf("message type = %d, want DISCOVER", decoded.MessageType())
	}
	prl, ok := decoded.Option(OptParamReqList)
	if !ok || !bytes.Equal(prl, ParameterRequestList) {
		t.Fatalf("parameter request list mismatch: %v", prl)
	}
}

func TestDHCPAckWithLeaseOptions(t *testing.T) {
	chaddr := identity.MAC{0x02, 1, 2, 3, 4, 5}
	extra := []Option{
		{Code: OptSubnetMask, Data: net.IPv4(255, 255, 255, 0).To4()},
		{Code: OptRouter, Data: net.IPv4(10, 0, 0, 1).To4()},
		{Code: OptDNSServers, Data: net.IPv4(10, 0, 0, 53).To4()},
		{Code: OptLeaseTime, Data: []byte{0, 0, 0x0E, 0x10}}, // 3600
	}
	raw := BuildDHCPMessage(0xDEADBEEF, chaddr, DHCPAck, extra)
	// Simulate the server filling yiaddr, which BuildDHCPMessage (a
	// client-side constructor) leaves zero; patch it in directly for the
	// purpose of this decode test.
	copy(raw[16:20], net.IPv4(10, 0, 0, 5).To4())

	decoded, err := DecodeDHCPMessage(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.YIAddr.Equal(net.IPv4(10, 0, 0, 5)) {
		t.Fatalf("yiaddr = %v", decoded.YIAddr)
	}
	mask, ok := decoded.Option(OptSubnetMask)
	if !ok || !bytes.Equal(mask, []byte{255, 255, 255, 0}) {
		t.Fatalf("subnet mask mismatch: %v", mask)
	}
	lease, ok := decoded.Option(OptLeaseTime)
	if !ok || len(lease) != 4 {
		t.Fatalf("lease time missing or malformed: %v", lease)
	}
}

func TestDecodeDHCPRejectsBadCookie(t *testing.T) {
	raw := make([]byte, bootpFixedLen+4)
	if _, err := DecodeDHCPMessage(raw); err == nil {
		t.Fatalf("expected bad cookie error")
	}
}
