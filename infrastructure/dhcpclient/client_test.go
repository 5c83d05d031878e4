package dhcpclient

import (
	"net"
	"testing"
	"time"

	"sevpn/application"
	"sevpn/domain/identity"
	"sevpn/infrastructure/l2"
)

func testMAC() identity.MAC {
	return identity.MAC{0x02, 1, 2, 3, 4, 5}
}

// extractDHCP pulls the DHCP payload bytes back out of a frame built by
// the client, mirroring what the orchestrator's demux would hand back in.
func extractDHCP(t *testing.T, frame []byte) l2.DHCPMessage {
	t.Helper()
	eth, err := l2.DecodeEthernet(frame)
	if err != nil {
		t.Fatalf("decode ethernet: %v", err)
	}
	ip, err := l2.DecodeIPv4(eth.Payload)
	if err != nil {
		t.Fatalf("decode ipv4: %v", err)
	}
	udp, err := l2.DecodeUDP(ip.Payload)
	if err != nil {
		t.Fatalf("decode udp: %v", err)
	}
	msg, err := l2.DecodeDHCPMessage(udp.Payload)
	if err != nil {
		t.Fatalf("decode dhcp: %v", err)
	}
	return msg
}

func TestDHCPHappyPathS2(t *testing.T) {
	var sent []l2.DHCPMessage
	var bound application.NetSettings
	boundCalled := false

	c := New(Config{
		ClientMAC: testMAC(),
		Emit: func(frame []byte) error {
			sent = append(sent, extractDHCP(t, frame))
			return nil
		},
		OnBound: func(s application.NetSettings) {
			bound = s
			boundCalled = true
		},
	})

	now := time.Unix(1000, 0)
	if err := c.Start(now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.State() != WaitingOffer {
		t.Fatalf("state = %v, want WaitingOffer", c.State())
	}
	if len(sent) != 1 || sent[0].MessageType() != l2.DHCPDiscover {
		t.Fatalf("expected one DISCOVER, got %+v", sent)
	}
	xid := sent[0].XID

	offer := buildServerMessage(xid, l2.DHCPOffer, net.IPv4(10, 0, 0, 5), []l2.Option{
		{Code: l2.OptServerID, Data: net.IPv4(10, 0, 0, 1).To4()},
	})
	if err := c.HandleDHCPPayload(offer, now); err != nil {
		t.Fatalf("handle offer: %v", err)
	}
	if c.State() != WaitingAck {
		t.Fatalf("state = %v, want WaitingAck", c.State())
	}
	if len(sent) != 2 || sent[1].MessageType() != l2.DHCPRequest {
		t.Fatalf("expected REQUEST after OFFER, got %+v", sent)
	}

	ack := buildServerMessage(xid, l2.DHCPAck, net.IPv4(10, 0, 0, 5), []l2.Option{
		{Code: l2.OptServerID, Data: net.IPv4(10, 0, 0, 1).To4()},
		{Code: l2.OptSubnetMask, Data: net.IPv4(255, 255, 255, 0).To4()},
		{Code: l2.OptRouter, Data: net.IPv4(10, 0, 0, 1).To4()},
		{Code: l2.OptDNSServers, Data: net.IPv4(10, 0, 0, 53).To4()},
		{Code: l2.OptLeaseTime, Data: []byte{0, 0, 0x0E, 0x10}},
	})
	if err := c.HandleDHCPPayload(ack, now); err != nil {
		t.Fatalf("handle ack: %v", err)
	}

	if c.State() != Bound {
		t.Fatalf("state = %v, want Bound", c.State())
	}
	if !boundCalled {
		t.Fatalf("OnBound was not called")
	}
	if !bound.Address.Equal(net.IPv4(10, 0, 0, 5)) {
		t.Fatalf("address = %v", bound.Address)
	}
	if net.IP(bound.Mask).String() != net.IPv4(255, 255, 255, 0).String() && bound.Mask.String() != "ffffff00" {
		t.Fatalf("mask = %v", bound.Mask)
	}
	if !bound.Gateway.Equal(net.IPv4(10, 0, 0, 1)) {
		t.Fatalf("gateway = %v", bound.Gateway)
	}
	if bound.MTU != defaultMTU {
		t.Fatalf("mtu = %d, want %d", bound.MTU, defaultMTU)
	}
	if bound.LeaseTime != 3600 {
		t.Fatalf("lease = %d, want 3600", bound.LeaseTime)
	}
}

func TestDHCPResendThenTimeout(t *testing.T) {
	sendCount := 0
	c := New(Config{
		ClientMAC: testMAC(),
		Emit: func(frame []byte) error {
			sendCount++
			return nil
		},
	})

	base := time.Unix(2000, 0)
	if err := c.Start(base); err != nil {
		t.Fatalf("start: %v", err)
	}

	now := base
	var lastErr error
	for i := 0; i < 6; i++ {
		now = now.Add(3 * time.Second)
		lastErr = c.Tick(now)
		if lastErr != nil {
			break
		}
	}
	if lastErr == nil {
		t.Fatalf("expected timeout error after exceeding retries")
	}
	// 1 initial send (Start) + 4 retries = 5 sends before timeout on the 5th resend attempt
	if sendCount != 5 {
		t.Fatalf("sendCount = %d, want 5", sendCount)
	}
}

func TestDHCPNakRestartsFromDiscover(t *testing.T) {
	var msgTypes []uint8
	c := New(Config{
		ClientMAC: testMAC(),
		Emit: func(frame []byte) error {
			msgTypes = append(msgTypes, extractDHCP(t, frame).MessageType())
			return nil
		},
	})

	now := time.Unix(3000, 0)
	_ = c.Start(now)
	xid1 := c.xid

	offer := buildServerMessage(xid1, l2.DHCPOffer, net.IPv4(10, 0, 0, 5), []l2.Option{
		{Code: l2.OptServerID, Data: net.IPv4(10, 0, 0, 1).To4()},
	})
	_ = c.HandleDHCPPayload(offer, now)

	nak := buildServerMessage(xid1, l2.DHCPNak, nil, nil)
	if err := c.HandleDHCPPayload(nak, now); err != nil {
		t.Fatalf("handle nak: %v", err)
	}

	if c.State() != WaitingOffer {
		t.Fatalf("state after NAK = %v, want WaitingOffer", c.State())
	}
	if len(msgTypes) == 0 || msgTypes[len(msgTypes)-1] != l2.DHCPDiscover {
		t.Fatalf("expected restart with DISCOVER, got %v", msgTypes)
	}
}

func buildServerMessage(xid uint32, msgType uint8, yiaddr net.IP, extra []l2.Option) []byte {
	out := make([]byte, 236)
	out[0] = 2 // BOOTREPLY
	out[1] = 1
	out[2] = 6
	be32put(out[4:8], xid)
	if yiaddr != nil {
		copy(out[16:20], yiaddr.To4())
	}
	out = append(out, 0x63, 0x82, 0x53, 0x63)
	out = append(out, l2.OptMessageType, 1, msgType)
	for _, o := range extra {
		out = append(out, o.Code, byte(len(o.Data)))
		out = append(out, o.Data...)
	}
	out = append(out, l2.OptEnd)
	return out
}

func be32put(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
