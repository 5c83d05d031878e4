//go:build linux

package session

import (
	"net"
	"testing"
	"time"

	"sevpn/application"
	"sevpn/domain/identity"
	"sevpn/infrastructure/arpresolver"
	"sevpn/infrastructure/l2"
)

func newTestSession(t *testing.T) (*Session, identity.MAC) {
	t.Helper()
	mac, err := identity.NewRandomClientMAC()
	if err != nil {
		t.Fatalf("NewRandomClientMAC: %v", err)
	}
	return &Session{clientMAC: mac, stopCh: make(chan struct{})}, mac
}

func TestBuildOutboundIPv4FrameUsesResolvedMAC(t *testing.T) {
	s, myMAC := newTestSession(t)
	myIP := mustIPv4(t, "10.0.0.5")
	gw := mustIPv4(t, "10.0.0.1")
	dst := mustIPv4(t, "10.0.0.77")
	mask := net.CIDRMask(24, 32)

	peerMAC, err := identity.NewRandomClientMAC()
	if err != nil {
		t.Fatalf("NewRandomClientMAC: %v", err)
	}

	s.arp = arpresolver.New(myIP, myMAC, func(frame []byte) error { return nil })
	reply := l2.EncodeARP(l2.ARPPacket{
		Opcode:    l2.ARPReply,
		SenderMAC: peerMAC,
		SenderIP:  dst,
		TargetMAC: myMAC,
		TargetIP:  myIP,
	})
	if err := s.arp.OnIncoming(reply, time.Now()); err != nil {
		t.Fatalf("OnIncoming: %v", err)
	}

	ipPacket, err := l2.BuildIPv4UDP(myIP, dst, []byte("hello"))
	if err != nil {
		t.Fatalf("BuildIPv4UDP: %v", err)
	}

	frame, err := s.buildOutboundIPv4Frame(ipPacket, application.NetSettings{Address: myIP, Gateway: gw, Mask: mask}, time.Now())
	if err != nil {
		t.Fatalf("buildOutboundIPv4Frame: %v", err)
	}

	eth, err := l2.DecodeEthernet(frame)
	if err != nil {
		t.Fatalf("DecodeEthernet: %v", err)
	}
	if eth.Dst != peerMAC {
		t.Fatalf("dst mac = %v, want %v", eth.Dst, peerMAC)
	}
	if eth.Src != myMAC {
		t.Fatalf("src mac = %v, want %v", eth.Src, myMAC)
	}
	if eth.Type != l2.EtherTypeIPv4 {
		t.Fatalf("type = %v, want IPv4", eth.Type)
	}
}

func TestBuildOutboundIPv4FrameFallsBackToZeroMACWhenUnresolved(t *testing.T) {
	s, myMAC := newTestSession(t)
	myIP := mustIPv4(t, "10.0.0.5")
	gw := mustIPv4(t, "10.0.0.1")
	dst := mustIPv4(t, "10.0.0.200")
	mask := net.CIDRMask(24, 32)

	s.arp = arpresolver.New(myIP, myMAC, func(frame []byte) error { return nil })

	ipPacket, err := l2.BuildIPv4UDP(myIP, dst, []byte("hello"))
	if err != nil {
		t.Fatalf("BuildIPv4UDP: %v", err)
	}

	frame, err := s.buildOutboundIPv4Frame(ipPacket, application.NetSettings{Address: myIP, Gateway: gw, Mask: mask}, time.Now())
	if err != nil {
		t.Fatalf("buildOutboundIPv4Frame: %v", err)
	}

	eth, err := l2.DecodeEthernet(frame)
	if err != nil {
		t.Fatalf("DecodeEthernet: %v", err)
	}
	if eth.Dst != l2.ZeroMAC {
		t.Fatalf("dst mac = %v, want zero MAC (best-effort send)", eth.Dst)
	}
}
