package arpresolver

import (
	"net"
	"testing"
	"time"

	"sevpn/domain/identity"
	"sevpn/infrastructure/l2"
)

func TestResolverAnswersRequestForOwnIP(t *testing.T) {
	myIP := net.IPv4(10, 0, 0, 5)
	myMAC := identity.MAC{0x02, 0, 0, 0, 0, 5}

	var sent [][]byte
	r := New(myIP, myMAC, func(frame []byte) error {
		sent = append(sent, frame)
		return nil
	})

	requesterMAC := identity.MAC{0xAA, 0, 0, 0, 0, 6}
	req := l2.EncodeARP(l2.ARPPacket{
		Opcode:    l2.ARPRequest,
		SenderMAC: requesterMAC,
		SenderIP:  net.IPv4(10, 0, 0, 9),
		TargetMAC: identity.MAC{},
		TargetIP:  myIP,
	})

	if err := r.OnIncoming(req, time.Unix(0, 0)); err != nil {
		t.Fatalf("OnIncoming: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("got %d frames, want 1 reply", len(sent))
	}

	eth, err := l2.DecodeEthernet(sent[0])
	if err != nil {
		t.Fatalf("decode ethernet: %v", err)
	}
	if eth.Dst != requesterMAC || eth.Type != l2.EtherTypeARP {
		t.Fatalf("reply header mismatch: %+v", eth)
	}
	reply, err := l2.DecodeARP(eth.Payload)
	if err != nil {
		t.Fatalf("decode arp: %v", err)
	}
	if reply.Opcode != l2.ARPReply || reply.SenderMAC != myMAC || !reply.TargetIP.Equal(net.IPv4(10, 0, 0, 9)) {
		t.Fatalf("reply content mismatch: %+v", reply)
	}
}

func TestResolverCachesRepliesAndExpiresTTL(t *testing.T) {
	myIP := net.IPv4(10, 0, 0, 5)
	myMAC := identity.MAC{0x02, 0, 0, 0, 0, 5}
	r := New(myIP, myMAC, func(frame []byte) error { return nil })

	peerIP := net.IPv4(10, 0, 0, 9)
	peerMAC := identity.MAC{0xAA, 0, 0, 0, 0, 6}
	reply := l2.EncodeARP(l2.ARPPacket{
		Opcode:    l2.ARPReply,
		SenderMAC: peerMAC,
		SenderIP:  peerIP,
		TargetMAC: myMAC,
		TargetIP:  myIP,
	})

	t0 := time.Unix(1000, 0)
	if err := r.OnIncoming(reply, t0); err != nil {
		t.Fatalf("OnIncoming: %v", err)
	}

	mac, ok := r.Resolve(peerIP, t0.Add(30*time.Second))
	if !ok || mac != peerMAC {
		t.Fatalf("Resolve within TTL = %v, %v", mac, ok)
	}

	_, ok = r.Resolve(peerIP, t0.Add(61*time.Second))
	if ok {
		t.Fatalf("Resolve should have expired past TTL")
	}
}

func TestResolverRequestIsIdempotentWithinSpacing(t *testing.T) {
	myIP := net.IPv4(10, 0, 0, 5)
	myMAC := identity.MAC{0x02, 0, 0, 0, 0, 5}
	sendCount := 0
	r := New(myIP, myMAC, func(frame []byte) error {
		sendCount++
		return nil
	})

	target := net.IPv4(10, 0, 0, 9)
	t0 := time.Unix(2000, 0)
	for i := 0; i < 3; i++ {
		if err := r.Request(target, t0); err != nil {
			t.Fatalf("request: %v", err)
		}
	}
	if sendCount != 1 {
		t.Fatalf("sendCount = %d, want 1 (deduped within spacing)", sendCount)
	}

	if err := r.Request(target, t0.Add(3*time.Second)); err != nil {
		t.Fatalf("request after spacing: %v", err)
	}
	if sendCount != 2 {
		t.Fatalf("sendCount = %d, want 2 after spacing elapsed", sendCount)
	}
}

func TestResolverCapsRetriesAtFour(t *testing.T) {
	myIP := net.IPv4(10, 0, 0, 5)
	myMAC := identity.MAC{0x02, 0, 0, 0, 0, 5}
	sendCount := 0
	r := New(myIP, myMAC, func(frame []byte) error {
		sendCount++
		return nil
	})

	target := net.IPv4(10, 0, 0, 9)
	t0 := time.Unix(3000, 0)
	for i := 0; i < 10; i++ {
		_ = r.Request(target, t0.Add(time.Duration(i)*3*time.Second))
	}
	if sendCount > maxPendingRetries {
		t.Fatalf("sendCount = %d, exceeds cap %d", sendCount, maxPendingRetries)
	}
}

func TestResolverGratuitousOnStartAndTick(t *testing.T) {
	myIP := net.IPv4(10, 0, 0, 5)
	myMAC := identity.MAC{0x02, 0, 0, 0, 0, 5}
	var sent int
	r := New(myIP, myMAC, func(frame []byte) error {
		sent++
		return nil
	})

	t0 := time.Unix(4000, 0)
	if err := r.Start(t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 gratuitous announce on start, got %d", sent)
	}

	if err := r.Tick(t0.Add(10 * time.Second)); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sent != 1 {
		t.Fatalf("tick before period elapsed should not re-announce, got %d", sent)
	}

	if err := r.Tick(t0.Add(31 * time.Second)); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected re-announce after 30s period, got %d", sent)
	}
}
