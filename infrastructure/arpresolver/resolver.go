// Package arpresolver implements the ARP cache and resolution state
// machine that backs on-link/gateway routing decisions for the packet
// pumps.
package arpresolver

import (
	"net"
	"time"

	"sevpn/domain/identity"
	"sevpn/infrastructure/l2"
)

const (
	cacheTTL          = 60 * time.Second
	maxPendingRetries = 4
	retrySpacing      = 2 * time.Second
	gratuitousPeriod  = 30 * time.Second
)

type cacheEntry struct {
	mac       identity.MAC
	updatedAt time.Time
}

type pendingEntry struct {
	attempts   int
	lastSentAt time.Time
}

// Resolver maintains the IPv4->MAC cache and drives outstanding requests.
// It is not concurrency-safe; the session orchestrator owns it on the
// session lane.
type Resolver struct {
	myIP  net.IP
	myMAC identity.MAC

	emit func(frame []byte) error

	cache   map[string]cacheEntry
	pending map[string]*pendingEntry

	lastGratuitous time.Time
	running        bool
}

// New constructs a Resolver for the given identity.
func New(myIP net.IP, myMAC identity.MAC, emit func(frame []byte) error) *Resolver {
	return &Resolver{
		myIP:    myIP,
		myMAC:   myMAC,
		emit:    emit,
		cache:   make(map[string]cacheEntry),
		pending: make(map[string]*pendingEntry),
	}
}

// Start marks the resolver active and sends an immediate gratuitous
// announcement.
func (r *Resolver) Start(now time.Time) error {
	r.running = true
	r.lastGratuitous = now
	return r.sendGratuitous()
}

// Stop marks the resolver inactive and clears pending/cached state.
func (r *Resolver) Stop() {
	r.running = false
	r.cache = make(map[string]cacheEntry)
	r.pending = make(map[string]*pendingEntry)
}

// Resolve returns the cached MAC for ip, or (zero, false) if absent or
// expired.
func (r *Resolver) Resolve(ip net.IP, now time.Time) (identity.MAC, bool) {
	e, ok := r.cache[ip.String()]
	if !ok {
		return identity.MAC{}, false
	}
	if now.Sub(e.updatedAt) > cacheTTL {
		delete(r.cache, ip.String())
		return identity.MAC{}, false
	}
	return e.mac, true
}

// Request issues an ARP request for ip, idempotently: a request already
// in flight for ip is not duplicated until retrySpacing elapses, and the
// total attempt count is capped.
func (r *Resolver) Request(ip net.IP, now time.Time) error {
	key := ip.String()
	p, exists := r.pending[key]
	if exists {
		if p.attempts >= maxPendingRetries {
			return nil
		}
		if now.Sub(p.lastSentAt) < retrySpacing {
			return nil
		}
	} else {
		p = &pendingEntry{}
		r.pending[key] = p
	}

	if err := r.sendRequest(ip); err != nil {
		return err
	}
	p.attempts++
	p.lastSentAt = now
	return nil
}

// Tick drives the gratuitous-announcement cadence; call it periodically
// (e.g. once per second) while running.
func (r *Resolver) Tick(now time.Time) error {
	if !r.running {
		return nil
	}
	if now.Sub(r.lastGratuitous) >= gratuitousPeriod {
		r.lastGratuitous = now
		return r.sendGratuitous()
	}
	return nil
}

// OnIncoming processes a decoded ARP payload. Requests for our own IP are
// answered; replies (to us or otherwise) refresh the cache.
func (r *Resolver) OnIncoming(payload []byte, now time.Time) error {
	p, err := l2.DecodeARP(payload)
	if err != nil {
		return err
	}

	if p.Opcode == l2.ARPRequest && p.TargetIP.Equal(r.myIP) {
		reply := l2.EncodeARP(l2.ARPPacket{
			Opcode:    l2.ARPReply,
			SenderMAC: r.myMAC,
			SenderIP:  r.myIP,
			TargetMAC: p.SenderMAC,
			TargetIP:  p.SenderIP,
		})
		frame := l2.EncodeEthernet(l2.EthernetFrame{
			Dst:     p.SenderMAC,
			Src:     r.myMAC,
			Type:    l2.EtherTypeARP,
			Payload: reply,
		})
		if err := r.emit(frame); err != nil {
			return err
		}
	}

	if p.SenderIP != nil && !p.SenderIP.IsUnspecified() {
		key := p.SenderIP.String()
		r.cache[key] = cacheEntry{mac: p.SenderMAC, updatedAt: now}
		delete(r.pending, key)
	}

	return nil
}

func (r *Resolver) sendRequest(ip net.IP) error {
	req := l2.EncodeARP(l2.ARPPacket{
		Opcode:    l2.ARPRequest,
		SenderMAC: r.myMAC,
		SenderIP:  r.myIP,
		TargetMAC: identity.MAC{},
		TargetIP:  ip,
	})
	frame := l2.EncodeEthernet(l2.EthernetFrame{
		Dst:     l2.BroadcastMAC,
		Src:     r.myMAC,
		Type:    l2.EtherTypeARP,
		Payload: req,
	})
	return r.emit(frame)
}

func (r *Resolver) sendGratuitous() error {
	announcement := l2.EncodeARP(l2.ARPPacket{
		Opcode:    l2.ARPReply,
		SenderMAC: r.myMAC,
		SenderIP:  r.myIP,
		TargetMAC: r.myMAC,
		TargetIP:  r.myIP,
	})
	frame := l2.EncodeEthernet(l2.EthernetFrame{
		Dst:     l2.BroadcastMAC,
		Src:     r.myMAC,
		Type:    l2.EtherTypeARP,
		Payload: announcement,
	})
	return r.emit(frame)
}
