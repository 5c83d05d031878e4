package udpaccel

import "net"

// endpointBook tracks the destinations the UDP lane may send to: the
// address configured from Welcome, one reported by the peer inside a
// decrypted packet (not currently surfaced by the wire format beyond the
// socket's own source address, but kept for forward compatibility with
// server-side NAT rebinding), and the currently pinned primary.
type endpointBook struct {
	configured *net.UDPAddr
	reported   *net.UDPAddr
	pinned     *net.UDPAddr
}

func newEndpointBook(configured *net.UDPAddr) *endpointBook {
	return &endpointBook{configured: configured}
}

// pin sets the primary send destination, typically the observed source
// address of an accepted inbound packet.
func (b *endpointBook) pin(addr *net.UDPAddr) {
	b.pinned = addr
}

func (b *endpointBook) setReported(addr *net.UDPAddr) {
	b.reported = addr
}

// primary returns the address outbound data-plane traffic should target.
func (b *endpointBook) primary() *net.UDPAddr {
	if b.pinned != nil {
		return b.pinned
	}
	return b.configured
}

// fallbacks returns pinned, configured, and reported destinations minus
// the primary, deduplicated, for keep-alive broadcast when not ready.
func (b *endpointBook) fallbacks() []*net.UDPAddr {
	primary := b.primary()
	seen := make(map[string]bool)
	if primary != nil {
		seen[primary.String()] = true
	}
	var out []*net.UDPAddr
	for _, candidate := range []*net.UDPAddr{b.pinned, b.configured, b.reported} {
		if candidate == nil {
			continue
		}
		key := candidate.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, candidate)
	}
	return out
}
