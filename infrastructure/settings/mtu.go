package settings

// DefaultEthernetMTU is used when a DHCP lease carries no MTU option.
const DefaultEthernetMTU = 1400

// UDPChacha20Overhead is the UDP acceleration wire format's per-frame
// overhead: a 12-byte nonce, a 16-byte Poly1305 tag, and the 23-byte
// plaintext header (cookies, tick, length, flags) that sit outside the
// Ethernet payload being carried.
const UDPChacha20Overhead = 12 + 16 + 23

// ResolveMTU returns mtu if positive, else DefaultEthernetMTU.
func ResolveMTU(mtu int) int {
	if mtu <= 0 {
		return DefaultEthernetMTU
	}
	return mtu
}

// UDPBufferSize is the minimum receive buffer size for a UDP acceleration
// socket carrying frames up to the resolved MTU.
func UDPBufferSize(mtu int) int {
	return ResolveMTU(mtu) + UDPChacha20Overhead
}
