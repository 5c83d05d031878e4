// Package identity holds the small value types identifying a client on the
// Ethernet segment the session tunnels.
package identity

import (
	"crypto/rand"
	"fmt"
)

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// String renders the MAC in colon-hex notation.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsLocallyAdministered reports whether the locally-administered bit is set
// and the multicast bit is clear, i.e. this looks like a generated address
// rather than a vendor-assigned one.
func (m MAC) IsLocallyAdministered() bool {
	return m[0]&0x02 != 0 && m[0]&0x01 == 0
}

// NewRandomClientMAC generates a random locally-administered, unicast MAC
// address for use as the tunnel client's Ethernet identity: bit 0 of the
// first octet (multicast) is forced to 0, bit 1 (locally administered) is
// forced to 1.
func NewRandomClientMAC() (MAC, error) {
	var m MAC
	if _, err := rand.Read(m[:]); err != nil {
		return MAC{}, fmt.Errorf("generate client mac: %w", err)
	}
	m[0] &^= 0x01
	m[0] |= 0x02
	return m, nil
}
