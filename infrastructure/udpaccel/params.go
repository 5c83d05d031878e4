// Package udpaccel implements the UDP acceleration v2 data path: socket
// setup, ChaCha20-Poly1305 AEAD framing with nonce chaining, the
// readiness/liveness state machine, and the endpoint book.
package udpaccel

import (
	"crypto/rand"
	"fmt"
	"net"

	"sevpn/infrastructure/cryptography/mem"
)

// Params is everything the engine needs, assembled from the Welcome
// response's UDP-accel block plus locally generated client key material.
type Params struct {
	ServerAddr   *net.UDPAddr
	ServerCookie uint32
	ClientCookie uint32
	ServerKeyV2  [32]byte // first 32 bytes of the server's advertised key
	ClientKeyV2  [32]byte // first 32 bytes of our own 128-byte advertisement

	FastDisconnectDetect bool

	ConfiguredEndpoint *net.UDPAddr
	ReportedEndpoint   *net.UDPAddr
}

// ClientAdvertisement is the 128-byte clientKeyV2 and 20-byte clientKeyV1
// generated once per session and sent in the Auth pack; only the first 32
// bytes of clientKeyV2 are used as the send key.
type ClientAdvertisement struct {
	ClientKeyV1 [20]byte
	ClientKeyV2 [128]byte
}

// NewClientAdvertisement generates fresh random key material.
func NewClientAdvertisement() (ClientAdvertisement, error) {
	var ad ClientAdvertisement
	if _, err := rand.Read(ad.ClientKeyV1[:]); err != nil {
		return ClientAdvertisement{}, fmt.Errorf("generate client key v1: %w", err)
	}
	if _, err := rand.Read(ad.ClientKeyV2[:]); err != nil {
		return ClientAdvertisement{}, fmt.Errorf("generate client key v2: %w", err)
	}
	return ad, nil
}

// SendKey returns the first 32 bytes of the v2 key, used as the
// ChaCha20-Poly1305 send key.
func (a ClientAdvertisement) SendKey() [32]byte {
	var k [32]byte
	copy(k[:], a.ClientKeyV2[:32])
	return k
}

// Zero overwrites the advertisement's key material. Call once the
// session no longer needs it (the engine has already derived its AEAD
// ciphers from it by then).
func (a *ClientAdvertisement) Zero() {
	mem.ZeroBytes(a.ClientKeyV1[:])
	mem.ZeroBytes(a.ClientKeyV2[:])
}
