package udpaccel

import (
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// boxes holds the sender and receiver ChaCha20-Poly1305 AEAD instances and
// the sender's nonce-evolution state. The receive side never needs nonce
// state of its own: the nonce travels in the wire prefix.
type boxes struct {
	sendAEAD   cipher.AEAD
	recvAEAD   cipher.AEAD
	sendNonces *nonceState
}

func newBoxes(sendKey, recvKey [32]byte) (*boxes, error) {
	send, err := chacha20poly1305.New(sendKey[:])
	if err != nil {
		return nil, fmt.Errorf("udpaccel: init send aead: %w", err)
	}
	recv, err := chacha20poly1305.New(recvKey[:])
	if err != nil {
		return nil, fmt.Errorf("udpaccel: init recv aead: %w", err)
	}
	nonces, err := newNonceState()
	if err != nil {
		return nil, fmt.Errorf("udpaccel: init nonce state: %w", err)
	}
	return &boxes{sendAEAD: send, recvAEAD: recv, sendNonces: nonces}, nil
}

// seal encrypts plaintext under the current send nonce and returns the
// full wire packet: nonce || ciphertext || tag. The nonce state is
// advanced according to the chaining rule before returning.
func (b *boxes) seal(plaintext []byte) []byte {
	nonce := b.sendNonces.next()
	sealed := b.sendAEAD.Seal(nil, nonce[:], plaintext, nil)
	b.sendNonces.advance(sealed)
	out := make([]byte, 0, nonceLen+len(sealed))
	out = append(out, nonce[:]...)
	out = append(out, sealed...)
	return out
}

// open splits a wire packet into nonce and sealed body and decrypts it.
func (b *boxes) open(packet []byte) ([]byte, error) {
	if len(packet) < nonceLen+tagLen {
		return nil, fmt.Errorf("udpaccel: packet too short (%d bytes)", len(packet))
	}
	nonce := packet[:nonceLen]
	sealed := packet[nonceLen:]
	plaintext, err := b.recvAEAD.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("udpaccel: decrypt: %w", err)
	}
	return plaintext, nil
}
