package udpaccel

import "crypto/rand"

// nonceState tracks the 96-bit nonce used for the next outbound seal. The
// chaining rule is asymmetric: only the sender's evolution needs to be
// deterministic from the wire prefix (the receiver simply reads whatever
// nonce prefix arrived), so correctness never depends on both sides
// agreeing on an internal counter.
type nonceState struct {
	current [nonceLen]byte
}

func newNonceState() (*nonceState, error) {
	n := &nonceState{}
	if _, err := rand.Read(n.current[:]); err != nil {
		return nil, err
	}
	return n, nil
}

// next returns the nonce to use for the upcoming seal.
func (n *nonceState) next() [nonceLen]byte {
	return n.current
}

// advance updates the nonce after a successful seal, chaining from the
// ciphertext's first 12 bytes when available, else incrementing the
// current nonce as a big-endian 96-bit counter.
func (n *nonceState) advance(ciphertext []byte) {
	if len(ciphertext) >= nonceLen {
		copy(n.current[:], ciphertext[:nonceLen])
		return
	}
	for i := nonceLen - 1; i >= 0; i-- {
		n.current[i]++
		if n.current[i] != 0 {
			break
		}
	}
}
