package udpaccel

import (
	"encoding/binary"
	"fmt"
)

// plaintextHeaderLen is the fixed prefix of the plaintext: cookie(4) +
// myTick(8) + yourTick(8) + payloadSize(2) + flag(1).
const plaintextHeaderLen = 4 + 8 + 8 + 2 + 1

const nonceLen = 12
const tagLen = 16

var errShortPlaintext = fmt.Errorf("udpaccel: plaintext shorter than header")

// plaintextHeader is the per-packet header carried inside the AEAD
// plaintext, ahead of the Ethernet-frame payload (or empty, for a
// keep-alive).
type plaintextHeader struct {
	Cookie      uint32
	MyTick      uint64
	YourTick    uint64
	PayloadSize uint16
	Flag        uint8
}

func encodePlaintext(h plaintextHeader, payload []byte) []byte {
	out := make([]byte, plaintextHeaderLen+len(payload))
	binary.BigEndian.PutUint32(out[0:4], h.Cookie)
	binary.BigEndian.PutUint64(out[4:12], h.MyTick)
	binary.BigEndian.PutUint64(out[12:20], h.YourTick)
	binary.BigEndian.PutUint16(out[20:22], h.PayloadSize)
	out[22] = h.Flag
	copy(out[plaintextHeaderLen:], payload)
	return out
}

func decodePlaintext(data []byte) (plaintextHeader, []byte, error) {
	if len(data) < plaintextHeaderLen {
		return plaintextHeader{}, nil, errShortPlaintext
	}
	h := plaintextHeader{
		Cookie:      binary.BigEndian.Uint32(data[0:4]),
		MyTick:      binary.BigEndian.Uint64(data[4:12]),
		YourTick:    binary.BigEndian.Uint64(data[12:20]),
		PayloadSize: binary.BigEndian.Uint16(data[20:22]),
		Flag:        data[22],
	}
	rest := data[plaintextHeaderLen:]
	if int(h.PayloadSize) > len(rest) {
		return plaintextHeader{}, nil, fmt.Errorf("udpaccel: payloadSize %d exceeds available %d", h.PayloadSize, len(rest))
	}
	return h, rest[:h.PayloadSize], nil
}

// tickMillis maps a monotonic instant to the wire tick representation,
// substituting 1 for the reserved sentinel 0.
func tickMillis(ms int64) uint64 {
	if ms <= 0 {
		return 1
	}
	return uint64(ms)
}
