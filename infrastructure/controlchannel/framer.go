package controlchannel

import (
	"encoding/binary"
	"fmt"
)

// keepAliveMagic is the u32 sentinel that distinguishes a keep-alive
// record from a data-batch record's count field.
const keepAliveMagic = 0xFFFFFFFF

type framerState int

const (
	stateReadHeader framerState = iota
	stateReadKeepAliveSize
	stateSkipKeepAliveBody
	stateReadBatchItemLen
	stateReadBatchItemBody
)

// Framer demultiplexes the SoftEther TCP byte stream into whole Ethernet
// frames. It consumes arbitrary-sized chunks and emits only complete
// frames, buffering any partial record across Feed calls.
type Framer struct {
	buf   []byte
	state framerState

	remainingItems uint32
	pendingLen     uint32
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends chunk to the internal buffer and returns every Ethernet
// frame that became complete as a result. Keep-alive records are consumed
// with no emission.
func (f *Framer) Feed(chunk []byte) ([][]byte, error) {
	f.buf = append(f.buf, chunk...)

	var frames [][]byte
	for {
		switch f.state {
		case stateReadHeader:
			if len(f.buf) < 4 {
				return frames, nil
			}
			v := binary.BigEndian.Uint32(f.buf[:4])
			f.consume(4)
			if v == keepAliveMagic {
				f.state = stateReadKeepAliveSize
			} else {
				f.remainingItems = v
				f.state = stateReadBatchItemLen
			}

		case stateReadKeepAliveSize:
			if len(f.buf) < 4 {
				return frames, nil
			}
			f.pendingLen = binary.BigEndian.Uint32(f.buf[:4])
			f.consume(4)
			f.state = stateSkipKeepAliveBody

		case stateSkipKeepAliveBody:
			if uint32(len(f.buf)) < f.pendingLen {
				return frames, nil
			}
			f.consume(int(f.pendingLen))
			f.state = stateReadHeader

		case stateReadBatchItemLen:
			if f.remainingItems == 0 {
				f.state = stateReadHeader
				continue
			}
			if len(f.buf) < 4 {
				return frames, nil
			}
			f.pendingLen = binary.BigEndian.Uint32(f.buf[:4])
			if f.pendingLen == 0 {
				return frames, fmt.Errorf("batch item: %w", ErrZeroLengthFrame)
			}
			f.consume(4)
			f.state = stateReadBatchItemBody

		case stateReadBatchItemBody:
			if uint32(len(f.buf)) < f.pendingLen {
				return frames, nil
			}
			frame := make([]byte, f.pendingLen)
			copy(frame, f.buf[:f.pendingLen])
			f.consume(int(f.pendingLen))
			frames = append(frames, frame)
			f.remainingItems--
			f.state = stateReadBatchItemLen
		}
	}
}

// EncodeKeepAlive wraps payload (expected 0..511 random bytes) as a
// keep-alive record.
func EncodeKeepAlive(payload []byte) []byte {
	out := make([]byte, 0, 8+len(payload))
	out = appendU32(out, keepAliveMagic)
	out = appendU32(out, uint32(len(payload)))
	out = append(out, payload...)
	return out
}

// EncodeDataBatch wraps a single Ethernet frame as a one-item data batch,
// the shape used to emit outbound frames on the TCP channel.
func EncodeDataBatch(frame []byte) []byte {
	out := make([]byte, 0, 8+len(frame))
	out = appendU32(out, 1)
	out = appendU32(out, uint32(len(frame)))
	out = append(out, frame...)
	return out
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (f *Framer) consume(n int) {
	f.buf = f.buf[n:]
}
