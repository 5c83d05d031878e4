package udpaccel

import (
	"fmt"
	"math/rand"
	"net"
	"time"
)

const keepAliveAckRateLimit = 250 * time.Millisecond

// Engine is the UDP I/O lane: it owns the socket, the crypto boxes, the
// readiness tracker, the endpoint book, and the keep-alive timer. It is
// not concurrency-safe; only the UDP lane goroutine touches it. Decoded
// Ethernet-frame payloads are handed to onFrame for dispatch back onto
// the session lane via the caller's enqueue function.
type Engine struct {
	sock *Socket

	boxes     *boxes
	ready     *readiness
	endpoints *endpointBook

	serverCookie uint32
	clientCookie uint32

	onFrame func(frame []byte)

	now func() time.Time

	nextKeepAliveAt time.Time
	lastAckSentAt   time.Time
}

// NewEngine wires a socket already opened via OpenSocket to the crypto
// and readiness state derived from the Welcome UDP-accel block.
func NewEngine(sock *Socket, p Params, clientSendKey [32]byte, onFrame func(frame []byte)) (*Engine, error) {
	b, err := newBoxes(clientSendKey, p.ServerKeyV2)
	if err != nil {
		return nil, err
	}
	r := newReadiness(p.FastDisconnectDetect)
	r.configured = true

	eb := newEndpointBook(p.ServerAddr)
	if p.ConfiguredEndpoint != nil {
		eb.configured = p.ConfiguredEndpoint
	}
	if p.ReportedEndpoint != nil {
		eb.setReported(p.ReportedEndpoint)
	}

	e := &Engine{
		sock:         sock,
		boxes:        b,
		ready:        r,
		endpoints:    eb,
		serverCookie: p.ServerCookie,
		clientCookie: p.ClientCookie,
		onFrame:      onFrame,
		now:          time.Now,
	}
	e.scheduleNextKeepAlive(e.now())
	return e, nil
}

// CanSendDataPlane reports whether the send/receive contract permits
// using the accelerated path right now: ready AND endpoint pinned.
func (e *Engine) CanSendDataPlane(now time.Time) bool {
	return e.ready.isReady(now.UnixMilli()) && e.endpoints.pinned != nil
}

// SendFrame encrypts and transmits an Ethernet frame over the data
// plane. Callers must check CanSendDataPlane first; this method does not
// fall back to TCP itself.
func (e *Engine) SendFrame(frame []byte) error {
	return e.send(frame, 0)
}

// sendKeepAlive transmits one empty-payload packet to the primary
// destination, and, when not ready, additionally to deduplicated
// fallback destinations.
func (e *Engine) sendKeepAlive(now time.Time) error {
	if err := e.send(nil, 0); err != nil {
		return err
	}
	if e.ready.isReady(now.UnixMilli()) {
		return nil
	}
	for _, dst := range e.endpoints.fallbacks() {
		if err := e.sendTo(nil, 0, dst); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) send(payload []byte, flag uint8) error {
	dst := e.endpoints.primary()
	if dst == nil {
		return fmt.Errorf("udpaccel: no destination endpoint configured")
	}
	return e.sendTo(payload, flag, dst)
}

func (e *Engine) sendTo(payload []byte, flag uint8, dst *net.UDPAddr) error {
	h := plaintextHeader{
		Cookie:      e.serverCookie,
		MyTick:      tickMillis(e.now().UnixMilli()),
		YourTick:    e.ready.lastReceivedServerTick,
		PayloadSize: uint16(len(payload)),
		Flag:        flag,
	}
	packet := e.boxes.seal(encodePlaintext(h, payload))
	if _, err := e.sock.WriteTo(packet, dst); err != nil {
		return fmt.Errorf("udpaccel: write: %w", err)
	}
	return nil
}

// HandleIncoming processes one raw UDP datagram read from the socket.
// Path: decrypt -> parse -> cookie check -> readiness update -> dispatch.
func (e *Engine) HandleIncoming(data []byte, from *net.UDPAddr, now time.Time) error {
	plaintext, err := e.boxes.open(data)
	if err != nil {
		return err
	}
	h, payload, err := decodePlaintext(plaintext)
	if err != nil {
		return err
	}
	if h.Cookie != e.clientCookie {
		return fmt.Errorf("udpaccel: cookie mismatch")
	}

	nowMs := now.UnixMilli()
	accepted := e.ready.onAccepted(h.MyTick, h.YourTick, nowMs)
	if !accepted {
		return nil
	}
	if e.ready.canPinEndpoint() {
		e.endpoints.pin(from)
		e.ready.markEndpointPinned()
	}

	if h.PayloadSize == 0 {
		return e.maybeAckKeepAlive(now)
	}
	if e.onFrame != nil {
		e.onFrame(payload)
	}
	return nil
}

func (e *Engine) maybeAckKeepAlive(now time.Time) error {
	if !e.lastAckSentAt.IsZero() && now.Sub(e.lastAckSentAt) < keepAliveAckRateLimit {
		return nil
	}
	e.lastAckSentAt = now
	return e.send(nil, 0)
}

// Tick drives the keep-alive timer and the readiness timeout demotion.
// Call periodically (e.g. every 100ms) from the UDP lane.
func (e *Engine) Tick(now time.Time) error {
	if !now.Before(e.nextKeepAliveAt) {
		if err := e.sendKeepAlive(now); err != nil {
			return err
		}
		e.scheduleNextKeepAlive(now)
	}

	if e.ready.lastRecvTickForReadyMs != 0 {
		deadline := e.ready.lastRecvTickForReadyMs + int64(e.ready.kaTimeout()/time.Millisecond)
		if now.UnixMilli() > deadline {
			e.ready.onKeepAliveTimeout()
		}
	}
	return nil
}

func (e *Engine) scheduleNextKeepAlive(now time.Time) {
	base := 1500 * time.Millisecond
	if e.ready.fastDetect {
		base = 700 * time.Millisecond
	}
	jitter := time.Duration(rand.Intn(801)) * time.Millisecond
	e.nextKeepAliveAt = now.Add(base + jitter)
}

// Close releases the underlying socket.
func (e *Engine) Close() error {
	return e.sock.Close()
}
