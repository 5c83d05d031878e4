package udpaccel

import "time"

// Readiness tracking constants.
const (
	Window            = 30000 * time.Millisecond
	RequireContinuous = 10000 * time.Millisecond
	KATimeoutNormal   = 9000 * time.Millisecond
	KATimeoutFast     = 2100 * time.Millisecond
)

// readiness is the content-addressed liveness tracker for the UDP data
// path. It is owned exclusively by the UDP I/O lane.
type readiness struct {
	fastDetect bool
	configured bool

	lastReceivedServerTick   uint64
	lastRecvMyTick           uint64
	lastReceivedAtMs         int64
	lastRecvTickForReadyMs   int64
	firstStableReceiveTickMs int64
	lastSetSrcEndpointTick   uint64
}

func newReadiness(fastDetect bool) *readiness {
	return &readiness{fastDetect: fastDetect}
}

func (r *readiness) kaTimeout() time.Duration {
	if r.fastDetect {
		return KATimeoutFast
	}
	return KATimeoutNormal
}

// onAccepted applies the readiness algorithm to one decrypted, cookie-
// valid packet. nowMs and the ticks are all in milliseconds on the same
// monotonic clock. Returns false if the packet was dropped as stale.
func (r *readiness) onAccepted(myTickFromPeer, yourTickFromPeer uint64, nowMs int64) bool {
	if myTickFromPeer < r.lastReceivedServerTick {
		delta := r.lastReceivedServerTick - myTickFromPeer
		if time.Duration(delta)*time.Millisecond >= Window {
			return false
		}
	}

	if myTickFromPeer > r.lastReceivedServerTick {
		r.lastReceivedServerTick = myTickFromPeer
	}
	if yourTickFromPeer > r.lastRecvMyTick {
		r.lastRecvMyTick = yourTickFromPeer
	}
	r.lastReceivedAtMs = nowMs

	if r.lastRecvMyTick != 0 && int64(r.lastRecvMyTick)+int64(Window/time.Millisecond) >= nowMs {
		r.lastRecvTickForReadyMs = nowMs
		if r.firstStableReceiveTickMs == 0 {
			r.firstStableReceiveTickMs = nowMs
		}
	}
	return true
}

// canPinEndpoint reports whether endpoint pinning is allowed for this
// accepted packet, per the ordering rule on lastSetSrcEndpointTick.
func (r *readiness) canPinEndpoint() bool {
	return r.lastSetSrcEndpointTick < r.lastReceivedServerTick
}

// markEndpointPinned records that pinning occurred at the current tick.
func (r *readiness) markEndpointPinned() {
	r.lastSetSrcEndpointTick = r.lastReceivedServerTick
}

// isReady implements the isReady(now) probe.
func (r *readiness) isReady(nowMs int64) bool {
	if !r.configured {
		return false
	}
	if r.lastRecvTickForReadyMs == 0 {
		return false
	}
	if nowMs > r.lastRecvTickForReadyMs+int64(r.kaTimeout()/time.Millisecond) {
		return false
	}
	if r.firstStableReceiveTickMs == 0 {
		return false
	}
	if nowMs < r.firstStableReceiveTickMs+int64(RequireContinuous/time.Millisecond) {
		return false
	}
	return true
}

// onKeepAliveTimeout demotes the data path by resetting stability
// accumulation; call when a keep-alive gap exceeds kaTimeout().
func (r *readiness) onKeepAliveTimeout() {
	r.firstStableReceiveTickMs = 0
}
