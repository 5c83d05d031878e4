package handshake

import "errors"

var (
	ErrHelloShortRandom   = errors.New("handshake: hello random field short or missing")
	ErrServerError        = errors.New("handshake: server returned pack error field")
	ErrRedirect           = errors.New("handshake: server redirect unimplemented")
	ErrMissingField       = errors.New("handshake: welcome missing mandatory field")
	ErrSessionKeyTooShort = errors.New("handshake: session_key shorter than 20 bytes")
	ErrUDPKeyTooShort     = errors.New("handshake: server udp-accel key shorter than 32 bytes")
	ErrUDPAccelV1         = errors.New("handshake: udp-accel v1 unsupported")
)
