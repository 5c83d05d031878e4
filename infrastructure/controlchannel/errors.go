package controlchannel

import "errors"

// ErrServerClosed indicates the peer closed the control channel.
var ErrServerClosed = errors.New("control channel: server closed connection")

// ErrZeroLengthFrame is returned by the framer when it observes a
// data-batch entry declaring a zero-length payload, which the wire format
// forbids.
var ErrZeroLengthFrame = errors.New("control channel: zero-length frame")
