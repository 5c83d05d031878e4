package handshake

import (
	"fmt"
	"net"

	"sevpn/application"
)

// Result bundles the Welcome descriptor with any bytes the handshake's
// buffered HTTP reader had already pulled off the wire past the Welcome
// response, which the caller must replay into the TCP stream framer
// before reading the connection directly.
type Result struct {
	Welcome  WelcomeResult
	Leftover []byte
}

// Run drives Hello, Auth, and Welcome in sequence over conn.
func Run(conn net.Conn, host, hub string, opts application.AuthOptions, udpAd *ClientUDPAdvertisement) (Result, error) {
	ex := newExchange(conn, host)

	hello, err := Hello(ex)
	if err != nil {
		return Result{}, fmt.Errorf("handshake: %w", err)
	}

	body, err := Auth(ex, hub, opts, hello.Random, udpAd)
	if err != nil {
		return Result{}, fmt.Errorf("handshake: %w", err)
	}

	welcome, err := ParseWelcome(body)
	if err != nil {
		return Result{}, fmt.Errorf("handshake: %w", err)
	}

	return Result{Welcome: welcome, Leftover: ex.leftover()}, nil
}
