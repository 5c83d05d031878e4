package application

import "context"

// Session is the orchestrator's external surface: the five operations a
// host process drives a SoftEther client connection through.
type Session interface {
	// Connect dials the control channel and performs the TLS handshake.
	Connect(ctx context.Context) error
	// Handshake runs Hello/Auth/Welcome over the connected control channel.
	Handshake(ctx context.Context) error
	// ObtainIPViaDHCP runs the embedded DHCP client to completion (Bound).
	ObtainIPViaDHCP(ctx context.Context) (NetSettings, error)
	// StartTunneling applies network settings and starts the bidirectional
	// packet pumps. Returns once pumps are running; does not block for the
	// lifetime of the tunnel.
	StartTunneling(ctx context.Context) error
	// Stop tears the session down, idempotently.
	Stop(cause error) error
}
