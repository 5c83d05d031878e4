//go:build linux

// Package session implements the orchestrator that drives a SoftEther
// session through its full lifecycle: TLS connect, Hello/Auth/Welcome,
// embedded DHCP, and the bidirectional TUN<->server packet pumps.
//
// The core runs on two lanes: this package's exported methods and its
// control-channel/tunnel-read goroutines form the session lane; the
// udpaccel package's Engine is driven from a dedicated UDP lane goroutine
// started here. Session fields shared across lanes (the ARP resolver, the
// DHCP client, the host flow) are guarded by mu, standing in for explicit
// enqueue-onto-session-lane message passing.
package session

import (
	"sevpn/application"
	"sevpn/infrastructure/settings"
)

// Config bundles everything the orchestrator needs to run one session.
type Config struct {
	Host settings.Host
	Port int
	Hub  string

	AuthSource      application.AuthSource
	HostFlow        application.HostFlow
	SettingsApplier application.SettingsApplier
	IfaceName       string

	UDPAccelEnabled  bool
	PinnedLeafSHA256 []byte
}
