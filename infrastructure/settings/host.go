package settings

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Host is the SoftEther server address configured by se_host: a literal
// IPv4 address, DNS-free per the session's suspension-point contract (no
// domain lookups are performed on any lane). A zero Host has no address
// set. session.Config.Host uses it to build the TLS dial address, the
// handshake's HTTP Host header, and the UDP acceleration engine's
// server-IP fallback.
type Host struct {
	ipv4 netip.Addr
}

// NewHost parses raw as a literal IPv4 address. Empty string returns a
// zero Host.
func NewHost(raw string) (Host, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Host{}, nil
	}

	ip, err := netip.ParseAddr(trimmed)
	if err != nil {
		return Host{}, fmt.Errorf("invalid host %q: expected a literal IPv4 address: %w", raw, err)
	}
	ip = ip.Unmap()
	if !ip.Is4() {
		return Host{}, fmt.Errorf("invalid host %q: expected a literal IPv4 address", raw)
	}
	return Host{ipv4: ip}, nil
}

func (h Host) String() string {
	if h.ipv4.IsValid() {
		return h.ipv4.String()
	}
	return ""
}

func (h Host) IsZero() bool {
	return !h.ipv4.IsValid()
}

// IP returns the host's address.
func (h Host) IP() (netip.Addr, bool) {
	return h.ipv4, h.ipv4.IsValid()
}

// Endpoint returns "ip:port".
func (h Host) Endpoint(port int) (string, error) {
	if h.IsZero() {
		return "", fmt.Errorf("empty host")
	}
	if err := validatePort(port); err != nil {
		return "", err
	}
	return h.ipv4.String() + ":" + strconv.Itoa(port), nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
