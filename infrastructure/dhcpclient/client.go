// Package dhcpclient implements the embedded DHCP client state machine
// that runs over the SoftEther Ethernet tunnel to obtain an IPv4 lease.
package dhcpclient

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"sevpn/application"
	"sevpn/domain/identity"
	"sevpn/domain/protoerr"
	"sevpn/infrastructure/l2"
)

// State is one phase of the DHCP client's lifecycle.
type State int

const (
	Idle State = iota
	SendingDiscover
	WaitingOffer
	WaitingAck
	Bound
	Renewing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SendingDiscover:
		return "SendingDiscover"
	case WaitingOffer:
		return "WaitingOffer"
	case WaitingAck:
		return "WaitingAck"
	case Bound:
		return "Bound"
	case Renewing:
		return "Renewing"
	default:
		return "Unknown"
	}
}

const (
	resendInterval = 3 * time.Second
	maxRetries     = 4
	defaultMTU     = 1400
)

// Client drives the DISCOVER/OFFER/REQUEST/ACK cycle and subsequent
// lease renewal. It is not concurrency-safe; callers run it on a single
// lane, matching the session orchestrator's scheduling model.
type Client struct {
	clientMAC identity.MAC

	// emit sends a fully-built Ethernet frame (IPv4/UDP/DHCP payload)
	// toward the server. The client decides broadcast vs unicast dst MAC
	// itself, consulting resolveServerMAC for the unicast case.
	emit func(frame []byte) error
	// resolveServerMAC looks up the DHCP server's MAC for a unicast
	// renewal; returning false falls back to a broadcast send.
	resolveServerMAC func(ip net.IP) (identity.MAC, bool)

	onBound   func(application.NetSettings)
	onRenewed func(application.NetSettings)

	state      State
	xid        uint32
	attempts   int
	lastSendAt time.Time

	serverID  net.IP
	offeredIP net.IP

	leaseIP       net.IP
	leaseMask     net.IPMask
	leaseRouter   net.IP
	leaseDNS      []net.IP
	leaseMTU      int
	leaseSeconds  uint32
	leaseObtained time.Time
}

// Config bundles a Client's collaborators.
type Config struct {
	ClientMAC        identity.MAC
	Emit             func(frame []byte) error
	ResolveServerMAC func(ip net.IP) (identity.MAC, bool)
	OnBound          func(application.NetSettings)
	OnRenewed        func(application.NetSettings)
}

// New constructs a Client in the Idle state.
func New(cfg Config) *Client {
	return &Client{
		clientMAC:        cfg.ClientMAC,
		emit:             cfg.Emit,
		resolveServerMAC: cfg.ResolveServerMAC,
		onBound:          cfg.OnBound,
		onRenewed:        cfg.OnRenewed,
		state:            Idle,
	}
}

// State returns the client's current phase.
func (c *Client) State() State { return c.state }

// Lease returns the most recently bound network settings and whether a
// lease is currently held (state Bound or Renewing).
func (c *Client) Lease() (application.NetSettings, bool) {
	if c.state != Bound && c.state != Renewing {
		return application.NetSettings{}, false
	}
	return application.NetSettings{
		Address:   c.leaseIP,
		Mask:      c.leaseMask,
		Gateway:   c.leaseRouter,
		DNS:       c.leaseDNS,
		MTU:       c.leaseMTU,
		LeaseTime: c.leaseSeconds,
	}, true
}

// Start clears any prior lease, picks a fresh XID, and sends DISCOVER.
func (c *Client) Start(now time.Time) error {
	c.serverID = nil
	c.offeredIP = nil
	c.leaseIP = nil

	xid, err := randomXID()
	if err != nil {
		return protoerr.NewDhcpError(protoerr.DhcpInternal, err)
	}
	c.xid = xid
	c.attempts = 0
	c.state = SendingDiscover

	if err := c.sendBroadcast(l2.DHCPDiscover, nil); err != nil {
		return protoerr.NewDhcpError(protoerr.DhcpInternal, err)
	}
	c.lastSendAt = now
	c.state = WaitingOffer
	return nil
}

// Tick drives resends and lease renewal; call once per second.
func (c *Client) Tick(now time.Time) error {
	switch c.state {
	case WaitingOffer:
		return c.resend(now, func() error { return c.sendBroadcast(l2.DHCPDiscover, nil) })
	case WaitingAck:
		return c.resend(now, func() error { return c.sendRequest(now, true) })
	case Renewing:
		return c.resend(now, func() error { return c.sendRequest(now, false) })
	case Bound:
		if c.leaseSeconds > 0 && now.Sub(c.leaseObtained) >= time.Duration(c.leaseSeconds)/2*time.Second {
			c.state = Renewing
			c.attempts = 0
			if err := c.sendRequest(now, false); err != nil {
				return protoerr.NewDhcpError(protoerr.DhcpInternal, err)
			}
			c.lastSendAt = now
		}
		return nil
	default:
		return nil
	}
}

func (c *Client) resend(now time.Time, send func() error) error {
	if now.Sub(c.lastSendAt) < resendInterval {
		return nil
	}
	c.attempts++
	if c.attempts > maxRetries {
		return protoerr.NewDhcpError(protoerr.DhcpTimeout, fmt.Errorf("no response after %d retries in %s", maxRetries, c.state))
	}
	if err := send(); err != nil {
		return protoerr.NewDhcpError(protoerr.DhcpInternal, err)
	}
	c.lastSendAt = now
	return nil
}

// HandleDHCPPayload processes one decoded DHCP payload (the bytes of a
// UDP 67<->68 datagram carried inside an IPv4/Ethernet frame classified by
// the caller). Messages for a different XID are ignored.
func (c *Client) HandleDHCPPayload(payload []byte, now time.Time) error {
	msg, err := l2.DecodeDHCPMessage(payload)
	if err != nil {
		return protoerr.NewDhcpError(protoerr.DhcpInvalidMessage, err)
	}
	if msg.XID != c.xid {
		return nil
	}

	switch msg.MessageType() {
	case l2.DHCPOffer:
		if c.state != WaitingOffer {
			return nil
		}
		serverIDRaw, ok := msg.Option(l2.OptServerID)
		if !ok || len(serverIDRaw) != 4 {
			return protoerr.NewDhcpError(protoerr.DhcpInvalidMessage, fmt.Errorf("offer missing server id"))
		}
		c.serverID = net.IP(append(net.IP{}, serverIDRaw...))
		c.offeredIP = msg.YIAddr
		c.state = WaitingAck
		c.attempts = 0
		if err := c.sendRequest(now, true); err != nil {
			return protoerr.NewDhcpError(protoerr.DhcpInternal, err)
		}
		c.lastSendAt = now
		return nil

	case l2.DHCPAck:
		if c.state != WaitingAck && c.state != Renewing {
			return nil
		}
		settings, err := bindSettings(msg)
		if err != nil {
			return err
		}
		initial := c.state != Renewing
		c.leaseIP = settings.Address
		c.leaseMask = settings.Mask
		c.leaseRouter = settings.Gateway
		c.leaseDNS = settings.DNS
		c.leaseMTU = settings.MTU
		c.leaseSeconds = settings.LeaseTime
		c.leaseObtained = now
		c.state = Bound
		if initial {
			if c.onBound != nil {
				c.onBound(settings)
			}
		} else if c.onRenewed != nil {
			c.onRenewed(settings)
		}
		return nil

	case l2.DHCPNak:
		if c.state != WaitingAck && c.state != Renewing {
			return nil
		}
		return c.Start(now)

	default:
		return nil
	}
}

func bindSettings(msg l2.DHCPMessage) (application.NetSettings, error) {
	if msg.YIAddr == nil || msg.YIAddr.IsUnspecified() {
		return application.NetSettings{}, protoerr.NewDhcpError(protoerr.DhcpIncompleteConfig, fmt.Errorf("ack missing yiaddr"))
	}
	maskRaw, ok := msg.Option(l2.OptSubnetMask)
	if !ok || len(maskRaw) != 4 {
		return application.NetSettings{}, protoerr.NewDhcpError(protoerr.DhcpIncompleteConfig, fmt.Errorf("ack missing subnet mask"))
	}

	settings := application.NetSettings{
		Address: msg.YIAddr,
		Mask:    net.IPMask(maskRaw),
		MTU:     defaultMTU,
	}

	if routerRaw, ok := msg.Option(l2.OptRouter); ok && len(routerRaw) >= 4 {
		settings.Gateway = net.IP(append(net.IP{}, routerRaw[:4]...))
	}
	if dnsRaw, ok := msg.Option(l2.OptDNSServers); ok {
		for i := 0; i+4 <= len(dnsRaw); i += 4 {
			settings.DNS = append(settings.DNS, net.IP(append(net.IP{}, dnsRaw[i:i+4]...)))
		}
	}
	if leaseRaw, ok := msg.Option(l2.OptLeaseTime); ok && len(leaseRaw) == 4 {
		settings.LeaseTime = binary.BigEndian.Uint32(leaseRaw)
	}

	return settings, nil
}

func (c *Client) sendBroadcast(msgType uint8, extra []l2.Option) error {
	dhcp := l2.BuildDHCPMessage(c.xid, c.clientMAC, msgType, extra)
	datagram, err := l2.BuildIPv4UDP(net.IPv4zero, net.IPv4bcast, l2.BuildUDP(l2.DHCPClientPort, l2.DHCPServerPort, dhcp))
	if err != nil {
		return err
	}
	frame := l2.EncodeEthernet(l2.EthernetFrame{
		Dst:     l2.BroadcastMAC,
		Src:     c.clientMAC,
		Type:    l2.EtherTypeIPv4,
		Payload: datagram,
	})
	return c.emit(frame)
}

func (c *Client) sendRequest(now time.Time, broadcastPhase bool) error {
	extra := []l2.Option{{Code: l2.OptRequestedIP, Data: c.offeredOrLeasedIP()}}
	if c.serverID != nil {
		extra = append(extra, l2.Option{Code: l2.OptServerID, Data: c.serverID.To4()})
	}

	if broadcastPhase || c.leaseIP == nil {
		return c.sendBroadcast(l2.DHCPRequest, extra)
	}

	dhcp := l2.BuildDHCPMessage(c.xid, c.clientMAC, l2.DHCPRequest, extra)
	dst := c.serverID
	if dst == nil {
		dst = net.IPv4bcast
	}
	datagram, err := l2.BuildIPv4UDP(c.leaseIP, dst, l2.BuildUDP(l2.DHCPClientPort, l2.DHCPServerPort, dhcp))
	if err != nil {
		return err
	}

	dstMAC := l2.BroadcastMAC
	if c.resolveServerMAC != nil {
		if mac, ok := c.resolveServerMAC(dst); ok {
			dstMAC = mac
		}
	}
	frame := l2.EncodeEthernet(l2.EthernetFrame{
		Dst:     dstMAC,
		Src:     c.clientMAC,
		Type:    l2.EtherTypeIPv4,
		Payload: datagram,
	})
	return c.emit(frame)
}

func (c *Client) offeredOrLeasedIP() []byte {
	if c.offeredIP != nil {
		return c.offeredIP.To4()
	}
	if c.leaseIP != nil {
		return c.leaseIP.To4()
	}
	return net.IPv4zero.To4()
}

func randomXID() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate xid: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
