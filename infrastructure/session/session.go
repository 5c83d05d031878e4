//go:build linux

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"sevpn/application"
	"sevpn/domain/identity"
	"sevpn/domain/protoerr"
	"sevpn/domain/sessionstate"
	"sevpn/infrastructure/arpresolver"
	"sevpn/infrastructure/controlchannel"
	"sevpn/infrastructure/dhcpclient"
	"sevpn/infrastructure/handshake"
	"sevpn/infrastructure/l2"
	"sevpn/infrastructure/settings"
	"sevpn/infrastructure/udpaccel"
)

var _ application.Session = (*Session)(nil)

// Session is the orchestrator that drives one SoftEther connection. It is not safe for
// concurrent use of its exported methods from more than one goroutine at
// a time beyond the lifecycle they document (Connect, then Handshake,
// then ObtainIPViaDHCP, then StartTunneling, with Stop callable at any
// point).
type Session struct {
	cfg Config

	machine   *sessionstate.Machine
	clientMAC identity.MAC

	channel *controlchannel.Channel
	framer  *controlchannel.Framer

	udpSocket *udpaccel.Socket
	udpEngine *udpaccel.Engine
	udpAd     udpaccel.ClientAdvertisement

	// mu guards the session-lane-owned collaborators below: cross-lane
	// calls (the UDP read loop dispatching a decoded frame, the tick
	// loop driving ARP/DHCP) take it before touching them, standing in
	// for explicit enqueue-onto-session-lane message passing.
	mu          sync.Mutex
	dhcp        *dhcpclient.Client
	arp         *arpresolver.Resolver
	netSettings application.NetSettings

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Session ready for Connect.
func New(cfg Config) (*Session, error) {
	mac, err := identity.NewRandomClientMAC()
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Session{
		cfg:       cfg,
		machine:   sessionstate.NewMachine(),
		clientMAC: mac,
		framer:    controlchannel.NewFramer(),
		stopCh:    make(chan struct{}),
	}, nil
}

// Connect implements application.Session.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.machine.BeginConnect(); err != nil {
		return err
	}

	addr, err := s.cfg.Host.Endpoint(s.cfg.Port)
	if err != nil {
		stopErr := protoerr.Wrap("connect", protoerr.ErrSessionConnectFailed, err)
		_ = s.Stop(stopErr)
		return stopErr
	}
	ch, err := controlchannel.Dial(addr, controlchannel.DialOptions{
		Timeout:          controlchannel.DefaultDialTimeout,
		PinnedLeafSHA256: s.cfg.PinnedLeafSHA256,
	})
	if err != nil {
		stopErr := protoerr.Wrap("connect", protoerr.ErrSessionConnectFailed, err)
		_ = s.Stop(stopErr)
		return stopErr
	}
	s.channel = ch

	if s.cfg.UDPAccelEnabled {
		s.openUDPSocket(addr)
	}

	return nil
}

// openUDPSocket best-effort opens the acceleration socket ahead of the
// handshake, so its local address/port can ride in the Auth pack. Failure
// here is not fatal to the session: it only means UDP acceleration stays
// off and the data plane runs on TCP.
func (s *Session) openUDPSocket(addr string) {
	serverUDPAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		log.Printf("session: udp-accel disabled: resolve %s: %v", addr, err)
		return
	}
	sock, err := udpaccel.OpenSocket(serverUDPAddr)
	if err != nil {
		log.Printf("session: udp-accel disabled: open socket: %v", err)
		return
	}
	ad, err := udpaccel.NewClientAdvertisement()
	if err != nil {
		log.Printf("session: udp-accel disabled: %v", err)
		_ = sock.Close()
		return
	}
	s.udpSocket = sock
	s.udpAd = ad
}

// Handshake implements application.Session.
func (s *Session) Handshake(ctx context.Context) error {
	if err := s.machine.BeginHandshake(); err != nil {
		return err
	}

	authOpts, err := s.resolveAuth()
	if err != nil {
		stopErr := protoerr.Wrap("handshake", protoerr.ErrHandshakeFailed, err)
		_ = s.Stop(stopErr)
		return stopErr
	}

	var udpAd *handshake.ClientUDPAdvertisement
	if s.udpSocket != nil {
		udpAd = &handshake.ClientUDPAdvertisement{
			LocalIPv4:   s.udpSocket.Self.IPv4,
			LocalPort:   s.udpSocket.Self.Port,
			ClientKeyV1: s.udpAd.ClientKeyV1,
			ClientKeyV2: s.udpAd.ClientKeyV2,
		}
	}

	result, err := handshake.Run(s.channel.Conn(), s.cfg.Host.String(), s.cfg.Hub, authOpts, udpAd)
	if err != nil {
		stopErr := protoerr.Wrap("handshake", protoerr.ErrHandshakeFailed, err)
		_ = s.Stop(stopErr)
		return stopErr
	}

	if err := s.machine.CompleteHandshake(); err != nil {
		_ = s.Stop(err)
		return err
	}

	// The Welcome session key secures SoftEther's own wire encryption,
	// which this client does not layer on top of TLS: the control
	// channel's confidentiality already comes from TLS, so
	// use_encrypt is acknowledged but not re-implemented as a second
	// cipher over the same bytes.
	if result.Welcome.UDPAccel != nil && s.udpSocket != nil {
		if err := s.startUDPEngine(result.Welcome.UDPAccel); err != nil {
			log.Printf("session: udp-accel start failed, staying on TCP: %v", err)
		}
	}

	if len(result.Leftover) > 0 {
		if err := s.dispatchChunk(result.Leftover); err != nil {
			log.Printf("session: dispatch leftover handshake bytes: %v", err)
		}
	}

	go s.controlReadLoop()
	if s.udpEngine != nil {
		go s.udpReadLoop()
	}

	return nil
}

// resolveAuth resolves credentials and, for a JWT-only source, derives a
// username from the token's claims: the core extracts the first of
// email, preferred_username; absence of either fails the handshake with
// BuildAuthFromToken.
func (s *Session) resolveAuth() (application.AuthOptions, error) {
	opts, err := s.cfg.AuthSource.Resolve()
	if err != nil {
		return application.AuthOptions{}, err
	}
	if opts.JWT == "" || opts.Username != "" {
		return opts, nil
	}
	username, err := usernameFromJWT(opts.JWT)
	if err != nil {
		return application.AuthOptions{}, err
	}
	opts.Username = username
	return opts, nil
}

func (s *Session) startUDPEngine(p *handshake.UDPAccelParams) error {
	ip := p.ServerIPv4
	if ip == nil {
		if hostIP, ok := s.cfg.Host.IP(); ok {
			ip = net.IP(hostIP.AsSlice())
		}
	}
	port := int(p.ServerPort)
	if port == 0 {
		port = s.cfg.Port
	}
	serverAddr := &net.UDPAddr{IP: ip, Port: port}

	var serverKey [32]byte
	copy(serverKey[:], p.ServerKeyV2[:32])

	params := udpaccel.Params{
		ServerAddr:           serverAddr,
		ServerCookie:         p.ServerCookie,
		ClientCookie:         p.ClientCookie,
		ServerKeyV2:          serverKey,
		FastDisconnectDetect: p.FastDisconnectDetect,
		ConfiguredEndpoint:   serverAddr,
	}

	engine, err := udpaccel.NewEngine(s.udpSocket, params, s.udpAd.SendKey(), s.onUDPFrame)
	if err != nil {
		return err
	}
	s.udpEngine = engine
	return nil
}

// onUDPFrame is the UDP lane's callback into the session lane with a
// decoded Ethernet-payload frame.
func (s *Session) onUDPFrame(frame []byte) {
	s.classifyAndDispatch(frame, time.Now())
}

// sendFrame implements the send/receive contract: the data plane only
// when ready AND pinned, otherwise TCP.
func (s *Session) sendFrame(frame []byte) error {
	if s.udpEngine != nil && s.udpEngine.CanSendDataPlane(time.Now()) {
		if err := s.udpEngine.SendFrame(frame); err == nil {
			return nil
		} else {
			log.Printf("session: udp send failed, falling back to tcp: %v", err)
		}
	}
	return s.channel.Send(controlchannel.EncodeDataBatch(frame))
}

func (s *Session) dispatchChunk(chunk []byte) error {
	frames, err := s.framer.Feed(chunk)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, f := range frames {
		s.classifyAndDispatch(f, now)
	}
	return nil
}

// classifyAndDispatch implements the server->TUN classification: ARP to
// the resolver, IPv4/IPv6 to the host flow once Tunneling, and every
// IPv4 frame additionally offered to the DHCP client while it is
// active.
func (s *Session) classifyAndDispatch(frame []byte, now time.Time) {
	eth, err := l2.DecodeEthernet(frame)
	if err != nil {
		log.Printf("session: decode ethernet frame: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch eth.Type {
	case l2.EtherTypeARP:
		if s.arp != nil {
			if err := s.arp.OnIncoming(eth.Payload, now); err != nil {
				log.Printf("session: arp: %v", err)
			}
		}
	case l2.EtherTypeIPv4:
		s.maybeFeedDHCPLocked(eth.Payload, now)
		if s.machine.Current() == sessionstate.Tunneling {
			if err := s.cfg.HostFlow.WriteFrame(eth.Payload); err != nil {
				log.Printf("session: write ipv4 to host: %v", err)
			}
		}
	case l2.EtherTypeIPv6:
		if s.machine.Current() == sessionstate.Tunneling {
			if err := s.cfg.HostFlow.WriteFrame(eth.Payload); err != nil {
				log.Printf("session: write ipv6 to host: %v", err)
			}
		}
	}
}

// maybeFeedDHCPLocked must be called with mu held.
func (s *Session) maybeFeedDHCPLocked(ipPacket []byte, now time.Time) {
	if s.dhcp == nil {
		return
	}
	ipv4, err := l2.DecodeIPv4(ipPacket)
	if err != nil || ipv4.Protocol != 17 {
		return
	}
	udpSeg, err := l2.DecodeUDP(ipv4.Payload)
	if err != nil {
		return
	}
	if !(udpSeg.SrcPort == l2.DHCPServerPort && udpSeg.DstPort == l2.DHCPClientPort) {
		return
	}
	if err := s.dhcp.HandleDHCPPayload(udpSeg.Payload, now); err != nil {
		log.Printf("session: dhcp: %v", err)
	}
}

func (s *Session) controlReadLoop() {
	buf := make([]byte, 65536)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		n, err := s.channel.Receive(buf)
		if err != nil {
			if !errors.Is(err, controlchannel.ErrServerClosed) {
				log.Printf("session: control channel receive: %v", err)
			}
			_ = s.Stop(protoerr.Wrap("control channel", protoerr.ErrTransportClosed, err))
			return
		}
		if n == 0 {
			continue
		}
		if err := s.dispatchChunk(buf[:n]); err != nil {
			log.Printf("session: framer: %v", err)
			_ = s.Stop(err)
			return
		}
	}
}

func (s *Session) udpReadLoop() {
	s.mu.Lock()
	mtu := s.netSettings.MTU
	s.mu.Unlock()
	buf := make([]byte, settings.UDPBufferSize(mtu))
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		_ = s.udpSocket.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, addr, err := s.udpSocket.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.stopCh:
			default:
				log.Printf("session: udp read: %v", err)
			}
			continue
		}
		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		if err := s.udpEngine.HandleIncoming(buf[:n], udpAddr, time.Now()); err != nil {
			log.Printf("session: udp handle incoming: %v", err)
		}
	}
}

// Stop implements application.Session. It is idempotent.
func (s *Session) Stop(cause error) error {
	s.stopOnce.Do(func() {
		s.machine.Stop(cause)
		close(s.stopCh)
		if s.channel != nil {
			_ = s.channel.Close()
		}
		if s.udpEngine != nil {
			_ = s.udpEngine.Close()
		} else if s.udpSocket != nil {
			_ = s.udpSocket.Close()
		}
		s.udpAd.Zero()
		s.mu.Lock()
		if s.arp != nil {
			s.arp.Stop()
		}
		s.mu.Unlock()
	})
	return s.machine.StopErr()
}
