//go:build linux

package session

import (
	"context"
	"log"
	"math/rand"
	"time"

	"sevpn/application"
	"sevpn/domain/protoerr"
	"sevpn/infrastructure/arpresolver"
	"sevpn/infrastructure/controlchannel"
	"sevpn/infrastructure/l2"
)

// StartTunneling implements application.Session: it applies the DHCP-
// obtained settings to the host interface, starts ARP, and starts the
// bidirectional packet pumps and the TCP keep-alive timer.
func (s *Session) StartTunneling(ctx context.Context) error {
	s.mu.Lock()
	settings := s.netSettings
	s.mu.Unlock()

	if err := s.cfg.SettingsApplier.Apply(s.cfg.IfaceName, settings); err != nil {
		stopErr := protoerr.Wrap("start_tunneling", protoerr.ErrNeSettingsApplyFailed, err)
		_ = s.Stop(stopErr)
		return stopErr
	}

	s.mu.Lock()
	s.arp = arpresolver.New(settings.Address, s.clientMAC, s.sendFrame)
	arp := s.arp
	s.mu.Unlock()

	if err := arp.Start(time.Now()); err != nil {
		_ = s.Stop(err)
		return err
	}

	if err := s.machine.BeginTunneling(); err != nil {
		_ = s.Stop(err)
		return err
	}

	go s.hostReadLoop(settings)
	go s.tickLoop()

	return nil
}

// hostReadLoop is the TUN->server pump. It reads raw IP packets
// from the host flow, builds an Ethernet frame addressed to the resolved
// next hop's MAC (or the zero MAC, best-effort, if unresolved), and sends
// it over whichever transport the send/receive contract currently picks.
func (s *Session) hostReadLoop(settings application.NetSettings) {
	buf := make([]byte, 65536)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		n, err := s.cfg.HostFlow.ReadFrame(buf)
		if err != nil {
			log.Printf("session: host flow read: %v", err)
			return
		}
		if n == 0 {
			continue
		}
		packet := append([]byte(nil), buf[:n]...)
		if version := packet[0] >> 4; version != 4 {
			// Non-IPv4 packets, IPv6 included, are dropped here: this
			// client resolves next-hop MACs over ARP for IPv4 only, so it
			// never has a MAC to address an IPv6 packet to.
			continue
		}

		frame, err := s.buildOutboundIPv4Frame(packet, settings, time.Now())
		if err != nil {
			log.Printf("session: build outbound frame: %v", err)
			continue
		}
		if err := s.sendFrame(frame); err != nil {
			log.Printf("session: send outbound frame: %v", err)
		}
	}
}

func (s *Session) buildOutboundIPv4Frame(ipPacket []byte, settings application.NetSettings, now time.Time) ([]byte, error) {
	ipv4, err := l2.DecodeIPv4(ipPacket)
	if err != nil {
		return nil, err
	}
	target := nextHopIP(ipv4.Dst, settings.Address, settings.Gateway, settings.Mask)

	dstMAC := l2.ZeroMAC
	s.mu.Lock()
	if s.arp != nil {
		if mac, ok := s.arp.Resolve(target, now); ok {
			dstMAC = mac
		} else if err := s.arp.Request(target, now); err != nil {
			log.Printf("session: arp request: %v", err)
		}
	}
	s.mu.Unlock()

	return l2.EncodeEthernet(l2.EthernetFrame{
		Dst:     dstMAC,
		Src:     s.clientMAC,
		Type:    l2.EtherTypeIPv4,
		Payload: ipPacket,
	}), nil
}

// tickLoop drives ARP's gratuitous-announcement cadence, DHCP renewal,
// the UDP engine's keep-alive/readiness timeout, and the independent TCP
// keep-alive timer, for the lifetime of Tunneling.
func (s *Session) tickLoop() {
	arpTicker := time.NewTicker(time.Second)
	defer arpTicker.Stop()

	udpTicker := time.NewTicker(100 * time.Millisecond)
	defer udpTicker.Stop()

	keepAlive := time.NewTimer(randomTCPKeepAliveInterval())
	defer keepAlive.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-arpTicker.C:
			s.mu.Lock()
			if s.arp != nil {
				if err := s.arp.Tick(now); err != nil {
					log.Printf("session: arp tick: %v", err)
				}
			}
			if s.dhcp != nil {
				if err := s.dhcp.Tick(now); err != nil {
					log.Printf("session: dhcp tick: %v", err)
				}
			}
			s.mu.Unlock()
		case now := <-udpTicker.C:
			if s.udpEngine != nil {
				if err := s.udpEngine.Tick(now); err != nil {
					log.Printf("session: udp tick: %v", err)
				}
			}
		case <-keepAlive.C:
			if err := s.sendTCPKeepAlive(); err != nil {
				log.Printf("session: tcp keepalive: %v", err)
			}
			keepAlive.Reset(randomTCPKeepAliveInterval())
		}
	}
}

// randomTCPKeepAliveInterval picks a 10-20s timer.
func randomTCPKeepAliveInterval() time.Duration {
	return 10*time.Second + time.Duration(rand.Intn(10001))*time.Millisecond
}

func (s *Session) sendTCPKeepAlive() error {
	payload := make([]byte, rand.Intn(512))
	_, _ = rand.Read(payload)
	return s.channel.Send(controlchannel.EncodeKeepAlive(payload))
}
