//go:build linux

package session

import (
	"context"
	"net"
	"time"

	"sevpn/application"
	"sevpn/domain/identity"
	"sevpn/domain/protoerr"
	"sevpn/infrastructure/dhcpclient"
)

// DHCPStatus reports the embedded DHCP client's current phase and, once
// bound, its leased network settings. Safe to call from any goroutine.
func (s *Session) DHCPStatus() (dhcpclient.State, application.NetSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dhcp == nil {
		return dhcpclient.Idle, application.NetSettings{}
	}
	settings, _ := s.dhcp.Lease()
	return s.dhcp.State(), settings
}

// ObtainIPViaDHCP implements application.Session: it runs the embedded
// DHCP client to Bound over the already-established control channel and
// returns the leased network parameters.
func (s *Session) ObtainIPViaDHCP(ctx context.Context) (application.NetSettings, error) {
	if err := s.machine.RequireEstablishedOrTunneling("obtain_ip_via_dhcp"); err != nil {
		return application.NetSettings{}, err
	}

	bound := make(chan application.NetSettings, 1)

	s.mu.Lock()
	client := dhcpclient.New(dhcpclient.Config{
		ClientMAC: s.clientMAC,
		Emit:      s.sendFrame,
		ResolveServerMAC: func(ip net.IP) (identity.MAC, bool) {
			if s.arp == nil {
				return identity.MAC{}, false
			}
			return s.arp.Resolve(ip, time.Now())
		},
		OnBound: func(settings application.NetSettings) {
			select {
			case bound <- settings:
			default:
			}
		},
		// OnRenewed runs synchronously from HandleDHCPPayload, which the
		// session only ever reaches while s.mu is already held (see
		// classifyAndDispatch/maybeFeedDHCPLocked) — taking the lock again
		// here would deadlock on the first T1 renewal.
		OnRenewed: func(settings application.NetSettings) {
			s.netSettings = settings
		},
	})
	s.dhcp = client
	startErr := client.Start(time.Now())
	s.mu.Unlock()

	if startErr != nil {
		_ = s.Stop(startErr)
		return application.NetSettings{}, startErr
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case settings := <-bound:
			s.mu.Lock()
			s.netSettings = settings
			s.mu.Unlock()
			return settings, nil
		case now := <-ticker.C:
			s.mu.Lock()
			tickErr := client.Tick(now)
			s.mu.Unlock()
			if tickErr != nil {
				_ = s.Stop(tickErr)
				return application.NetSettings{}, tickErr
			}
		case <-ctx.Done():
			return application.NetSettings{}, ctx.Err()
		case <-s.stopCh:
			return application.NetSettings{}, protoerr.ErrTransportClosed
		}
	}
}
