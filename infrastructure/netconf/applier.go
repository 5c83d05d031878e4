//go:build linux

package netconf

import (
	"fmt"
	"net"
	"os"
	"strings"

	"sevpn/application"
	"sevpn/infrastructure/settings"
)

// Applier implements application.SettingsApplier for Linux via the
// iproute2 "ip" command, behind a small contract interface over
// exec.Command that tests can substitute.
type Applier struct {
	ip contract
	// resolvConfPath is overridable in tests; defaults to /etc/resolv.conf.
	resolvConfPath string
}

// NewApplier constructs the production Applier, shelling out to the real
// "ip" binary and writing /etc/resolv.conf.
func NewApplier() *Applier {
	return &Applier{ip: ipContract{}, resolvConfPath: "/etc/resolv.conf"}
}

// Apply brings the named interface up with the DHCP-bound address, MTU,
// default route, and DNS servers.
func (a *Applier) Apply(ifaceName string, netSettings application.NetSettings) error {
	if netSettings.Address == nil || netSettings.Mask == nil {
		return fmt.Errorf("netconf: incomplete settings: address/mask required")
	}

	if err := a.ip.AddrFlushDev(ifaceName); err != nil {
		return err
	}

	ones, _ := netSettings.Mask.Size()
	cidr := fmt.Sprintf("%s/%d", netSettings.Address.String(), ones)
	if err := a.ip.AddrAddDev(ifaceName, cidr); err != nil {
		return err
	}

	mtu := settings.ResolveMTU(netSettings.MTU)
	if err := a.ip.LinkSetDevMTU(ifaceName, mtu); err != nil {
		return err
	}

	if err := a.ip.LinkSetDevUp(ifaceName); err != nil {
		return err
	}

	if netSettings.Gateway != nil {
		if err := a.ip.RouteAddDefaultDev(ifaceName); err != nil {
			return err
		}
	}

	if len(netSettings.DNS) > 0 {
		if err := a.writeResolvConf(netSettings.DNS); err != nil {
			return err
		}
	}

	return nil
}

func (a *Applier) writeResolvConf(servers []net.IP) error {
	var b strings.Builder
	for _, s := range servers {
		fmt.Fprintf(&b, "nameserver %s\n", s.String())
	}
	if err := os.WriteFile(a.resolvConfPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("netconf: write %s: %w", a.resolvConfPath, err)
	}
	return nil
}
