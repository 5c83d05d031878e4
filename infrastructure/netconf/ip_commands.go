//go:build linux

package netconf

import (
	"fmt"
	"os/exec"
)

// ipContract shells out to the "ip" binary: one exec.Command per
// concern, CombinedOutput folded into the error message.
type ipContract struct{}

func (ipContract) LinkSetDevUp(devName string) error {
	out, err := exec.Command("ip", "link", "set", "dev", devName, "up").CombinedOutput()
	if err != nil {
		return fmt.Errorf("netconf: link set up %s: %w, output: %s", devName, err, out)
	}
	return nil
}

func (ipContract) LinkSetDevMTU(devName string, mtu int) error {
	out, err := exec.Command("ip", "link", "set", "dev", devName, "mtu", fmt.Sprintf("%d", mtu)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("netconf: set mtu %d on %s: %w, output: %s", mtu, devName, err, out)
	}
	return nil
}

func (ipContract) AddrAddDev(devName string, cidr string) error {
	out, err := exec.Command("ip", "addr", "add", cidr, "dev", devName).CombinedOutput()
	if err != nil {
		return fmt.Errorf("netconf: assign %s to %s: %w, output: %s", cidr, devName, err, out)
	}
	return nil
}

func (ipContract) AddrFlushDev(devName string) error {
	out, err := exec.Command("ip", "addr", "flush", "dev", devName).CombinedOutput()
	if err != nil {
		return fmt.Errorf("netconf: flush addresses on %s: %w, output: %s", devName, err, out)
	}
	return nil
}

func (ipContract) RouteAddDefaultDev(devName string) error {
	out, err := exec.Command("ip", "route", "add", "default", "dev", devName).CombinedOutput()
	if err != nil {
		return fmt.Errorf("netconf: set %s as default route: %w, output: %s", devName, err, out)
	}
	return nil
}
