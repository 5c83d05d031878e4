//go:build linux

// Package tunio implements application.HostFlow against a Linux TUN
// character device, opened and attached via the TUNSETIFF ioctl.
package tunio

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ifNameSize = 16
	tunSetIff  = 0x400454ca
	iffTun     = 0x0001
	iffNoPI    = 0x1000

	tunDevicePath = "/dev/net/tun"
)

type ifReq struct {
	Name  [ifNameSize]byte
	Flags uint16
	_     [22]byte
}

// Device is a Linux TUN device opened in no-packet-information mode,
// implementing application.HostFlow for the session engine's packet
// pumps.
type Device struct {
	file *os.File
	name string
}

// Open creates (if needed) and attaches to the named TUN interface. If
// ifName is empty, the kernel assigns a name (e.g. "tun0") which is
// reported back via Name().
func Open(ifName string) (*Device, error) {
	f, err := os.OpenFile(tunDevicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("tunio: open %s: %w", tunDevicePath, err)
	}

	req := newIfReq(ifName)

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(tunSetIff), uintptr(unsafe.Pointer(&req))); errno != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("tunio: ioctl TUNSETIFF for %q: %w", ifName, errno)
	}

	return &Device{file: f, name: resolveIfName(req)}, nil
}

// newIfReq builds the TUNSETIFF request for ifName, truncating names
// longer than the kernel's IFNAMSIZ. An empty ifName asks the kernel to
// assign one.
func newIfReq(ifName string) ifReq {
	var req ifReq
	copy(req.Name[:], ifName)
	req.Flags = iffTun | iffNoPI
	return req
}

// resolveIfName reads back the (possibly kernel-assigned) interface name
// the ioctl wrote into req.Name.
func resolveIfName(req ifReq) string {
	return strings.TrimRight(string(req.Name[:]), "\x00")
}

// Name returns the kernel-assigned or requested interface name.
func (d *Device) Name() string { return d.name }

// ReadFrame reads one raw IP packet from the TUN device into buf.
func (d *Device) ReadFrame(buf []byte) (int, error) {
	n, err := d.file.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("tunio: read: %w", err)
	}
	return n, nil
}

// WriteFrame writes one raw IP packet to the TUN device.
func (d *Device) WriteFrame(frame []byte) error {
	if _, err := d.file.Write(frame); err != nil {
		return fmt.Errorf("tunio: write: %w", err)
	}
	return nil
}

// Close releases the device's file descriptor.
func (d *Device) Close() error {
	return d.file.Close()
}
