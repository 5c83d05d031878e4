//go:build linux

package udpaccel

import (
	"fmt"
	"net"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// rawSockaddrUnspec mirrors struct sockaddr with sa_family set to
// AF_UNSPEC and the remaining bytes zeroed, used only to disconnect a
// previously-connected UDP socket.
type rawSockaddrUnspec struct {
	Family uint16
	_      [14]byte
}

// LocalEndpoint is what the socket setup trick discovers: the address and
// port the kernel would use as source when sending to the server, learned
// without ever exchanging a packet.
type LocalEndpoint struct {
	IPv4 net.IP
	Port uint16
}

// Socket wraps the UDP datagram socket used by the acceleration data
// path.
type Socket struct {
	pc   net.PacketConn
	Self LocalEndpoint
}

// OpenSocket binds an IPv4 UDP socket to 0.0.0.0:0, non-blocking, then
// performs a transient connect to serverAddr solely to learn the kernel-
// chosen local address via getsockname, and disconnects immediately
// (AF_UNSPEC) so the socket can subsequently receive from any source.
func OpenSocket(serverAddr *net.UDPAddr) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("udpaccel: socket: %w", err)
	}
	closeOnErr := true
	defer func() {
		if closeOnErr {
			_ = unix.Close(fd)
		}
	}()

	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("udpaccel: set nonblock: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: 0}); err != nil {
		return nil, fmt.Errorf("udpaccel: bind: %w", err)
	}

	serverIP4 := serverAddr.IP.To4()
	if serverIP4 == nil {
		return nil, fmt.Errorf("udpaccel: server address is not IPv4: %s", serverAddr.IP)
	}
	connectSA := &unix.SockaddrInet4{Port: serverAddr.Port}
	copy(connectSA.Addr[:], serverIP4)
	if err := unix.Connect(fd, connectSA); err != nil {
		return nil, fmt.Errorf("udpaccel: transient connect: %w", err)
	}

	localRaw, err := unix.Getsockname(fd)
	if err != nil {
		return nil, fmt.Errorf("udpaccel: getsockname: %w", err)
	}
	localSA, ok := localRaw.(*unix.SockaddrInet4)
	if !ok {
		return nil, fmt.Errorf("udpaccel: unexpected sockaddr type %T", localRaw)
	}
	self := LocalEndpoint{
		IPv4: net.IPv4(localSA.Addr[0], localSA.Addr[1], localSA.Addr[2], localSA.Addr[3]),
		Port: uint16(localSA.Port),
	}

	if err := disconnect(fd); err != nil {
		return nil, fmt.Errorf("udpaccel: disconnect: %w", err)
	}

	f := os.NewFile(uintptr(fd), "udpaccel-socket")
	pc, err := net.FilePacketConn(f)
	closeErr := f.Close()
	if err != nil {
		return nil, fmt.Errorf("udpaccel: wrap fd: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("udpaccel: close dup fd: %w", closeErr)
	}

	closeOnErr = false
	return &Socket{pc: pc, Self: self}, nil
}

// disconnect issues connect(fd, {sa_family=AF_UNSPEC}) directly, since
// the unix package's Sockaddr interface has no AF_UNSPEC implementation.
func disconnect(fd int) error {
	var sa rawSockaddrUnspec
	sa.Family = unix.AF_UNSPEC
	_, _, errno := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa))
	if errno != 0 {
		return errno
	}
	return nil
}

// ReadFrom, WriteTo, SetReadDeadline, and Close delegate to the wrapped
// packet connection.
func (s *Socket) ReadFrom(buf []byte) (int, net.Addr, error)   { return s.pc.ReadFrom(buf) }
func (s *Socket) WriteTo(b []byte, addr net.Addr) (int, error) { return s.pc.WriteTo(b, addr) }
func (s *Socket) SetReadDeadline(t time.Time) error             { return s.pc.SetReadDeadline(t) }
func (s *Socket) Close() error                                  { return s.pc.Close() }
