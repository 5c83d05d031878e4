package l2

import (
	"encoding/binary"
	"errors"
	"net"

	"sevpn/domain/identity"
)

// DHCP message type values (option 53).
const (
	DHCPDiscover uint8 = 1
	DHCPOffer    uint8 = 2
	DHCPRequest  uint8 = 3
	DHCPAck      uint8 = 5
	DHCPNak      uint8 = 6
)

// DHCP option codes used by this client.
const (
	OptSubnetMask    byte = 1
	OptRouter        byte = 3
	OptDNSServers    byte = 6
	OptRequestedIP   byte = 50
	OptLeaseTime     byte = 51
	OptMessageType   byte = 53
	OptServerID      byte = 54
	OptParamReqList  byte = 55
	OptEnd           byte = 255
)

// ParameterRequestList is the set of option codes this client always
// requests: subnet mask, router, DNS, domain name, broadcast address,
// lease time, renewal (T1), rebinding (T2).
var ParameterRequestList = []byte{1, 3, 6, 15, 28, 51, 58, 59}

const (
	bootpOpRequest  = 1
	bootpHTypeEther = 1
	bootpHLenEther  = 6
	dhcpClientPort  = 68
	dhcpServerPort  = 67
)

// DHCPClientPort and DHCPServerPort are exported for use by the DHCP
// client state machine when building the UDP envelope.
const (
	DHCPClientPort = dhcpClientPort
	DHCPServerPort = dhcpServerPort
)

var dhcpMagicCookie = [4]byte{0x63, 0x82, 0x53, 0x63}

const bootpFixedLen = 236 // through the 192 zero bytes, before the magic cookie

var (
	ErrDHCPTooShort   = errors.New("dhcp: message shorter than fixed header")
	ErrDHCPBadCookie  = errors.New("dhcp: bad magic cookie")
	ErrDHCPBadOptions = errors.New("dhcp: truncated option")
)

// Option is one DHCP option TLV in wire order.
type Option struct {
	Code byte
	Data []byte
}

// DHCPMessage is a decoded BOOTP/DHCP message.
type DHCPMessage struct {
	XID     uint32
	CIAddr  net.IP
	YIAddr  net.IP
	SIAddr  net.IP
	GIAddr  net.IP
	CHAddr  identity.MAC
	Options []Option
}

// MessageType returns the value of option 53, or 0 if absent.
func (m DHCPMessage) MessageType() uint8 {
	for _, o := range m.Options {
		if o.Code == OptMessageType && len(o.Data) == 1 {
			return o.Data[0]
		}
	}
	return 0
}

// Option looks up the first option with the given code.
func (m DHCPMessage) Option(code byte) ([]byte, bool) {
	for _, o := range m.Options {
		if o.Code == code {
			return o.Data, true
		}
	}
	return nil, false
}

// BuildDHCPMessage constructs a client-originated DHCP message
// (DISCOVER or REQUEST) with the standard parameter request list.
func BuildDHCPMessage(xid uint32, chaddr identity.MAC, msgType uint8, extra []Option) []byte {
	out := make([]byte, bootpFixedLen, bootpFixedLen+64)
	out[0] = bootpOpRequest
	out[1] = bootpHTypeEther
	out[2] = bootpHLenEther
	out[3] = 0 // hops
	binary.BigEndian.PutUint32(out[4:8], xid)
	// secs(2), flags(2) at [8:12] left zero
	// ciaddr, yiaddr, siaddr, giaddr at [12:28] left zero (client fills none on discover/request)
	copy(out[28:44], chaddr[:])
	// remaining 192 bytes (sname+file) already zero

	out = append(out, dhcpMagicCookie[:]...)

	out = appendOption(out, OptMessageType, []byte{msgType})
	for _, o := range extra {
		out = appendOption(out, o.Code, o.Data)
	}
	out = appendOption(out, OptParamReqList, ParameterRequestList)
	out = append(out, OptEnd)

	return out
}

func appendOption(buf []byte, code byte, data []byte) []byte {
	buf = append(buf, code)
	buf = append(buf, byte(len(data)))
	buf = append(buf, data...)
	return buf
}

// DecodeDHCPMessage parses a BOOTP/DHCP message.
func DecodeDHCPMessage(data []byte) (DHCPMessage, error) {
	if len(data) < bootpFixedLen+4 {
		return DHCPMessage{}, ErrDHCPTooShort
	}
	if data[bootpFixedLen] != dhcpMagicCookie[0] || data[bootpFixedLen+1] != dhcpMagicCookie[1] ||
		data[bootpFixedLen+2] != dhcpMagicCookie[2] || data[bootpFixedLen+3] != dhcpMagicCookie[3] {
		return DHCPMessage{}, ErrDHCPBadCookie
	}

	m := DHCPMessage{
		XID:    binary.BigEndian.Uint32(data[4:8]),
		CIAddr: net.IP(append(net.IP{}, data[12:16]...)),
		YIAddr: net.IP(append(net.IP{}, data[16:20]...)),
		SIAddr: net.IP(append(net.IP{}, data[20:24]...)),
		GIAddr: net.IP(append(net.IP{}, data[24:28]...)),
	}
	copy(m.CHAddr[:], data[28:34])

	opts, err := decodeOptions(data[bootpFixedLen+4:])
	if err != nil {
		return DHCPMessage{}, err
	}
	m.Options = opts
	return m, nil
}

func decodeOptions(data []byte) ([]Option, error) {
	var opts []Option
	i := 0
	for i < len(data) {
		code := data[i]
		if code == OptEnd {
			break
		}
		if code == 0 { // pad
			i++
			continue
		}
		if i+1 >= len(data) {
			return nil, ErrDHCPBadOptions
		}
		length := int(data[i+1])
		if i+2+length > len(data) {
			return nil, ErrDHCPBadOptions
		}
		value := make([]byte, length)
		copy(value, data[i+2:i+2+length])
		opts = append(opts, Option{Code: code, Data: value})
		i += 2 + length
	}
	return opts, nil
}
