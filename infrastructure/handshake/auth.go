package handshake

import (
	"fmt"
	"math/rand"

	"sevpn/application"
	"sevpn/domain/protoerr"
	"sevpn/infrastructure/legacyauth"
	"sevpn/infrastructure/pack"
)

const authPath = "/vpnsvc/vpn.cgi"

// Client identity fields sent in every Auth request.
const (
	ClientStr   = "SEVPN Client"
	ClientVer   = uint32(430)
	ClientBuild = uint32(9999)
)

const (
	authTypePassword = uint32(1)
	authTypeJWT      = uint32(6)
)

// Auth builds and posts the authentication Pack, and returns the server's
// raw response body (the Welcome pack, or a redirect pack) for ParseWelcome
// to decode.
func Auth(ex *exchange, hub string, opts application.AuthOptions, helloRandom [20]byte, udpAd *ClientUDPAdvertisement) ([]byte, error) {
	req, err := buildAuthPack(hub, opts, helloRandom, udpAd)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	encoded, err := pack.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("auth: encode request: %w", err)
	}

	body, err := ex.post(authPath, "application/octet-stream", encoded)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return body, nil
}

func buildAuthPack(hub string, opts application.AuthOptions, helloRandom [20]byte, udpAd *ClientUDPAdvertisement) (*pack.Pack, error) {
	p := pack.New()
	p.AddStr("method", "login")
	p.AddStr("hubname", hub)
	p.AddStr("username", opts.Username)

	switch {
	case opts.Password != "" && opts.JWT == "":
		secure := legacyauth.SecurePassword(opts.Password, opts.Username, helloRandom)
		p.AddInt("authtype", authTypePassword)
		p.AddData("secure_password", secure[:])
	case opts.JWT != "" && opts.Password == "":
		p.AddInt("authtype", authTypeJWT)
		p.AddStr("jwt", opts.JWT)
	default:
		return nil, protoerr.ErrAuthBadOptions
	}

	p.AddInt("protocol", 0)
	p.AddBool("use_encrypt", true)
	p.AddBool("use_compress", false)
	p.AddInt("max_connection", 1)
	p.AddBool("half_connection", false)
	p.AddBool("qos", false)

	p.AddStr("client_str", ClientStr)
	p.AddInt("client_ver", ClientVer)
	p.AddInt("client_build", ClientBuild)

	pencore := make([]byte, rand.Intn(1000))
	_, _ = rand.Read(pencore)
	p.AddData("pencore", pencore)

	if udpAd != nil {
		p.AddBool("use_udp_accel", true)
		p.AddIPv4("udp_accel_local_ip", udpAd.LocalIPv4)
		p.AddInt("udp_accel_local_port", uint32(udpAd.LocalPort))
		p.AddData("udp_accel_client_key_v1", udpAd.ClientKeyV1[:])
		p.AddData("udp_accel_client_key_v2", udpAd.ClientKeyV2[:])
	}

	return p, nil
}
