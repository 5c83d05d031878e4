package handshake

import (
	"fmt"
	"strings"

	"sevpn/infrastructure/pack"
)

// ParseWelcome decodes the response body from Auth into a WelcomeResult.
// A redirect response is recognized but not followed (out of scope).
func ParseWelcome(body []byte) (WelcomeResult, error) {
	p, err := pack.Unmarshal(body)
	if err != nil {
		return WelcomeResult{}, fmt.Errorf("welcome: parse: %w", err)
	}

	if errMsg, ok := p.GetStr("error"); ok && errMsg != "" {
		return WelcomeResult{}, fmt.Errorf("welcome: %w: %s", ErrServerError, errMsg)
	}

	if redirect, ok := p.GetBool("Redirect"); ok && redirect {
		return WelcomeResult{}, ErrRedirect
	}

	sessionName, ok := p.GetStr("session_name")
	if !ok {
		return WelcomeResult{}, fmt.Errorf("welcome: session_name: %w", ErrMissingField)
	}
	connectionName, ok := p.GetStr("connection_name")
	if !ok {
		return WelcomeResult{}, fmt.Errorf("welcome: connection_name: %w", ErrMissingField)
	}
	sessionKeyRaw, ok := p.GetData("session_key")
	if !ok {
		return WelcomeResult{}, fmt.Errorf("welcome: session_key: %w", ErrMissingField)
	}
	if len(sessionKeyRaw) < 20 {
		return WelcomeResult{}, fmt.Errorf("welcome: %w", ErrSessionKeyTooShort)
	}
	sessionKey32, ok := p.GetInt("session_key_32")
	if !ok {
		return WelcomeResult{}, fmt.Errorf("welcome: session_key_32: %w", ErrMissingField)
	}

	res := WelcomeResult{
		SessionName:    sessionName,
		ConnectionName: connectionName,
		SessionKey32:   sessionKey32,
	}
	copy(res.SessionKey[:], sessionKeyRaw[:20])

	res.MaxConnection = 1
	if v, ok := p.GetInt("max_connection"); ok {
		res.MaxConnection = v
	}
	res.UseEncrypt = true
	if v, ok := p.GetBool("use_encrypt"); ok {
		res.UseEncrypt = v
	}
	if v, ok := p.GetBool("use_compress"); ok {
		res.UseCompress = v
	}
	if v, ok := p.GetBool("half_connection"); ok {
		res.HalfConnection = v
	}
	if v, ok := p.GetInt("timeout"); ok {
		res.Timeout = v
	}
	if v, ok := p.GetBool("enable_udp_recovery"); ok {
		res.EnableUDPRecovery = v
	}

	res.Policy = parsePolicyBlock(p)

	udpAccel, err := parseUDPAccel(p)
	if err != nil {
		return WelcomeResult{}, err
	}
	res.UDPAccel = udpAccel

	return res, nil
}

func parsePolicyBlock(p *pack.Pack) PolicyBlock {
	policy := PolicyBlock{}
	for _, it := range p.Items {
		if !strings.HasPrefix(it.Name, "policy:") {
			continue
		}
		if it.Type != pack.TypeInt || len(it.Values) == 0 {
			continue
		}
		key := strings.TrimPrefix(it.Name, "policy:")
		v, ok := p.GetInt(it.Name)
		if !ok {
			continue
		}
		policy[key] = v
	}
	if len(policy) == 0 {
		return nil
	}
	return policy
}

func parseUDPAccel(p *pack.Pack) (*UDPAccelParams, error) {
	enabled, ok := p.GetBool("use_udp_accel")
	if !ok || !enabled {
		return nil, nil
	}

	version, _ := p.GetInt("udp_version")
	if version < 2 {
		return nil, fmt.Errorf("welcome: %w", ErrUDPAccelV1)
	}

	serverKey, ok := p.GetData("server_key_v2")
	if !ok || len(serverKey) < 32 {
		return nil, fmt.Errorf("welcome: %w", ErrUDPKeyTooShort)
	}

	serverIP, _ := p.GetIPv4("server_ip")
	serverPort, _ := p.GetInt("server_port")
	serverCookie, _ := p.GetInt("server_cookie")
	clientCookie, _ := p.GetInt("client_cookie")
	useEncryption, _ := p.GetBool("use_encryption")
	useHMAC, _ := p.GetBool("use_hmac")
	fastDetect, _ := p.GetBool("fast_disconnect_detect")

	return &UDPAccelParams{
		Enabled:              true,
		Version:              version,
		UseEncryption:        useEncryption,
		UseHMAC:              useHMAC,
		FastDisconnectDetect: fastDetect,
		ServerIPv4:           serverIP,
		ServerPort:           uint16(serverPort),
		ServerCookie:         serverCookie,
		ClientCookie:         clientCookie,
		ServerKeyV2:          serverKey,
	}, nil
}
