package handshake

import (
	"fmt"
	"math/rand"

	"sevpn/infrastructure/pack"
)

// watermarkBlob is this client's fixed identifying payload, sent as the
// leading bytes of every Hello request body. Its content is opaque to the
// server; only its presence and the request shape matter.
var watermarkBlob = []byte("SEVPN-CLIENT-WATERMARK-V1")

const helloPath = "/vpnsvc/connect.cgi"

// Hello posts the watermark blob plus 0..1999 random padding bytes and
// parses the server's Pack response.
func Hello(ex *exchange) (HelloResult, error) {
	padLen := rand.Intn(2000)
	body := make([]byte, 0, len(watermarkBlob)+padLen)
	body = append(body, watermarkBlob...)
	pad := make([]byte, padLen)
	_, _ = rand.Read(pad)
	body = append(body, pad...)

	respBody, err := ex.post(helloPath, "image/jpeg", body)
	if err != nil {
		return HelloResult{}, fmt.Errorf("hello: %w", err)
	}

	p, err := pack.Unmarshal(respBody)
	if err != nil {
		return HelloResult{}, fmt.Errorf("hello: parse response: %w", err)
	}

	if errMsg, ok := p.GetStr("error"); ok && errMsg != "" {
		return HelloResult{}, fmt.Errorf("hello: %w: %s", ErrServerError, errMsg)
	}

	randomBytes, ok := p.GetData("random")
	if !ok || len(randomBytes) < 20 {
		return HelloResult{}, fmt.Errorf("hello: %w", ErrHelloShortRandom)
	}

	res := HelloResult{}
	copy(res.Random[:], randomBytes[:20])
	res.Version, _ = p.GetInt("version")
	res.Build, _ = p.GetInt("build")
	res.Banner, _ = p.GetUnistr("hello")

	return res, nil
}
